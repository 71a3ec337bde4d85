package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML file named by --config. Flags given on the
// command line win over file values.
type fileConfig struct {
	Bus  string `yaml:"bus"`
	Addr uint16 `yaml:"addr"`
	MQTT struct {
		Broker   string `yaml:"broker"`
		Topic    string `yaml:"topic"`
		ClientID string `yaml:"client_id"`
	} `yaml:"mqtt"`
	Console struct {
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"console"`
}

var (
	busName    string
	devAddr    uint16
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "chipsetctl",
	Short: "Power-supply board host tool",
	Long: `chipsetctl talks to the power-supply board from the host computer.

Telemetry and commands go over the I2C host link (--bus, --addr); the
console command tails the board's debug UART instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// glog reads its own flags from the Go flag set.
		_ = flag.CommandLine.Parse(nil)
		if configPath == "" {
			return nil
		}
		fc, err := loadFileConfig(configPath)
		if err != nil {
			return err
		}
		applyFileConfig(cmd, fc)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&busName, "bus", "1", "I2C bus name or number")
	pf.Uint16Var(&devAddr, "addr", 0x42, "board address on the host link")
	pf.StringVar(&configPath, "config", "", "YAML config file")
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	glog.V(1).Infof("config %s: bus=%q addr=%#x", path, fc.Bus, fc.Addr)
	return fc, nil
}

// applyFileConfig copies file values into every flag the user left unset.
func applyFileConfig(cmd *cobra.Command, fc fileConfig) {
	set := func(name, v string) {
		if v == "" {
			return
		}
		f := cmd.Flags().Lookup(name)
		if f == nil || f.Changed {
			return
		}
		if err := f.Value.Set(v); err != nil {
			glog.Warningf("config: %s=%q: %v", name, v, err)
		}
	}
	set("bus", fc.Bus)
	if fc.Addr != 0 {
		set("addr", strconv.Itoa(int(fc.Addr)))
	}
	set("broker", fc.MQTT.Broker)
	set("topic", fc.MQTT.Topic)
	set("client-id", fc.MQTT.ClientID)
	set("port", fc.Console.Port)
	if fc.Console.Baud != 0 {
		set("baud", strconv.Itoa(fc.Console.Baud))
	}
}
