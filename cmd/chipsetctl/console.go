package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"chipset-go/services/console"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var (
	consolePort string
	consoleBaud int
	consoleRaw  bool
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Tail the board's debug UART",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if consolePort == "" {
			return fmt.Errorf("--port is required")
		}
		mode := &serial.Mode{
			BaudRate: consoleBaud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(consolePort, mode)
		if err != nil {
			return fmt.Errorf("open %s: %w", consolePort, err)
		}
		defer port.Close()
		return tail(port, cmd.OutOrStdout(), consoleRaw)
	},
}

func init() {
	f := consoleCmd.Flags()
	f.StringVar(&consolePort, "port", "", "serial device, e.g. /dev/ttyUSB0")
	f.IntVar(&consoleBaud, "baud", 115200, "baud rate")
	f.BoolVar(&consoleRaw, "raw", false, "print lines as received")
	rootCmd.AddCommand(consoleCmd)
}

// tail copies console lines to w, rendering the board's JSON event lines in
// a readable form. Other lines (firmware log output) pass through.
func tail(r io.Reader, w io.Writer, raw bool) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Bytes()
		var ev console.Line
		if raw || json.Unmarshal(line, &ev) != nil || ev.Event == "" {
			fmt.Fprintf(w, "%s\n", line)
			continue
		}
		switch {
		case ev.State != nil:
			fmt.Fprintf(w, "state   %s -> %s\n", ev.State.From, ev.State.To)
		case ev.Sample != nil:
			s := ev.Sample
			fmt.Fprintf(w, "sample  reg5=%sV regpi=%sV temp=%.1fC flags=%s\n",
				microToUnit(s.Reg5MicroV), microToUnit(s.RegPiMicroV),
				float64(s.DieTempMilliC())/1000, s.Flags)
		default:
			fmt.Fprintf(w, "%s\n", line)
		}
	}
	return sc.Err()
}
