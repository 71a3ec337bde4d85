package main

import (
	"fmt"
	"io"
	"time"

	"chipset-go/protocol"
	"chipset-go/types"

	"github.com/spf13/cobra"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Read one telemetry packet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, err := openLink()
		if err != nil {
			return err
		}
		defer l.Close()
		p, err := l.ReadPacket()
		if err != nil {
			return err
		}
		printPacket(cmd.OutOrStdout(), p)
		return nil
	},
}

func init() { rootCmd.AddCommand(telemetryCmd) }

func microToUnit(v uint32) string { return fmt.Sprintf("%d.%06d", v/1_000_000, v%1_000_000) }

func printPacket(w io.Writer, p protocol.PacketOut) {
	pct := p.Ballast.Percent()
	s := types.Sample{DieTempMicroK: p.TemperatureUK}
	fmt.Fprintf(w, "ballast      %d.%02d %%\n", pct/100, pct%100)
	fmt.Fprintf(w, "reg5         %s V\n", microToUnit(p.Reg5MicroV))
	fmt.Fprintf(w, "regpi        %s V\n", microToUnit(p.RegPiMicroV))
	fmt.Fprintf(w, "die temp     %.1f °C\n", float64(s.DieTempMilliC())/1000)
	fmt.Fprintf(w, "status       %s\n", p.Status)
	if ts := p.Timestamp(); !ts.IsZero() {
		fmt.Fprintf(w, "board time   %s\n", ts.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintf(w, "board time   unset\n")
	}
}
