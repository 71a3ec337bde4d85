// Command chipsetctl runs on the host computer and talks to the power-supply
// board: it reads telemetry over the I²C host link, sets the board clock,
// requests shutdown, records or publishes samples and tails the debug UART.
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"
)

func main() {
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	err := rootCmd.Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
