package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"chipset-go/types"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	recordOut      string
	recordInterval time.Duration
	recordCount    int
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record telemetry as a CBOR sequence",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := os.OpenFile(recordOut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()

		l, err := openLink()
		if err != nil {
			return err
		}
		defer l.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		n, err := record(ctx, l, f, recordInterval, recordCount)
		glog.Infof("recorded %d samples to %s", n, recordOut)
		if err == context.Canceled {
			return nil
		}
		return err
	},
}

func init() {
	f := recordCmd.Flags()
	f.StringVar(&recordOut, "out", "telemetry.cbor", "output file (appended)")
	f.DurationVar(&recordInterval, "interval", time.Second, "sampling interval")
	f.IntVar(&recordCount, "count", 0, "samples to take, 0 for unbounded")
	rootCmd.AddCommand(recordCmd)
}

// record appends each sample to w as one CBOR data item.
func record(ctx context.Context, l *Link, w io.Writer, interval time.Duration, count int) (int, error) {
	enc := cbor.NewEncoder(w)
	n := 0
	err := l.poll(ctx, interval, count, func(s types.Sample) error {
		if err := enc.Encode(s); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// readRecording decodes every sample in a recording.
func readRecording(r io.Reader) ([]types.Sample, error) {
	dec := cbor.NewDecoder(r)
	var out []types.Sample
	for {
		var s types.Sample
		if err := dec.Decode(&s); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, s)
	}
}
