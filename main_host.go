//go:build !rp2040

package main

import (
	"context"
	"time"

	"chipset-go/services/hal"
)

// boardName selects the embedded board configuration
// (-ldflags "-X main.boardName=...").
var boardName = "sim"

func platformInit() {}

// platformStart attaches a simulated host that polls the board once a second.
func platformStart(ctx context.Context, b *hal.Board) {
	go b.Sim().RunHost(ctx, time.Second, time.Now, nil)
}
