//go:build rp2040

package main

import (
	"context"
	"time"

	"chipset-go/services/hal"
)

var boardName = "pico"

// platformInit lets USB CDC enumerate before anything prints.
func platformInit() { time.Sleep(2 * time.Second) }

func platformStart(context.Context, *hal.Board) {}
