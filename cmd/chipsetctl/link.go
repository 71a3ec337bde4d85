package main

import (
	"context"
	"fmt"
	"time"

	"chipset-go/protocol"
	"chipset-go/services/telemetry"
	"chipset-go/types"

	"github.com/golang/glog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Link is the host end of the board's I²C host link.
type Link struct {
	c     conn.Conn
	close func() error
}

// openLink opens the bus named by --bus and addresses the board at --addr.
func openLink() (*Link, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	b, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	return &Link{c: &i2c.Dev{Bus: b, Addr: devAddr}, close: b.Close}, nil
}

func (l *Link) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

// ReadPacket reads and verifies one telemetry packet.
func (l *Link) ReadPacket() (protocol.PacketOut, error) {
	var (
		buf [protocol.PacketOutSize]byte
		p   protocol.PacketOut
	)
	if err := l.c.Tx(nil, buf[:]); err != nil {
		return p, fmt.Errorf("read telemetry: %w", err)
	}
	if err := p.Deserialize(buf[:], protocol.CRC32); err != nil {
		return p, err
	}
	glog.V(2).Infof("RCV % x", buf[:])
	return p, nil
}

func (l *Link) SetTime(at time.Time) error {
	var buf [protocol.CommandSize]byte
	c := protocol.SetTime{Timestamp: at}
	if err := c.Marshal(buf[:], protocol.CRC32); err != nil {
		return err
	}
	return l.send(buf[:])
}

func (l *Link) Shutdown(delay time.Duration) error {
	var buf [protocol.CommandSize]byte
	c := protocol.Shutdown{Delay: delay}
	if err := c.Marshal(buf[:], protocol.CRC32); err != nil {
		return err
	}
	return l.send(buf[:])
}

func (l *Link) send(frame []byte) error {
	glog.V(2).Infof("SND % x", frame)
	if err := l.c.Tx(frame, nil); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// poll reads a sample every interval until count samples were delivered
// (count <= 0 means forever) or ctx ends. Bad packets are logged and skipped.
func (l *Link) poll(ctx context.Context, interval time.Duration, count int, fn func(types.Sample) error) error {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for n := 0; count <= 0 || n < count; {
		p, err := l.ReadPacket()
		if err != nil {
			glog.Warningf("poll: %v", err)
		} else {
			if err := fn(telemetry.NewSample(p, time.Now().UnixMilli())); err != nil {
				return err
			}
			n++
			if count > 0 && n >= count {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}
