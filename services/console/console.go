// Package console mirrors board events onto the serial console, one JSON
// object per line, so a bench operator can follow sequencing and telemetry
// without a host attached to the I²C link.
package console

import (
	"context"
	"encoding/json"
	"io"

	"chipset-go/bus"
	"chipset-go/types"
)

var (
	TopicState  = bus.Topic{"power", "state"}
	TopicSample = bus.Topic{"telemetry", "sample"}
)

// StateChange is the payload on TopicState.
type StateChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Line is one console record.
type Line struct {
	Event  string        `json:"event"`
	State  *StateChange  `json:"state,omitempty"`
	Sample *types.Sample `json:"sample,omitempty"`
}

// PublishState announces a sequencer transition. The latest one is retained.
func PublishState(b *bus.Bus, from, to string) {
	b.Publish(&bus.Message{Topic: TopicState, Payload: StateChange{From: from, To: to}, Retained: true})
}

func PublishSample(b *bus.Bus, s types.Sample) {
	b.Publish(&bus.Message{Topic: TopicSample, Payload: s})
}

type Service struct {
	b   *bus.Bus
	enc *json.Encoder

	written, failed int
}

func New(b *bus.Bus, w io.Writer) *Service {
	return &Service{b: b, enc: json.NewEncoder(w)}
}

// Run writes events until ctx ends. Write failures drop the line.
func (s *Service) Run(ctx context.Context) error {
	states := s.b.Subscribe(TopicState)
	defer states.Unsubscribe()
	samples := s.b.Subscribe(TopicSample)
	defer samples.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-states.Channel():
			if !ok {
				return nil
			}
			if sc, ok := m.Payload.(StateChange); ok {
				s.write(Line{Event: "state", State: &sc})
			}
		case m, ok := <-samples.Channel():
			if !ok {
				return nil
			}
			if smp, ok := m.Payload.(types.Sample); ok {
				s.write(Line{Event: "sample", Sample: &smp})
			}
		}
	}
}

func (s *Service) write(l Line) {
	if err := s.enc.Encode(l); err != nil {
		s.failed++
		if s.failed == 1 || s.failed%100 == 0 {
			println("[console] write:", err.Error())
		}
		return
	}
	s.written++
}
