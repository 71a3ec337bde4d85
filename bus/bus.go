// Package bus is the in-process publish/subscribe fabric that fans board
// events (state changes, telemetry) out to local consumers such as the
// console. Publishing never blocks: a full subscriber queue drops its oldest
// message.
package bus

import (
	"strings"
	"sync"
)

// Topic is a path of levels. In subscription patterns "+" matches exactly one
// level and "#", which must be last, matches any remainder.
type Topic []string

func (t Topic) String() string { return strings.Join(t, "/") }

// Match reports whether t is covered by pattern.
func (t Topic) Match(pattern Topic) bool {
	for i, p := range pattern {
		if p == "#" {
			return i == len(pattern)-1
		}
		if i >= len(t) {
			return false
		}
		if p != "+" && p != t[i] {
			return false
		}
	}
	return len(t) == len(pattern)
}

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	pattern Topic
	ch      chan *Message
	bus     *Bus
}

func (s *Subscription) Topic() Topic             { return s.pattern }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.bus.Unsubscribe(s) }

type Bus struct {
	mu       sync.Mutex
	subs     []*Subscription
	retained map[string]*Message
	qLen     int
}

// NewBus creates a bus whose subscriptions queue up to queueLen messages.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{retained: make(map[string]*Message), qLen: queueLen}
}

// Subscribe registers pattern and immediately queues any matching retained
// messages.
func (b *Bus) Subscribe(pattern Topic) *Subscription {
	sub := &Subscription{pattern: pattern, ch: make(chan *Message, b.qLen), bus: b}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	for _, m := range b.retained {
		if m.Topic.Match(pattern) {
			deliver(sub, m)
		}
	}
	return sub
}

// Publish delivers msg to every matching subscription. A retained message
// replaces the previous one on its topic; a retained nil payload clears it.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg.Retained {
		key := msg.Topic.String()
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
	}
	for _, s := range b.subs {
		if msg.Topic.Match(s.pattern) {
			deliver(s, msg)
		}
	}
}

// Unsubscribe removes sub and closes its channel. Repeat calls are no-ops.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// caller holds b.mu, which also serialises every send on sub.ch
func deliver(sub *Subscription, m *Message) {
	select {
	case sub.ch <- m:
	default:
		<-sub.ch
		sub.ch <- m
	}
}
