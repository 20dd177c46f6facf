// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/builderbee/pixeltrack/internal/logging"
)

const (
	dispatchQueueSize = 256
	maxSendAttempts   = 3
	sendTimeout       = 30 * time.Second
	retryBackoff      = 5 * time.Second
)

// Dispatcher delivers mail asynchronously on a worker goroutine. Enqueue
// never blocks the caller: when the queue is full the message is dropped
// and logged. Each message gets a bounded number of delivery attempts.
type Dispatcher struct {
	mailer Mailer
	queue  chan *Message

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewDispatcher creates a dispatcher on top of mailer and starts its
// worker.
func NewDispatcher(mailer Mailer) *Dispatcher {
	d := &Dispatcher{
		mailer: mailer,
		queue:  make(chan *Message, dispatchQueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue queues a message for delivery. Returns false when the message
// was dropped because the queue is full or the dispatcher is stopped.
func (d *Dispatcher) Enqueue(msg *Message) bool {
	select {
	case <-d.stopCh:
		logging.Warn().Str("to", msg.To).Msg("Mail dropped, dispatcher stopped")
		return false
	default:
	}

	select {
	case d.queue <- msg:
		return true
	default:
		logging.Warn().Str("to", msg.To).Str("subject", msg.Subject).
			Msg("Mail dropped, dispatch queue full")
		return false
	}
}

// Stop drains the queue and waits for in-flight deliveries to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
		close(d.queue)
	})
	<-d.doneCh
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)
	for msg := range d.queue {
		d.deliver(msg)
	}
}

// deliver attempts delivery with bounded retries on transient failures.
func (d *Dispatcher) deliver(msg *Message) {
	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.mailer.Send(ctx, msg)
		cancel()

		if err == nil {
			logging.Debug().Str("to", msg.To).Str("subject", msg.Subject).
				Int("attempt", attempt).Msg("Mail delivered")
			return
		}
		lastErr = err
		if !isTransientError(err) {
			break
		}
		if attempt < maxSendAttempts {
			time.Sleep(retryBackoff)
		}
	}

	logging.Error().Err(lastErr).Str("to", msg.To).Str("subject", msg.Subject).
		Msg("Mail delivery failed")
}
