// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package messenger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stashmock/ledger-api/ledger"
)

// Publisher delivers an encoded message to a named queue or subject.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
	Close() error
}

// Topics maps notices to destinations. Recompute hints go to Tasks,
// everything else to Notify.
type Topics struct {
	Notify string
	Tasks  string
}

func (t Topics) For(n ledger.Notice) string {
	if n.Type == ledger.NoticeRecompute {
		return t.Tasks
	}
	return t.Notify
}

type Stats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Dispatcher is a ledger.Notifier that hands notices to a background
// goroutine through a bounded buffer. When the buffer is full the notice is
// dropped; a publish failure is logged and never retried.
type Dispatcher struct {
	pub     Publisher
	topics  Topics
	timeout time.Duration

	queue chan ledger.Notice
	wg    sync.WaitGroup

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool

	published uint64
	failed    uint64
	dropped   uint64
}

var _ ledger.Notifier = (*Dispatcher)(nil)

func NewDispatcher(pub Publisher, topics Topics, bufferSize int, publishTimeout time.Duration) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if publishTimeout <= 0 {
		publishTimeout = 2 * time.Second
	}
	return &Dispatcher{
		pub:     pub,
		topics:  topics,
		timeout: publishTimeout,
		queue:   make(chan ledger.Notice, bufferSize),
	}
}

// Start launches the publishing goroutine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for n := range d.queue {
			d.publish(n)
		}
	}()
}

// Notify enqueues n without blocking.
func (d *Dispatcher) Notify(_ context.Context, n ledger.Notice) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		atomic.AddUint64(&d.dropped, 1)
		return
	}

	select {
	case d.queue <- n:
	default:
		atomic.AddUint64(&d.dropped, 1)
		log.Warn().Str("NoticeType", string(n.Type)).Int64("PortfolioID", n.PortfolioID).Msg("notice buffer full; dropping notice")
	}
}

func (d *Dispatcher) publish(n ledger.Notice) {
	subLog := log.With().Str("NoticeType", string(n.Type)).Int64("PortfolioID", n.PortfolioID).Logger()

	body, err := Encode(n)
	if err != nil {
		atomic.AddUint64(&d.failed, 1)
		subLog.Error().Stack().Err(err).Msg("could not serialize notice to JSON")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.pub.Publish(ctx, d.topics.For(n), body); err != nil {
		atomic.AddUint64(&d.failed, 1)
		subLog.Warn().Err(err).Msg("could not publish notice")
		return
	}
	atomic.AddUint64(&d.published, 1)
}

// Close stops accepting notices, publishes what is already buffered and
// closes the publisher.
func (d *Dispatcher) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		d.wg.Wait()
		err = d.pub.Close()

		stats := d.Stats()
		log.Info().Uint64("Published", stats.Published).Uint64("Failed", stats.Failed).Uint64("Dropped", stats.Dropped).Msg("notice dispatcher stopped")
	})
	return err
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Published: atomic.LoadUint64(&d.published),
		Failed:    atomic.LoadUint64(&d.failed),
		Dropped:   atomic.LoadUint64(&d.dropped),
	}
}
