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

// Package worker consumes the notice queues. Audit notices are logged as
// delivered; recompute tasks refresh the cached valuation of a portfolio.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/stashmock/ledger-api/ledger"
	"github.com/stashmock/ledger-api/messenger"
)

// Summarizer is the part of the ledger the worker needs.
type Summarizer interface {
	GetSummary(ctx context.Context, portfolioID int64) (*ledger.Summary, error)
}

type Config struct {
	NotifyQueue   string
	TaskQueue     string
	PopTimeout    time.Duration
	DepthInterval time.Duration
}

type Stats struct {
	Delivered  uint64
	Recomputed uint64
	Failed     uint64
}

type Worker struct {
	queue     Queue
	snapshots SnapshotStore
	summaries Summarizer
	cfg       Config
	now       func() time.Time

	delivered  uint64
	recomputed uint64
	failed     uint64
}

func New(queue Queue, snapshots SnapshotStore, summaries Summarizer, cfg Config) *Worker {
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 5 * time.Second
	}
	return &Worker{
		queue:     queue,
		snapshots: snapshots,
		summaries: summaries,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run pops from both queues until ctx is cancelled. Handler failures are
// logged and counted; the message is not requeued.
func (w *Worker) Run(ctx context.Context) error {
	if w.cfg.DepthInterval > 0 {
		scheduler := gocron.NewScheduler(time.UTC)
		if _, err := scheduler.Every(w.cfg.DepthInterval).Do(w.ReportDepth, ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not schedule queue depth report")
			return err
		}
		scheduler.StartAsync()
		defer scheduler.Stop()
	}

	log.Info().Str("NotifyQueue", w.cfg.NotifyQueue).Str("TaskQueue", w.cfg.TaskQueue).Msg("worker started")

	for {
		if ctx.Err() != nil {
			stats := w.Stats()
			log.Info().Uint64("Delivered", stats.Delivered).Uint64("Recomputed", stats.Recomputed).Uint64("Failed", stats.Failed).Msg("worker stopped")
			return nil
		}

		queue, body, err := w.queue.Pop(ctx, w.cfg.PopTimeout, w.cfg.NotifyQueue, w.cfg.TaskQueue)
		if err != nil {
			if errors.Is(err, ErrEmpty) || ctx.Err() != nil {
				continue
			}
			log.Error().Stack().Err(err).Msg("could not pop from queue")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		if err := w.Handle(ctx, queue, body); err != nil {
			atomic.AddUint64(&w.failed, 1)
			log.Warn().Err(err).Str("Queue", queue).Msg("message handling failed")
		}
	}
}

// Handle processes one message popped from queue.
func (w *Worker) Handle(ctx context.Context, queue string, body []byte) error {
	env, err := messenger.Decode(body)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	switch queue {
	case w.cfg.NotifyQueue:
		w.deliver(env)
		return nil
	case w.cfg.TaskQueue:
		return w.runTask(ctx, env)
	default:
		return fmt.Errorf("unexpected queue %q", queue)
	}
}

func (w *Worker) deliver(env *messenger.Envelope) {
	n := env.Data
	log.Info().
		Str("NoticeID", env.ID).
		Str("NoticeType", string(env.Type)).
		Str("UserID", n.UserID).
		Int64("PortfolioID", n.PortfolioID).
		Int64("TransactionID", n.TransactionID).
		Str("Kind", string(n.Kind)).
		Time("OccurredAt", n.OccurredAt).
		Msg("notice delivered")
	atomic.AddUint64(&w.delivered, 1)
}

func (w *Worker) runTask(ctx context.Context, env *messenger.Envelope) error {
	if env.Type != ledger.NoticeRecompute {
		return fmt.Errorf("unknown task %q", env.Type)
	}

	portfolioID := env.Data.PortfolioID
	summary, err := w.summaries.GetSummary(ctx, portfolioID)
	if err != nil {
		return fmt.Errorf("recompute portfolio %d: %w", portfolioID, err)
	}

	snap := NewSnapshot(summary, w.now())
	if err := w.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot for portfolio %d: %w", portfolioID, err)
	}

	log.Debug().Int64("PortfolioID", portfolioID).Int64("AsOfID", snap.AsOfID).Str("TotalValue", snap.TotalValue).Msg("snapshot refreshed")
	atomic.AddUint64(&w.recomputed, 1)
	return nil
}

// ReportDepth logs the backlog of both queues.
func (w *Worker) ReportDepth(ctx context.Context) {
	for _, queue := range []string{w.cfg.NotifyQueue, w.cfg.TaskQueue} {
		depth, err := w.queue.Depth(ctx, queue)
		if err != nil {
			log.Warn().Err(err).Str("Queue", queue).Msg("could not read queue depth")
			continue
		}
		log.Info().Str("Queue", queue).Int64("Depth", depth).Msg("queue depth")
	}
}

func (w *Worker) Stats() Stats {
	return Stats{
		Delivered:  atomic.LoadUint64(&w.delivered),
		Recomputed: atomic.LoadUint64(&w.recomputed),
		Failed:     atomic.LoadUint64(&w.failed),
	}
}
