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

package worker_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/stashmock/ledger-api/ledger"
	"github.com/stashmock/ledger-api/messenger"
	"github.com/stashmock/ledger-api/store/memory"
	"github.com/stashmock/ledger-api/worker"
)

const (
	notifyQueue = "notify_events"
	taskQueue   = "worker_tasks"
)

type message struct {
	queue string
	body  []byte
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []message
	depth    map[string]int64
}

func (q *fakeQueue) push(queue string, body []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, message{queue: queue, body: body})
}

func (q *fakeQueue) Pop(ctx context.Context, _ time.Duration, _ ...string) (string, []byte, error) {
	q.mu.Lock()
	if len(q.messages) > 0 {
		m := q.messages[0]
		q.messages = q.messages[1:]
		q.mu.Unlock()
		return m.queue, m.body, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return "", nil, worker.ErrEmpty
	}
}

func (q *fakeQueue) Depth(_ context.Context, queue string) (int64, error) {
	d, ok := q.depth[queue]
	if !ok {
		return 0, errors.New("no such queue")
	}
	return d, nil
}

type fakeSnapshots struct {
	mu    sync.Mutex
	saved map[int64]*worker.Snapshot
	err   error
}

func (f *fakeSnapshots) Save(_ context.Context, snap *worker.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved[snap.PortfolioID] = snap
	return nil
}

func (f *fakeSnapshots) Load(_ context.Context, portfolioID int64) (*worker.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.saved[portfolioID]
	if !ok {
		return nil, redis.Nil
	}
	return snap, nil
}

// fakeRedis keeps string values in a map; every other command is left unset.
type fakeRedis struct {
	redis.Cmdable
	values map[string][]byte
	ttls   map[string]time.Duration
	popped []string
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = value.([]byte)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) BRPop(_ context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	if len(f.popped) == 0 {
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
	val := f.popped[0]
	f.popped = f.popped[1:]
	return redis.NewStringSliceResult([]string{keys[0], val}, nil)
}

func (f *fakeRedis) LLen(_ context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(int64(len(f.popped)), nil)
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func encode(n ledger.Notice) []byte {
	body, err := messenger.Encode(n)
	Expect(err).To(BeNil())
	return body
}

var _ = Describe("Worker", func() {
	var (
		ctx       context.Context
		led       *ledger.Ledger
		queue     *fakeQueue
		snapshots *fakeSnapshots
		w         *worker.Worker
		pid       int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		led = ledger.New(memory.New())
		queue = &fakeQueue{depth: map[string]int64{notifyQueue: 3}}
		snapshots = &fakeSnapshots{saved: make(map[int64]*worker.Snapshot)}
		w = worker.New(queue, snapshots, led, worker.Config{NotifyQueue: notifyQueue, TaskQueue: taskQueue})

		_, err := led.CreateUser(ctx, "u-1", "u1@example.com")
		Expect(err).To(BeNil())
		p, err := led.CreatePortfolio(ctx, "u-1", "core", "")
		Expect(err).To(BeNil())
		pid = p.ID

		for _, f := range []struct {
			kind ledger.Kind
			f    ledger.Fields
		}{
			{ledger.KindDeposit, ledger.Fields{Amount: dp("100")}},
			{ledger.KindBuy, ledger.Fields{Symbol: "ABC", Quantity: dp("10"), Price: dp("5")}},
			{ledger.KindSell, ledger.Fields{Symbol: "ABC", Quantity: dp("4"), Price: dp("6")}},
		} {
			e, err := ledger.NewEntry(f.kind, f.f)
			Expect(err).To(BeNil())
			_, err = led.SubmitTransaction(ctx, pid, e)
			Expect(err).To(BeNil())
		}
	})

	It("refreshes the snapshot on a recompute task", func() {
		n := ledger.Notice{Type: ledger.NoticeRecompute, PortfolioID: pid, TransactionID: 3}
		Expect(w.Handle(ctx, taskQueue, encode(n))).To(Succeed())

		snap := snapshots.saved[pid]
		Expect(snap).ToNot(BeNil())
		Expect(snap.AsOfID).To(Equal(int64(3)))
		Expect(snap.Cash).To(Equal("74.00"))
		Expect(snap.TotalValue).To(Equal("110.00"))
		Expect(snap.Positions).To(HaveLen(1))
		Expect(snap.Positions[0]).To(Equal(worker.PositionSnapshot{
			Symbol:      "ABC",
			Quantity:    "6.000000",
			LastPrice:   "6.00",
			MarketValue: "36.00",
		}))
		Expect(w.Stats().Recomputed).To(Equal(uint64(1)))
	})

	It("counts audit notices as delivered", func() {
		n := ledger.Notice{Type: ledger.NoticeTransactionCreated, PortfolioID: pid, TransactionID: 1, Kind: ledger.KindDeposit}
		Expect(w.Handle(ctx, notifyQueue, encode(n))).To(Succeed())
		Expect(w.Stats().Delivered).To(Equal(uint64(1)))
		Expect(snapshots.saved).To(BeEmpty())
	})

	It("rejects unknown tasks", func() {
		n := ledger.Notice{Type: ledger.NoticeUserCreated, UserID: "u-1"}
		Expect(w.Handle(ctx, taskQueue, encode(n))).ToNot(Succeed())
	})

	It("rejects messages from unexpected queues", func() {
		n := ledger.Notice{Type: ledger.NoticeTransactionCreated, PortfolioID: pid}
		Expect(w.Handle(ctx, "elsewhere", encode(n))).ToNot(Succeed())
	})

	It("rejects undecodable bodies", func() {
		Expect(w.Handle(ctx, notifyQueue, []byte("{"))).ToNot(Succeed())
	})

	It("surfaces recompute failures for unknown portfolios", func() {
		n := ledger.Notice{Type: ledger.NoticeRecompute, PortfolioID: 999}
		err := w.Handle(ctx, taskQueue, encode(n))
		Expect(errors.Is(err, ledger.ErrPortfolioNotFound)).To(BeTrue())
	})

	It("surfaces snapshot save failures", func() {
		snapshots.err = errors.New("redis down")
		n := ledger.Notice{Type: ledger.NoticeRecompute, PortfolioID: pid}
		Expect(w.Handle(ctx, taskQueue, encode(n))).ToNot(Succeed())
		Expect(w.Stats().Recomputed).To(Equal(uint64(0)))
	})

	It("drains both queues until cancelled", func() {
		queue.push(notifyQueue, encode(ledger.Notice{Type: ledger.NoticeTransactionCreated, PortfolioID: pid}))
		queue.push(taskQueue, encode(ledger.Notice{Type: ledger.NoticeRecompute, PortfolioID: pid}))
		queue.push(notifyQueue, []byte("garbage"))

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- w.Run(runCtx) }()

		Eventually(func() worker.Stats { return w.Stats() }).Should(Equal(worker.Stats{
			Delivered:  1,
			Recomputed: 1,
			Failed:     1,
		}))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("reports queue depth without failing on errors", func() {
		Expect(func() { w.ReportDepth(ctx) }).ToNot(Panic())
	})
})

var _ = Describe("Redis snapshots", func() {
	It("stores compressed snapshots under the portfolio key", func() {
		rdb := newFakeRedis()
		store := worker.NewRedisSnapshots(rdb, time.Hour)

		snap := &worker.Snapshot{
			PortfolioID: 7,
			AsOfID:      12,
			Cash:        "54.00",
			Positions:   []worker.PositionSnapshot{{Symbol: "ABC", Quantity: "6.000000", LastPrice: "6.00", MarketValue: "36.00"}},
			TotalValue:  "90.00",
			ComputedAt:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}
		Expect(store.Save(context.Background(), snap)).To(Succeed())
		Expect(rdb.values).To(HaveKey("snapshot:portfolio:7"))
		Expect(rdb.ttls["snapshot:portfolio:7"]).To(Equal(time.Hour))

		loaded, err := store.Load(context.Background(), 7)
		Expect(err).To(BeNil())
		Expect(loaded).To(Equal(snap))
	})

	It("passes through a missing key", func() {
		store := worker.NewRedisSnapshots(newFakeRedis(), time.Hour)
		_, err := store.Load(context.Background(), 1)
		Expect(errors.Is(err, redis.Nil)).To(BeTrue())
	})
})

var _ = Describe("Redis queue", func() {
	It("pops the value and its source list", func() {
		rdb := newFakeRedis()
		rdb.popped = []string{`{"id":"a"}`}
		q := worker.NewRedisQueue(rdb)

		depth, err := q.Depth(context.Background(), notifyQueue)
		Expect(err).To(BeNil())
		Expect(depth).To(Equal(int64(1)))

		queue, body, err := q.Pop(context.Background(), time.Second, notifyQueue, taskQueue)
		Expect(err).To(BeNil())
		Expect(queue).To(Equal(notifyQueue))
		Expect(string(body)).To(Equal(`{"id":"a"}`))

		_, _, err = q.Pop(context.Background(), time.Second, notifyQueue, taskQueue)
		Expect(err).To(MatchError(worker.ErrEmpty))
	})
})
