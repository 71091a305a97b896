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

package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"github.com/stashmock/ledger-api/common"
	"github.com/stashmock/ledger-api/ledger"
)

type PositionSnapshot struct {
	Symbol      string `json:"symbol"`
	Quantity    string `json:"quantity"`
	LastPrice   string `json:"last_price"`
	MarketValue string `json:"market_value"`
}

// Snapshot is a cached valuation. It is derived data: the ledger remains the
// only source of truth and a snapshot may lag it.
type Snapshot struct {
	PortfolioID int64              `json:"portfolio_id"`
	AsOfID      int64              `json:"as_of_id"`
	Cash        string             `json:"cash"`
	Positions   []PositionSnapshot `json:"positions"`
	TotalValue  string             `json:"total_value"`
	ComputedAt  time.Time          `json:"computed_at"`
}

func NewSnapshot(s *ledger.Summary, computedAt time.Time) *Snapshot {
	snap := &Snapshot{
		PortfolioID: s.Portfolio.ID,
		AsOfID:      s.AsOfID,
		Cash:        ledger.FormatMoney(s.Cash),
		Positions:   make([]PositionSnapshot, 0, len(s.Positions)),
		TotalValue:  ledger.FormatMoney(s.TotalValue),
		ComputedAt:  computedAt.UTC(),
	}
	for _, pos := range s.Positions {
		snap.Positions = append(snap.Positions, PositionSnapshot{
			Symbol:      pos.Symbol,
			Quantity:    ledger.FormatQuantity(pos.Quantity),
			LastPrice:   ledger.FormatMoney(pos.LastTradePrice),
			MarketValue: ledger.FormatMoney(pos.MarketValue),
		})
	}
	return snap
}

type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, portfolioID int64) (*Snapshot, error)
}

func SnapshotKey(portfolioID int64) string {
	return fmt.Sprintf("snapshot:portfolio:%d", portfolioID)
}

// RedisSnapshots stores lz4 compressed JSON snapshots with a TTL.
type RedisSnapshots struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSnapshots(rdb redis.Cmdable, ttl time.Duration) *RedisSnapshots {
	return &RedisSnapshots{rdb: rdb, ttl: ttl}
}

func (r *RedisSnapshots) Save(ctx context.Context, snap *Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	packed, err := common.Compress(body)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, SnapshotKey(snap.PortfolioID), packed, r.ttl).Err()
}

func (r *RedisSnapshots) Load(ctx context.Context, portfolioID int64) (*Snapshot, error) {
	packed, err := r.rdb.Get(ctx, SnapshotKey(portfolioID)).Bytes()
	if err != nil {
		return nil, err
	}
	body, err := common.Decompress(packed)
	if err != nil {
		return nil, err
	}
	snap := Snapshot{}
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
