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

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/stashmock/ledger-api/common"
	"github.com/stashmock/ledger-api/database"
	"github.com/stashmock/ledger-api/ledger"
	"github.com/stashmock/ledger-api/messenger"
	"github.com/stashmock/ledger-api/observability/opentelemetry"
	"github.com/stashmock/ledger-api/store/cache"
	"github.com/stashmock/ledger-api/store/memory"
)

const defaultPublishTimeout = 2 * time.Second

// openStore picks the ledger store from store.backend. The returned func
// releases its connections.
func openStore(ctx context.Context) (ledger.Store, func(), error) {
	backend := viper.GetString("store.backend")
	if backend == "" {
		backend = "memory"
		if viper.GetString("database.url") != "" {
			backend = "postgres"
		}
	}

	switch backend {
	case "memory":
		log.Warn().Msg("using the in-memory store; the ledger is lost on exit")
		return memory.New(), func() {}, nil
	case "postgres":
		pool, err := database.Connect(ctx)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("connected to PostgreSQL")

		var store ledger.Store = database.NewLedgerStore(pool)
		if size := viper.GetInt("cache.local_size"); size > 0 {
			cached, err := cache.New(store, size)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			store = cached
		}
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// openPublisher picks the notice transport from notify.backend.
func openPublisher(ctx context.Context) (messenger.Publisher, func(), error) {
	backend := viper.GetString("notify.backend")
	switch backend {
	case "", "log":
		return messenger.LogPublisher{}, func() {}, nil
	case "redis":
		rdb, err := common.ConnectRedis(ctx)
		if err != nil {
			return nil, nil, err
		}
		return messenger.NewRedisPublisher(rdb), func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("could not close redis client")
			}
		}, nil
	case "nats":
		pub, err := messenger.ConnectNATS()
		if err != nil {
			return nil, nil, err
		}
		return pub, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify backend %q", backend)
	}
}

func noticeTopics() messenger.Topics {
	return messenger.Topics{
		Notify: viper.GetString("notify.queue"),
		Tasks:  viper.GetString("notify.task_queue"),
	}
}

// setupTracing installs the otel provider; the returned func flushes
// buffered spans.
func setupTracing(ctx context.Context) (func(), error) {
	shutdown, err := opentelemetry.Setup(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not setup tracing")
		return nil, err
	}
	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("could not flush traces")
		}
	}, nil
}
