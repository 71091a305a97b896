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
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stashmock/ledger-api/common"
	"github.com/stashmock/ledger-api/ledger"
	"github.com/stashmock/ledger-api/worker"
)

func init() {
	workerCmd.Flags().Duration("snapshot-ttl", time.Hour, "How long a valuation snapshot stays in redis")
	if err := viper.BindPFlag("worker.snapshot_ttl", workerCmd.Flags().Lookup("snapshot-ttl")); err != nil {
		log.Panic().Err(err).Msg("could not bind worker.snapshot_ttl")
	}

	workerCmd.Flags().Duration("depth-interval", time.Minute, "How often queue depths are logged; 0 disables")
	if err := viper.BindPFlag("worker.depth_interval", workerCmd.Flags().Lookup("depth-interval")); err != nil {
		log.Panic().Err(err).Msg("could not bind worker.depth_interval")
	}

	rootCmd.AddCommand(workerCmd)
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume notices and refresh valuation snapshots",
	Long:  `Pops audit notices and recompute tasks from the redis queues filled by "serve" with notify-backend=redis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		closeLog := common.SetupLogging()
		defer closeLog()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		closeTracing, err := setupTracing(ctx)
		if err != nil {
			return err
		}
		defer closeTracing()

		store, closeStore, err := openStore(ctx)
		if err != nil {
			log.Error().Err(err).Msg("could not open ledger store")
			return err
		}
		defer closeStore()

		rdb, err := common.ConnectRedis(ctx)
		if err != nil {
			return err
		}
		defer rdb.Close()

		w := worker.New(
			worker.NewRedisQueue(rdb),
			worker.NewRedisSnapshots(rdb, viper.GetDuration("worker.snapshot_ttl")),
			ledger.New(store),
			worker.Config{
				NotifyQueue:   viper.GetString("notify.queue"),
				TaskQueue:     viper.GetString("notify.task_queue"),
				DepthInterval: viper.GetDuration("worker.depth_interval"),
			},
		)

		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
