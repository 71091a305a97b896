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
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stashmock/ledger-api/common"
)

// bindFlag ties a viper key to an environment variable and a persistent flag
// that must already be registered on rootCmd.
func bindFlag(key, env, flag string) {
	if env != "" {
		if err := viper.BindEnv(key, env); err != nil {
			log.Panic().Err(err).Str("Key", key).Msg("could not bind environment variable")
		}
	}
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind flag")
	}
}

func init() {
	flags := rootCmd.PersistentFlags()

	// Storage
	flags.String("database-url", "", "PostgreSQL connection string; empty uses the in-memory store")
	bindFlag("database.url", "DATABASE_URL", "database-url")

	flags.String("store-backend", "", "Ledger store, one of: `memory`, `postgres` (default: postgres when database-url is set)")
	bindFlag("store.backend", "STORE_BACKEND", "store-backend")

	flags.Int("cache-local-size", 1024, "Number of user and portfolio records kept in process; 0 disables")
	bindFlag("cache.local_size", "CACHE_LOCAL_SIZE", "cache-local-size")

	flags.String("redis-url", "redis://localhost:6379/0", "Redis connection URL")
	bindFlag("redis.url", "REDIS_URL", "redis-url")

	// Notices
	flags.String("notify-backend", "log", "Notice transport, one of: `log`, `redis`, `nats`")
	bindFlag("notify.backend", "NOTIFY_BACKEND", "notify-backend")

	flags.String("notify-queue", "notify_events", "Queue (or subject) receiving audit notices")
	bindFlag("notify.queue", "NOTIFY_QUEUE", "notify-queue")

	flags.String("task-queue", "worker_tasks", "Queue (or subject) receiving recompute tasks")
	bindFlag("notify.task_queue", "TASK_QUEUE", "task-queue")

	flags.Int("notify-buffer", 1024, "Notices buffered before new ones are dropped")
	bindFlag("notify.buffer", "NOTIFY_BUFFER", "notify-buffer")

	flags.Duration("notify-publish-timeout", defaultPublishTimeout, "Timeout for publishing a single notice")
	bindFlag("notify.publish_timeout", "NOTIFY_PUBLISH_TIMEOUT", "notify-publish-timeout")

	flags.String("nats-server", "nats://127.0.0.1:4222", "NATS server URL")
	bindFlag("nats.server", "NATS_SERVER", "nats-server")

	flags.String("nats-credentials", "", "NATS credentials file")
	bindFlag("nats.credentials", "NATS_CREDENTIALS", "nats-credentials")

	flags.String("nats-subject-prefix", "ledger", "Prefix prepended to NATS subjects")
	bindFlag("nats.subject_prefix", "NATS_SUBJECT_PREFIX", "nats-subject-prefix")

	// Logging
	flags.String("log-level", "warning", "Logging level")
	bindFlag("log.level", "LOG_LEVEL", "log-level")

	flags.String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	bindFlag("log.output", "LOG_OUTPUT", "log-output")

	flags.Bool("log-pretty", false, "Use the human readable console writer")
	bindFlag("log.pretty", "LOG_PRETTY", "log-pretty")

	flags.Bool("log-report-caller", false, "Log function name that called log statement")
	bindFlag("log.report_caller", "LOG_REPORT_CALLER", "log-report-caller")

	// Tracing
	flags.String("otlp-endpoint", "", "OTLP collector endpoint; empty disables tracing")
	bindFlag("otlp.endpoint", "OTLP_ENDPOINT", "otlp-endpoint")

	flags.Bool("otlp-http", false, "Use HTTP instead of gRPC for OTLP")
	bindFlag("otlp.http", "OTLP_HTTP", "otlp-http")

	flags.Bool("otlp-insecure", false, "Disable TLS for the OTLP connection")
	bindFlag("otlp.insecure", "OTLP_INSECURE", "otlp-insecure")

	flags.Float64("otlp-sample-ratio", 1, "Fraction of root spans sampled")
	bindFlag("otlp.sample_ratio", "OTLP_SAMPLE_RATIO", "otlp-sample-ratio")

	flags.String("otlp-environment", "development", "deployment.environment resource attribute")
	bindFlag("otlp.environment", "OTLP_ENVIRONMENT", "otlp-environment")
}

var rootCmd = &cobra.Command{
	Use:     "ledger-api",
	Version: common.CurrentVersion.String(),
	Short:   "Portfolio ledger service",
	Long:    `Records deposits, withdrawals and trades against portfolios and values them from their transaction history.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
