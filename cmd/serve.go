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
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stashmock/ledger-api/common"
	"github.com/stashmock/ledger-api/handler"
	"github.com/stashmock/ledger-api/ledger"
	"github.com/stashmock/ledger-api/messenger"
	"github.com/stashmock/ledger-api/router"
)

func init() {
	if err := viper.BindEnv("server.port", "PORT"); err != nil {
		log.Panic().Err(err).Msg("could not bind server.port")
	}
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	if err := viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port")); err != nil {
		log.Panic().Err(err).Msg("could not bind server.port")
	}

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger HTTP server",
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

		pub, closePub, err := openPublisher(ctx)
		if err != nil {
			log.Error().Err(err).Msg("could not open notice publisher")
			return err
		}
		defer closePub()

		dispatcher := messenger.NewDispatcher(pub, noticeTopics(), viper.GetInt("notify.buffer"), viper.GetDuration("notify.publish_timeout"))
		dispatcher.Start()
		defer func() {
			if err := dispatcher.Close(); err != nil {
				log.Warn().Err(err).Msg("could not close notice publisher")
			}
		}()

		app := router.New(handler.New(ledger.New(store, ledger.WithNotifier(dispatcher)), handler.WithNoticeStats(dispatcher)))

		go func() {
			<-ctx.Done()
			log.Info().Msg("shutting down")
			if err := app.Shutdown(); err != nil {
				log.Error().Err(err).Msg("server shutdown failed")
			}
		}()

		addr := ":" + viper.GetString("server.port")
		log.Info().Str("Addr", addr).Msg("starting server")
		return app.Listen(addr)
	},
}
