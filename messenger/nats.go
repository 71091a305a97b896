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
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// NATSPublisher publishes envelopes to JetStream. The topic is appended to
// nats.subject_prefix to form the subject.
type NATSPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
}

// ConnectNATS connects to nats.server using the optional nats.credentials
// file.
func ConnectNATS() (*NATSPublisher, error) {
	url := viper.GetString("nats.server")
	credentialsFile := viper.GetString("nats.credentials")
	log.Info().Str("NATSServer", url).Str("Credentials", credentialsFile).Msg("connecting to NATS server")

	opts := []nats.Option{nats.Name("ledger-api")}
	if credentialsFile != "" {
		opts = append(opts, nats.UserCredentials(credentialsFile))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		log.Error().Err(err).Msg("could not connect to NATS server")
		return nil, err
	}

	js, err := conn.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		log.Error().Err(err).Msg("could not create jetstream context")
		conn.Close()
		return nil, err
	}

	return &NATSPublisher{
		conn:   conn,
		js:     js,
		prefix: viper.GetString("nats.subject_prefix"),
	}, nil
}

func (p *NATSPublisher) Subject(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return strings.TrimSuffix(p.prefix, ".") + "." + topic
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, body []byte) error {
	_, err := p.js.Publish(p.Subject(topic), body, nats.Context(ctx))
	return err
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
