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

	"github.com/rs/zerolog/log"
)

// LogPublisher writes envelopes to the debug log. It is the default when no
// broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, topic string, body []byte) error {
	log.Debug().Str("Topic", topic).RawJSON("Envelope", body).Msg("notice")
	return nil
}

func (LogPublisher) Close() error {
	return nil
}
