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
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/zeebo/blake3"

	"github.com/stashmock/ledger-api/ledger"
)

// Envelope is the wire form of a notice on every backend.
type Envelope struct {
	ID   string            `json:"id"`
	Type ledger.NoticeType `json:"type"`
	Data ledger.Notice     `json:"data"`
}

// NoticeID derives a stable id from the identifying fields of n so that a
// consumer can drop redeliveries.
func NoticeID(n ledger.Notice) string {
	h := blake3.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%s", n.Type, n.UserID, n.PortfolioID, n.TransactionID, n.OccurredAt.UTC().Format(time.RFC3339Nano))
	return hex.EncodeToString(h.Sum(nil))
}

func Encode(n ledger.Notice) ([]byte, error) {
	return json.Marshal(Envelope{
		ID:   NoticeID(n),
		Type: n.Type,
		Data: n,
	})
}

func Decode(body []byte) (*Envelope, error) {
	env := Envelope{}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, fmt.Errorf("envelope %q has no type", env.ID)
	}
	return &env, nil
}
