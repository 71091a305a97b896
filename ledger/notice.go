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

package ledger

import (
	"context"
	"time"
)

type NoticeType string

const (
	NoticeUserCreated        NoticeType = "user.created"
	NoticePortfolioCreated   NoticeType = "portfolio.created"
	NoticeTransactionCreated NoticeType = "transaction.created"
	NoticeRecompute          NoticeType = "portfolio.recompute"
)

// Notice is a best effort event emitted after a successful change.
type Notice struct {
	Type          NoticeType `json:"type"`
	UserID        string     `json:"user_id,omitempty"`
	Email         string     `json:"email,omitempty"`
	PortfolioID   int64      `json:"portfolio_id,omitempty"`
	Name          string     `json:"name,omitempty"`
	TransactionID int64      `json:"tx_id,omitempty"`
	Kind          Kind       `json:"kind,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// Notifier receives notices. Notify must return promptly and must not fail
// the caller; delivery is entirely the notifier's concern.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, Notice) {}
