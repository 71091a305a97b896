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

import "context"

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ListOptions pages through a ledger newest first. BeforeID of 0 means no
// upper bound.
type ListOptions struct {
	Limit    int
	BeforeID int64
}

// ClampLimit maps a requested page size onto the allowed range.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

// Store persists users, portfolios and their append-only transaction logs.
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID string) (*User, error)

	// CreatePortfolio assigns p.ID and p.CreatedAt
	CreatePortfolio(ctx context.Context, p *Portfolio) error
	GetPortfolio(ctx context.Context, portfolioID int64) (*Portfolio, error)

	// History returns every transaction of the portfolio in ascending id order
	History(ctx context.Context, portfolioID int64) ([]*Transaction, error)

	// List returns transactions newest first
	List(ctx context.Context, portfolioID int64, opts ListOptions) ([]*Transaction, error)

	// WithPortfolio runs fn in a scope that is serialized against every other
	// scope on the same portfolio. Appends made by fn become visible only if
	// fn returns nil.
	WithPortfolio(ctx context.Context, portfolioID int64, fn func(context.Context, LedgerTx) error) error
}

// LedgerTx is the view of one portfolio's ledger inside WithPortfolio.
type LedgerTx interface {
	History(ctx context.Context) ([]*Transaction, error)

	// Append stores e and returns the record with an id greater than any
	// previously assigned to the portfolio
	Append(ctx context.Context, e Entry) (*Transaction, error)
}
