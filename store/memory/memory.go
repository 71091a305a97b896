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

// Package memory is an in-process implementation of ledger.Store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stashmock/ledger-api/ledger"
)

// book is the ledger of one portfolio. commit serializes WithPortfolio
// scopes; mu guards the committed transactions for readers.
type book struct {
	portfolio ledger.Portfolio
	commit    sync.Mutex

	mu  sync.RWMutex
	log []*ledger.Transaction
}

func (b *book) snapshot() []*ledger.Transaction {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*ledger.Transaction, len(b.log))
	copy(out, b.log)
	return out
}

type Store struct {
	mu     sync.RWMutex
	users  map[string]*ledger.User
	emails map[string]string
	books  map[int64]*book

	lastPortfolioID int64
	lastTrxID       int64
	idMu            sync.Mutex

	now func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:  make(map[string]*ledger.User),
		emails: make(map[string]string),
		books:  make(map[int64]*book),
		now:    time.Now,
	}
}

func (s *Store) CreateUser(_ context.Context, user *ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return ledger.ErrUserExists
	}
	email := strings.ToLower(user.Email)
	if _, ok := s.emails[email]; ok {
		return ledger.ErrConflict
	}

	u := *user
	s.users[u.ID] = &u
	s.emails[email] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, userID string) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, ledger.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreatePortfolio(_ context.Context, p *ledger.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.UserID]; !ok {
		return ledger.ErrUserNotFound
	}

	s.lastPortfolioID++
	p.ID = s.lastPortfolioID
	p.CreatedAt = s.now().UTC()
	s.books[p.ID] = &book{portfolio: *p}
	return nil
}

func (s *Store) book(portfolioID int64) (*book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[portfolioID]
	if !ok {
		return nil, ledger.ErrPortfolioNotFound
	}
	return b, nil
}

func (s *Store) GetPortfolio(_ context.Context, portfolioID int64) (*ledger.Portfolio, error) {
	b, err := s.book(portfolioID)
	if err != nil {
		return nil, err
	}
	p := b.portfolio
	return &p, nil
}

func (s *Store) History(_ context.Context, portfolioID int64) ([]*ledger.Transaction, error) {
	b, err := s.book(portfolioID)
	if err != nil {
		return nil, err
	}
	return b.snapshot(), nil
}

func (s *Store) List(_ context.Context, portfolioID int64, opts ledger.ListOptions) ([]*ledger.Transaction, error) {
	b, err := s.book(portfolioID)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*ledger.Transaction, 0, opts.Limit)
	for ii := len(b.log) - 1; ii >= 0 && len(out) < opts.Limit; ii-- {
		trx := b.log[ii]
		if opts.BeforeID > 0 && trx.ID >= opts.BeforeID {
			continue
		}
		out = append(out, trx)
	}
	return out, nil
}

func (s *Store) WithPortfolio(ctx context.Context, portfolioID int64, fn func(context.Context, ledger.LedgerTx) error) error {
	b, err := s.book(portfolioID)
	if err != nil {
		return err
	}

	b.commit.Lock()
	defer b.commit.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &bookTx{store: s, book: b}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	b.mu.Lock()
	b.log = append(b.log, tx.pending...)
	b.mu.Unlock()
	return nil
}

func (s *Store) nextTrxID() int64 {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	s.lastTrxID++
	return s.lastTrxID
}

// bookTx stages appends until the surrounding scope succeeds.
type bookTx struct {
	store   *Store
	book    *book
	pending []*ledger.Transaction
}

func (tx *bookTx) History(context.Context) ([]*ledger.Transaction, error) {
	return append(tx.book.snapshot(), tx.pending...), nil
}

func (tx *bookTx) Append(_ context.Context, e ledger.Entry) (*ledger.Transaction, error) {
	trx := &ledger.Transaction{
		ID:          tx.store.nextTrxID(),
		PortfolioID: tx.book.portfolio.ID,
		CreatedAt:   tx.store.now().UTC(),
		Entry:       e,
	}
	tx.pending = append(tx.pending, trx)
	return trx, nil
}
