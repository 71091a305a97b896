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

// Package cache keeps recently read user and portfolio records in process.
// Both are immutable once created so entries never go stale; transaction
// history is always read through to the wrapped store.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/stashmock/ledger-api/ledger"
)

type Store struct {
	ledger.Store
	records *lru.Cache
}

var _ ledger.Store = (*Store)(nil)

func New(inner ledger.Store, size int) (*Store, error) {
	records, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Store{Store: inner, records: records}, nil
}

func userKey(id string) string     { return "user:" + id }
func portfolioKey(id int64) string { return fmt.Sprintf("portfolio:%d", id) }

func (s *Store) CreateUser(ctx context.Context, user *ledger.User) error {
	if err := s.Store.CreateUser(ctx, user); err != nil {
		return err
	}
	u := *user
	s.records.Add(userKey(u.ID), &u)
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*ledger.User, error) {
	if v, ok := s.records.Get(userKey(userID)); ok {
		u := *v.(*ledger.User)
		return &u, nil
	}
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	u := *user
	s.records.Add(userKey(u.ID), &u)
	return user, nil
}

func (s *Store) CreatePortfolio(ctx context.Context, p *ledger.Portfolio) error {
	if err := s.Store.CreatePortfolio(ctx, p); err != nil {
		return err
	}
	cp := *p
	s.records.Add(portfolioKey(cp.ID), &cp)
	return nil
}

func (s *Store) GetPortfolio(ctx context.Context, portfolioID int64) (*ledger.Portfolio, error) {
	if v, ok := s.records.Get(portfolioKey(portfolioID)); ok {
		p := *v.(*ledger.Portfolio)
		return &p, nil
	}
	p, err := s.Store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	cp := *p
	s.records.Add(portfolioKey(cp.ID), &cp)
	return p, nil
}

// Len is the number of cached records.
func (s *Store) Len() int {
	return s.records.Len()
}
