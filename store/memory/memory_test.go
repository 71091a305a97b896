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

package memory_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/stashmock/ledger-api/ledger"
	"github.com/stashmock/ledger-api/store/memory"
)

var _ = Describe("Memory store", func() {
	var (
		ctx   context.Context
		store *memory.Store
		p     *ledger.Portfolio
	)

	deposit := func(amount int64) ledger.Entry {
		return ledger.Deposit{Amount: decimal.NewFromInt(amount)}
	}

	appendAll := func(entries ...ledger.Entry) {
		err := store.WithPortfolio(ctx, p.ID, func(ctx context.Context, tx ledger.LedgerTx) error {
			for _, e := range entries {
				if _, err := tx.Append(ctx, e); err != nil {
					return err
				}
			}
			return nil
		})
		Expect(err).To(BeNil())
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = memory.New()
		Expect(store.CreateUser(ctx, &ledger.User{ID: "u1", Email: "u1@example.com"})).To(Succeed())
		p = &ledger.Portfolio{UserID: "u1", Name: "main", RiskLevel: ledger.RiskLow}
		Expect(store.CreatePortfolio(ctx, p)).To(Succeed())
	})

	It("assigns portfolio ids and creation times", func() {
		Expect(p.ID).To(Equal(int64(1)))
		Expect(p.CreatedAt.IsZero()).To(BeFalse())

		got, err := store.GetPortfolio(ctx, p.ID)
		Expect(err).To(BeNil())
		Expect(got.Name).To(Equal("main"))
		Expect(got.RiskLevel).To(Equal(ledger.RiskLow))
	})

	It("requires the owner to exist", func() {
		err := store.CreatePortfolio(ctx, &ledger.Portfolio{UserID: "ghost", Name: "x"})
		Expect(err).To(MatchError(ledger.ErrUserNotFound))
	})

	It("returns copies of users", func() {
		u, err := store.GetUser(ctx, "u1")
		Expect(err).To(BeNil())
		u.Email = "changed@example.com"

		again, err := store.GetUser(ctx, "u1")
		Expect(err).To(BeNil())
		Expect(again.Email).To(Equal("u1@example.com"))
	})

	It("publishes appends only when the scope succeeds", func() {
		boom := errors.New("boom")
		err := store.WithPortfolio(ctx, p.ID, func(ctx context.Context, tx ledger.LedgerTx) error {
			if _, err := tx.Append(ctx, deposit(5)); err != nil {
				return err
			}
			staged, err := tx.History(ctx)
			Expect(err).To(BeNil())
			Expect(staged).To(HaveLen(1))
			return boom
		})
		Expect(err).To(MatchError(boom))

		hist, err := store.History(ctx, p.ID)
		Expect(err).To(BeNil())
		Expect(hist).To(BeEmpty())
	})

	It("keeps history in ascending order and lists newest first", func() {
		appendAll(deposit(1), deposit(2), deposit(3), deposit(4))

		hist, err := store.History(ctx, p.ID)
		Expect(err).To(BeNil())
		Expect(hist).To(HaveLen(4))
		for ii := 1; ii < len(hist); ii++ {
			Expect(hist[ii].ID).To(BeNumerically(">", hist[ii-1].ID))
		}

		page, err := store.List(ctx, p.ID, ledger.ListOptions{Limit: 2})
		Expect(err).To(BeNil())
		Expect(page).To(HaveLen(2))
		Expect(page[0].ID).To(Equal(hist[3].ID))
		Expect(page[1].ID).To(Equal(hist[2].ID))

		older, err := store.List(ctx, p.ID, ledger.ListOptions{Limit: 10, BeforeID: hist[2].ID})
		Expect(err).To(BeNil())
		Expect(older).To(HaveLen(2))
		Expect(older[0].ID).To(Equal(hist[1].ID))
	})

	It("refuses to open a scope with a cancelled context", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := store.WithPortfolio(cctx, p.ID, func(context.Context, ledger.LedgerTx) error {
			called = true
			return nil
		})
		Expect(err).To(MatchError(context.Canceled))
		Expect(called).To(BeFalse())
	})

	It("reports unknown portfolios", func() {
		_, err := store.History(ctx, 42)
		Expect(err).To(MatchError(ledger.ErrPortfolioNotFound))
		_, err = store.List(ctx, 42, ledger.ListOptions{Limit: 1})
		Expect(err).To(MatchError(ledger.ErrPortfolioNotFound))
		err = store.WithPortfolio(ctx, 42, func(context.Context, ledger.LedgerTx) error { return nil })
		Expect(err).To(MatchError(ledger.ErrPortfolioNotFound))
	})
})
