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

package ledger_test

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/stashmock/ledger-api/ledger"
)

var _ = Describe("Projector", func() {
	It("folds an empty ledger to zero", func() {
		proj := ledger.Project(nil)
		Expect(proj.Cash.IsZero()).To(BeTrue())
		Expect(proj.Positions()).To(BeEmpty())
		Expect(proj.LastID).To(Equal(int64(0)))
	})

	It("tracks cash, net quantity and the last trade price", func() {
		proj := ledger.Project(history(
			deposit("100"),
			buy("ABC", "10", "5"),
			sell("ABC", "4", "6"),
		))

		Expect(ledger.FormatMoney(proj.Cash)).To(Equal("74.00"))
		Expect(proj.LastID).To(Equal(int64(3)))

		pos, ok := proj.Position("ABC")
		Expect(ok).To(BeTrue())
		Expect(ledger.FormatQuantity(pos.NetQuantity)).To(Equal("6.000000"))
		Expect(ledger.FormatMoney(pos.LastTradePrice)).To(Equal("6.00"))
	})

	It("is deterministic and independent of input order", func() {
		trxs := history(
			deposit("1000"),
			buy("XYZ", "0.333333", "33.33"),
			buy("ABC", "1.5", "10.10"),
			sell("XYZ", "0.1", "40.01"),
			withdraw("12.34"),
		)
		first := ledger.Project(trxs)

		reversed := make([]*ledger.Transaction, len(trxs))
		for ii := range trxs {
			reversed[len(trxs)-1-ii] = trxs[ii]
		}
		second := ledger.Project(reversed)

		Expect(second.Cash.Equal(first.Cash)).To(BeTrue())
		Expect(second.LastID).To(Equal(first.LastID))
		Expect(second.Positions()).To(HaveLen(len(first.Positions())))
		for ii, pos := range first.Positions() {
			other := second.Positions()[ii]
			Expect(other.Symbol).To(Equal(pos.Symbol))
			Expect(other.NetQuantity.Equal(pos.NetQuantity)).To(BeTrue())
		}

		// input slice is not reordered in place
		Expect(reversed[0].ID).To(Equal(int64(5)))
	})

	It("reconciles cash with the sum of signed flows", func() {
		entries := []ledger.Entry{
			deposit("250.10"),
			buy("ABC", "3", "19.99"),
			sell("ABC", "1", "21.015"),
			withdraw("0.01"),
			buy("DEF", "0.5", "7.77"),
		}
		proj := ledger.Project(history(entries...))

		sum := d("0")
		for _, e := range entries {
			sum = sum.Add(e.CashDelta())
		}
		Expect(ledger.FormatMoney(proj.Cash)).To(Equal(ledger.FormatMoney(sum)))
	})

	It("allows short positions and omits closed ones", func() {
		proj := ledger.Project(history(
			deposit("10"),
			sell("SHRT", "2", "5"),
			buy("FLAT", "1", "1"),
			sell("FLAT", "1", "2"),
		))

		positions := proj.Positions()
		Expect(positions).To(HaveLen(1))
		Expect(positions[0].Symbol).To(Equal("SHRT"))
		Expect(ledger.FormatQuantity(positions[0].NetQuantity)).To(Equal("-2.000000"))

		_, ok := proj.Position("FLAT")
		Expect(ok).To(BeTrue())
		Expect(ledger.FormatMoney(proj.Cash)).To(Equal("21.00"))
	})

	It("sorts open positions by symbol", func() {
		proj := ledger.Project(history(
			deposit("100"),
			buy("ZZZ", "1", "1"),
			buy("AAA", "1", "1"),
			buy("MMM", "1", "1"),
		))
		symbols := []string{}
		for _, pos := range proj.Positions() {
			symbols = append(symbols, pos.Symbol)
		}
		Expect(symbols).To(Equal([]string{"AAA", "MMM", "ZZZ"}))
	})
})

var _ = Describe("Admission guard", func() {
	It("accepts inflows on an empty ledger", func() {
		entry, proj, err := ledger.Admit(nil, deposit("5"))
		Expect(err).To(BeNil())
		Expect(entry.Kind()).To(Equal(ledger.KindDeposit))
		Expect(proj.Cash.IsZero()).To(BeTrue())
	})

	It("rejects a withdrawal larger than cash", func() {
		_, _, err := ledger.Admit(history(deposit("100"), buy("ABC", "10", "5")), withdraw("200"))
		Expect(err).To(MatchError(ledger.ErrInsufficientFunds))
		Expect(err.Error()).To(ContainSubstring("cash 50.00"))
		Expect(err.Error()).To(ContainSubstring("required 200.00"))
	})

	It("accepts spending cash down to exactly zero", func() {
		_, _, err := ledger.Admit(history(deposit("50")), buy("ABC", "10", "5"))
		Expect(err).To(BeNil())
	})

	It("rejects a buy that overdraws by a cent after rounding", func() {
		// 3 x 3.335 rounds to 3.34 per share, 10.02 total
		_, _, err := ledger.Admit(history(deposit("10.01")), buy("ABC", "3", "3.335"))
		Expect(err).To(MatchError(ledger.ErrInsufficientFunds))
	})

	It("never guards positions", func() {
		_, _, err := ledger.Admit(history(deposit("1")), sell("ABC", "100", "1"))
		Expect(err).To(BeNil())
	})

	It("validates the candidate before checking funds", func() {
		_, _, err := ledger.Admit(history(deposit("100")), ledger.Withdraw{Amount: d("-1")})
		Expect(err).To(MatchError(ledger.ErrInvalidIntent))

		_, _, err = ledger.Admit(history(deposit("100")), nil)
		Expect(err).To(MatchError(ledger.ErrInvalidIntent))
	})
})

var _ = Describe("Summary", func() {
	It("values positions at the last trade price", func() {
		p := ledger.Portfolio{ID: 1, UserID: "u1", Name: "main", RiskLevel: ledger.RiskMedium}
		s := ledger.BuildSummary(p, ledger.Project(history(
			deposit("100"),
			buy("ABC", "10", "5"),
			sell("ABC", "4", "6"),
		)))

		Expect(s.Portfolio.ID).To(Equal(int64(1)))
		Expect(ledger.FormatMoney(s.Cash)).To(Equal("74.00"))
		Expect(s.Positions).To(HaveLen(1))
		Expect(s.Positions[0].Symbol).To(Equal("ABC"))
		Expect(ledger.FormatQuantity(s.Positions[0].Quantity)).To(Equal("6.000000"))
		Expect(ledger.FormatMoney(s.Positions[0].MarketValue)).To(Equal("36.00"))
		Expect(ledger.FormatMoney(s.TotalValue)).To(Equal("110.00"))
		Expect(s.AsOfID).To(Equal(int64(3)))
	})

	It("sums individually rounded market values", func() {
		s := ledger.BuildSummary(ledger.Portfolio{ID: 2}, ledger.Project(history(
			deposit("10"),
			buy("AAA", "0.005", "1"),
			buy("BBB", "0.005", "1"),
		)))

		// each position is worth 0.005 which rounds to 0.01
		for _, pos := range s.Positions {
			Expect(ledger.FormatMoney(pos.MarketValue)).To(Equal("0.01"))
		}
		total := s.Cash
		for _, pos := range s.Positions {
			total = total.Add(pos.MarketValue)
		}
		Expect(ledger.FormatMoney(s.TotalValue)).To(Equal(ledger.FormatMoney(total)))
	})
})

// randomEntry draws an intent with more places than are persisted so
// rounding is exercised on every kind.
func randomEntry(rng *rand.Rand) ledger.Entry {
	symbols := []string{"AAA", "BBB", "CCC"}
	amount := decimal.New(rng.Int63n(500000)+1, -3)
	trade := ledger.Trade{
		Symbol:   symbols[rng.Intn(len(symbols))],
		Quantity: decimal.New(rng.Int63n(50000000)+1, -7),
		Price:    decimal.New(rng.Int63n(200000)+1, -3),
	}

	switch rng.Intn(4) {
	case 0:
		return ledger.Deposit{Amount: amount}
	case 1:
		return ledger.Withdraw{Amount: amount}
	case 2:
		return ledger.Buy{Trade: trade}
	default:
		return ledger.Sell{Trade: trade}
	}
}

func expectSameProjection(a, b *ledger.Projection) {
	Expect(a.Cash.Equal(b.Cash)).To(BeTrue(), "cash %s != %s", a.Cash, b.Cash)
	Expect(a.LastID).To(Equal(b.LastID))

	pa, pb := a.Positions(), b.Positions()
	Expect(pa).To(HaveLen(len(pb)))
	for ii := range pa {
		Expect(pa[ii].Symbol).To(Equal(pb[ii].Symbol))
		Expect(pa[ii].NetQuantity.Equal(pb[ii].NetQuantity)).To(BeTrue())
		Expect(pa[ii].LastTradePrice.Equal(pb[ii].LastTradePrice)).To(BeTrue())
	}
}

var _ = Describe("Random histories", func() {
	It("keeps cash non-negative, folds deterministically and reconciles the summary", func() {
		rng := rand.New(rand.NewSource(GinkgoRandomSeed()))

		var trxs []*ledger.Transaction
		accepted := 0
		for step := 0; step < 400; step++ {
			entry, _, err := ledger.Admit(trxs, randomEntry(rng))
			if err != nil {
				Expect(errors.Is(err, ledger.ErrInsufficientFunds) || errors.Is(err, ledger.ErrInvalidIntent)).To(BeTrue(), err.Error())
				continue
			}
			trxs = append(trxs, &ledger.Transaction{ID: int64(len(trxs) + 1), PortfolioID: 1, Entry: entry})
			accepted++

			proj := ledger.Project(trxs)
			Expect(proj.Cash.IsNegative()).To(BeFalse(), "cash went to %s at step %d", proj.Cash, step)
		}
		Expect(accepted).To(BeNumerically(">", 0))

		first := ledger.Project(trxs)
		second := ledger.Project(trxs)
		expectSameProjection(first, second)

		shuffled := make([]*ledger.Transaction, len(trxs))
		copy(shuffled, trxs)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		expectSameProjection(first, ledger.Project(shuffled))

		s := ledger.BuildSummary(ledger.Portfolio{ID: 1}, first)
		total := s.Cash
		for _, pos := range s.Positions {
			Expect(pos.MarketValue.Equal(ledger.Notional(pos.Quantity, pos.LastTradePrice))).To(BeTrue())
			total = total.Add(pos.MarketValue)
		}
		Expect(s.TotalValue.Equal(total)).To(BeTrue(), "total %s != %s", s.TotalValue, total)
		Expect(s.AsOfID).To(Equal(int64(len(trxs))))
	})
})
