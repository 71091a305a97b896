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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stashmock/ledger-api/ledger"
)

var _ = Describe("Transaction entries", func() {
	DescribeTable("rejects malformed intents",
		func(kind ledger.Kind, f ledger.Fields) {
			_, err := ledger.NewEntry(kind, f)
			Expect(err).To(MatchError(ledger.ErrInvalidIntent))
		},
		Entry("unknown kind", ledger.Kind("dividend"), ledger.Fields{Amount: dp("10")}),
		Entry("empty kind", ledger.Kind(""), ledger.Fields{Amount: dp("10")}),
		Entry("deposit without amount", ledger.KindDeposit, ledger.Fields{}),
		Entry("deposit of zero", ledger.KindDeposit, ledger.Fields{Amount: dp("0")}),
		Entry("negative withdrawal", ledger.KindWithdraw, ledger.Fields{Amount: dp("-5")}),
		Entry("deposit rounding to zero", ledger.KindDeposit, ledger.Fields{Amount: dp("0.004")}),
		Entry("deposit with a symbol", ledger.KindDeposit, ledger.Fields{Amount: dp("10"), Symbol: "ABC"}),
		Entry("withdraw with a price", ledger.KindWithdraw, ledger.Fields{Amount: dp("10"), Price: dp("1")}),
		Entry("buy with an amount", ledger.KindBuy, ledger.Fields{Symbol: "ABC", Quantity: dp("1"), Price: dp("1"), Amount: dp("1")}),
		Entry("buy without symbol", ledger.KindBuy, ledger.Fields{Symbol: "  ", Quantity: dp("1"), Price: dp("1")}),
		Entry("buy without quantity", ledger.KindBuy, ledger.Fields{Symbol: "ABC", Price: dp("1")}),
		Entry("sell with zero price", ledger.KindSell, ledger.Fields{Symbol: "ABC", Quantity: dp("1"), Price: dp("0")}),
		Entry("sell with quantity rounding to zero", ledger.KindSell, ledger.Fields{Symbol: "ABC", Quantity: dp("0.0000004"), Price: dp("1")}),
		Entry("deposit at the money limit", ledger.KindDeposit, ledger.Fields{Amount: dp("1e16")}),
		Entry("deposit with a huge exponent", ledger.KindDeposit, ledger.Fields{Amount: dp("1e5000000")}),
		Entry("withdrawal rounding onto the limit", ledger.KindWithdraw, ledger.Fields{Amount: dp("9999999999999999.995")}),
		Entry("deposit with a tiny exponent", ledger.KindDeposit, ledger.Fields{Amount: dp("1e-5000000")}),
		Entry("buy at the quantity limit", ledger.KindBuy, ledger.Fields{Symbol: "ABC", Quantity: dp("1e12"), Price: dp("1")}),
		Entry("sell with a huge quantity", ledger.KindSell, ledger.Fields{Symbol: "ABC", Quantity: dp("123456789012345"), Price: dp("1")}),
		Entry("buy at the price limit", ledger.KindBuy, ledger.Fields{Symbol: "ABC", Quantity: dp("1"), Price: dp("1e16")}),
		Entry("sell with a huge price", ledger.KindSell, ledger.Fields{Symbol: "ABC", Quantity: dp("1"), Price: dp("1e400")}),
	)

	DescribeTable("accepts values just under the storage limits",
		func(kind ledger.Kind, f ledger.Fields) {
			_, err := ledger.NewEntry(kind, f)
			Expect(err).To(BeNil())
		},
		Entry("largest deposit", ledger.KindDeposit, ledger.Fields{Amount: dp("9999999999999999.99")}),
		Entry("largest quantity", ledger.KindBuy, ledger.Fields{Symbol: "ABC", Quantity: dp("999999999999.999999"), Price: dp("1")}),
		Entry("largest price", ledger.KindSell, ledger.Fields{Symbol: "ABC", Quantity: dp("1"), Price: dp("9999999999999999.99")}),
		Entry("extra places that round away", ledger.KindDeposit, ledger.Fields{Amount: dp("10.0000000000000000000001")}),
	)

	It("normalizes symbols and rounds values", func() {
		e, err := ledger.NewEntry(ledger.KindBuy, ledger.Fields{Symbol: " abc ", Quantity: dp("1.23456789"), Price: dp("10.005")})
		Expect(err).To(BeNil())

		b, ok := e.(ledger.Buy)
		Expect(ok).To(BeTrue())
		Expect(b.Symbol).To(Equal("ABC"))
		Expect(b.Quantity.String()).To(Equal("1.234568"))
		Expect(ledger.FormatMoney(b.Price)).To(Equal("10.01"))
	})

	It("round trips through flat fields", func() {
		e, err := ledger.NewEntry(ledger.KindWithdraw, ledger.Fields{Amount: dp("12.5")})
		Expect(err).To(BeNil())
		Expect(e.Kind()).To(Equal(ledger.KindWithdraw))

		f := ledger.FieldsOf(e)
		Expect(f.Amount).ToNot(BeNil())
		Expect(f.Symbol).To(BeEmpty())
		Expect(f.Quantity).To(BeNil())

		again, err := ledger.NewEntry(e.Kind(), f)
		Expect(err).To(BeNil())
		Expect(again.Kind()).To(Equal(ledger.KindWithdraw))
		Expect(again.CashDelta().Equal(e.CashDelta())).To(BeTrue())
	})

	It("computes cash deltas per kind", func() {
		Expect(deposit("10").CashDelta().String()).To(Equal("10"))
		Expect(withdraw("10").CashDelta().String()).To(Equal("-10"))
		Expect(ledger.FormatMoney(buy("ABC", "3", "3.335").CashDelta())).To(Equal("-10.01"))
		Expect(ledger.FormatMoney(sell("ABC", "3", "3.335").CashDelta())).To(Equal("10.01"))
	})

	DescribeTable("parses risk levels",
		func(in string, expected ledger.RiskLevel, ok bool) {
			level, err := ledger.ParseRiskLevel(in)
			if !ok {
				Expect(err).To(MatchError(ledger.ErrInvalidArgument))
				return
			}
			Expect(err).To(BeNil())
			Expect(level).To(Equal(expected))
		},
		Entry("empty defaults to medium", "", ledger.RiskMedium, true),
		Entry("low", "low", ledger.RiskLow, true),
		Entry("case insensitive", "HIGH", ledger.RiskHigh, true),
		Entry("unknown", "extreme", ledger.RiskLevel(""), false),
	)
})
