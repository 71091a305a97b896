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
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
	KindBuy      Kind = "buy"
	KindSell     Kind = "sell"
)

// Entry is the kind specific body of a transaction. The set of
// implementations is closed: Deposit, Withdraw, Buy and Sell.
type Entry interface {
	Kind() Kind

	// CashDelta is the signed, cent rounded effect the entry has on cash
	CashDelta() decimal.Decimal

	sealed()
}

type Deposit struct {
	Amount decimal.Decimal
}

type Withdraw struct {
	Amount decimal.Decimal
}

// Trade holds the fields shared by buys and sells.
type Trade struct {
	Symbol   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

type Buy struct {
	Trade
}

type Sell struct {
	Trade
}

func (Deposit) Kind() Kind  { return KindDeposit }
func (Withdraw) Kind() Kind { return KindWithdraw }
func (Buy) Kind() Kind      { return KindBuy }
func (Sell) Kind() Kind     { return KindSell }

func (e Deposit) CashDelta() decimal.Decimal  { return RoundMoney(e.Amount) }
func (e Withdraw) CashDelta() decimal.Decimal { return RoundMoney(e.Amount).Neg() }
func (e Buy) CashDelta() decimal.Decimal      { return Notional(e.Quantity, e.Price).Neg() }
func (e Sell) CashDelta() decimal.Decimal     { return Notional(e.Quantity, e.Price) }

func (Deposit) sealed()  {}
func (Withdraw) sealed() {}
func (Buy) sealed()      {}
func (Sell) sealed()     {}

// Fields is the flat, optional field representation of an entry as it
// arrives over the wire or out of a database row.
type Fields struct {
	Amount   *decimal.Decimal
	Symbol   string
	Quantity *decimal.Decimal
	Price    *decimal.Decimal
}

// NewEntry builds the entry for kind from f. Fields belonging to another kind
// must be absent; numeric fields must be positive after rounding.
func NewEntry(kind Kind, f Fields) (Entry, error) {
	switch kind {
	case KindDeposit, KindWithdraw:
		if f.Symbol != "" || f.Quantity != nil || f.Price != nil {
			return nil, invalidIntent("%s does not take symbol, quantity or price", kind)
		}
		amount, err := positive("amount", f.Amount, MoneyPlaces, MaxMoney)
		if err != nil {
			return nil, err
		}
		if kind == KindDeposit {
			return Deposit{Amount: amount}, nil
		}
		return Withdraw{Amount: amount}, nil

	case KindBuy, KindSell:
		if f.Amount != nil {
			return nil, invalidIntent("%s does not take an amount", kind)
		}
		symbol := strings.ToUpper(strings.TrimSpace(f.Symbol))
		if symbol == "" {
			return nil, invalidIntent("%s requires a symbol", kind)
		}
		quantity, err := positive("quantity", f.Quantity, QuantityPlaces, MaxQuantity)
		if err != nil {
			return nil, err
		}
		price, err := positive("price", f.Price, MoneyPlaces, MaxMoney)
		if err != nil {
			return nil, err
		}
		trade := Trade{Symbol: symbol, Quantity: quantity, Price: price}
		if kind == KindBuy {
			return Buy{Trade: trade}, nil
		}
		return Sell{Trade: trade}, nil

	default:
		return nil, invalidIntent("unknown transaction type %q", kind)
	}
}

// positive rounds v to places and requires 0 < v < limit. Magnitude and
// scale are checked before rounding since rescaling an extreme exponent
// allocates a coefficient of that many digits.
func positive(name string, v *decimal.Decimal, places int32, limit decimal.Decimal) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, invalidIntent("%s is required", name)
	}
	if v.Exponent() < -maxInputScale {
		return decimal.Zero, invalidIntent("%s has more than %d decimal places", name, maxInputScale)
	}
	if integerDigits(*v) > integerDigits(limit) {
		return decimal.Zero, invalidIntent("%s must be less than %s", name, limit)
	}
	rounded := v.Round(places)
	if !rounded.IsPositive() {
		return decimal.Zero, invalidIntent("%s must be greater than zero", name)
	}
	// rounding can carry a value just under the limit onto it
	if rounded.GreaterThanOrEqual(limit) {
		return decimal.Zero, invalidIntent("%s must be less than %s", name, limit)
	}
	return rounded, nil
}

// FieldsOf flattens e back into its optional field form.
func FieldsOf(e Entry) Fields {
	switch v := e.(type) {
	case Deposit:
		return Fields{Amount: &v.Amount}
	case Withdraw:
		return Fields{Amount: &v.Amount}
	case Buy:
		return tradeFields(v.Trade)
	case Sell:
		return tradeFields(v.Trade)
	}
	return Fields{}
}

func tradeFields(t Trade) Fields {
	return Fields{Symbol: t.Symbol, Quantity: &t.Quantity, Price: &t.Price}
}

// validate re-checks an entry built without NewEntry, e.g. a struct literal.
func validate(e Entry) (Entry, error) {
	if e == nil {
		return nil, invalidIntent("missing transaction")
	}
	return NewEntry(e.Kind(), FieldsOf(e))
}

// Transaction is a committed, immutable ledger record.
type Transaction struct {
	ID          int64
	PortfolioID int64
	CreatedAt   time.Time
	Entry       Entry
}

func (t *Transaction) Kind() Kind { return t.Entry.Kind() }

type User struct {
	ID    string
	Email string
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel accepts low, medium or high; empty means medium.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch r := RiskLevel(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RiskMedium, nil
	case RiskLow, RiskMedium, RiskHigh:
		return r, nil
	}
	return "", invalidArgument("unknown risk level %q", s)
}

type Portfolio struct {
	ID        int64
	UserID    string
	Name      string
	RiskLevel RiskLevel
	CreatedAt time.Time
}
