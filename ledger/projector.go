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
	"sort"

	"github.com/shopspring/decimal"
)

// Position is the net holding of a symbol derived from the ledger. A negative
// NetQuantity is a short position.
type Position struct {
	Symbol         string
	NetQuantity    decimal.Decimal
	LastTradePrice decimal.Decimal
}

// Projection is the state obtained by folding a ledger: cash plus positions.
// It is never stored.
type Projection struct {
	Cash      decimal.Decimal
	positions map[string]*Position

	// LastID is the id of the last transaction folded, 0 for an empty ledger
	LastID int64
}

func newProjection() *Projection {
	return &Projection{
		Cash:      decimal.Zero,
		positions: make(map[string]*Position),
	}
}

// Project folds history in ascending id order. Every term is rounded before
// it is accumulated so the result never depends on where rounding happens.
func Project(history []*Transaction) *Projection {
	if !sort.SliceIsSorted(history, func(i, j int) bool { return history[i].ID < history[j].ID }) {
		sorted := make([]*Transaction, len(history))
		copy(sorted, history)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
		history = sorted
	}

	proj := newProjection()
	for _, trx := range history {
		proj.apply(trx.Entry)
		proj.LastID = trx.ID
	}
	return proj
}

func (proj *Projection) apply(e Entry) {
	proj.Cash = proj.Cash.Add(e.CashDelta())

	switch v := e.(type) {
	case Buy:
		proj.trade(v.Trade, RoundQuantity(v.Quantity))
	case Sell:
		proj.trade(v.Trade, RoundQuantity(v.Quantity).Neg())
	}
}

func (proj *Projection) trade(t Trade, signedQty decimal.Decimal) {
	pos, ok := proj.positions[t.Symbol]
	if !ok {
		pos = &Position{Symbol: t.Symbol, NetQuantity: decimal.Zero}
		proj.positions[t.Symbol] = pos
	}
	pos.NetQuantity = pos.NetQuantity.Add(signedQty)
	pos.LastTradePrice = RoundMoney(t.Price)
}

// Position returns the position for symbol, including closed ones.
func (proj *Projection) Position(symbol string) (Position, bool) {
	pos, ok := proj.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns the open positions sorted by symbol. A position whose
// quantity rounds to zero is closed and omitted.
func (proj *Projection) Positions() []Position {
	open := make([]Position, 0, len(proj.positions))
	for _, pos := range proj.positions {
		if RoundQuantity(pos.NetQuantity).IsZero() {
			continue
		}
		open = append(open, *pos)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Symbol < open[j].Symbol })
	return open
}
