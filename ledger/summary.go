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

import "github.com/shopspring/decimal"

type PositionValue struct {
	Symbol         string
	Quantity       decimal.Decimal
	LastTradePrice decimal.Decimal
	MarketValue    decimal.Decimal
}

// Summary is the externally visible valuation of a portfolio
type Summary struct {
	Portfolio  Portfolio
	Cash       decimal.Decimal
	Positions  []PositionValue
	TotalValue decimal.Decimal
	AsOfID     int64
}

// BuildSummary values every open position at its last trade price. Market
// values are rounded one by one before they are summed so TotalValue always
// equals Cash plus the displayed line items.
func BuildSummary(portfolio Portfolio, proj *Projection) *Summary {
	cash := RoundMoney(proj.Cash)
	total := cash
	open := proj.Positions()
	values := make([]PositionValue, 0, len(open))

	for _, pos := range open {
		mv := Notional(pos.NetQuantity, pos.LastTradePrice)
		values = append(values, PositionValue{
			Symbol:         pos.Symbol,
			Quantity:       RoundQuantity(pos.NetQuantity),
			LastTradePrice: pos.LastTradePrice,
			MarketValue:    mv,
		})
		total = total.Add(mv)
	}

	return &Summary{
		Portfolio:  portfolio,
		Cash:       cash,
		Positions:  values,
		TotalValue: RoundMoney(total),
		AsOfID:     proj.LastID,
	}
}
