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

const (
	MoneyPlaces    int32 = 2
	QuantityPlaces int32 = 6

	// MoneyDigits and QuantityDigits are the integer digits NUMERIC(18,2)
	// and NUMERIC(18,6) can hold.
	MoneyDigits    int32 = 16
	QuantityDigits int32 = 12

	// maxInputScale bounds the fractional digits accepted before rounding
	maxInputScale int32 = 32
)

var (
	// MaxMoney is the exclusive upper bound of amounts and prices.
	MaxMoney = decimal.New(1, MoneyDigits)

	// MaxQuantity is the exclusive upper bound of trade quantities.
	MaxQuantity = decimal.New(1, QuantityDigits)
)

// RoundMoney rounds half away from zero to cents, the same rule PostgreSQL
// applies when storing NUMERIC(18,2).
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

// RoundQuantity rounds to the 6 places quantities are persisted with.
func RoundQuantity(d decimal.Decimal) decimal.Decimal { return d.Round(QuantityPlaces) }

// FormatMoney renders d with exactly two decimals.
func FormatMoney(d decimal.Decimal) string { return d.StringFixed(MoneyPlaces) }

// FormatQuantity renders d with exactly six decimals.
func FormatQuantity(d decimal.Decimal) string { return d.StringFixed(QuantityPlaces) }

// integerDigits is the number of digits left of the decimal point of d,
// computed from its coefficient and exponent without rescaling.
func integerDigits(d decimal.Decimal) int64 {
	return int64(d.NumDigits()) + int64(d.Exponent())
}

// Notional is quantity * price rounded to cents.
func Notional(quantity, price decimal.Decimal) decimal.Decimal {
	return RoundMoney(quantity.Mul(price))
}
