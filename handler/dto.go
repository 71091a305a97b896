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

package handler

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/stashmock/ledger-api/ledger"
)

type createUserRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type createPortfolioRequest struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	RiskLevel string `json:"risk_level"`
}

type portfolioResponse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	RiskLevel string    `json:"risk_level"`
	CreatedAt time.Time `json:"created_at"`
}

func newPortfolioResponse(p *ledger.Portfolio) portfolioResponse {
	return portfolioResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		Name:      p.Name,
		RiskLevel: string(p.RiskLevel),
		CreatedAt: p.CreatedAt,
	}
}

// transactionRequest is the flat wire shape of an intent. Numbers are kept
// as json.Number so no precision is lost before decimal parsing.
type transactionRequest struct {
	Type     string       `json:"type"`
	Amount   *json.Number `json:"amount"`
	Symbol   string       `json:"symbol"`
	Quantity *json.Number `json:"quantity"`
	Price    *json.Number `json:"price"`
}

func (r *transactionRequest) entry() (ledger.Entry, error) {
	var (
		f   = ledger.Fields{Symbol: r.Symbol}
		err error
	)
	if f.Amount, err = parseNumber("amount", r.Amount); err != nil {
		return nil, err
	}
	if f.Quantity, err = parseNumber("quantity", r.Quantity); err != nil {
		return nil, err
	}
	if f.Price, err = parseNumber("price", r.Price); err != nil {
		return nil, err
	}
	return ledger.NewEntry(ledger.Kind(r.Type), f)
}

// maxNumberLength bounds the literal handed to the decimal parser.
const maxNumberLength = 64

func parseNumber(name string, n *json.Number) (*decimal.Decimal, error) {
	if n == nil {
		return nil, nil
	}
	if len(*n) > maxNumberLength {
		return nil, fmt.Errorf("%w: %s is too long", ledger.ErrInvalidIntent, name)
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a number", ledger.ErrInvalidIntent, name)
	}
	return &d, nil
}

type transactionResponse struct {
	ID          int64        `json:"id"`
	PortfolioID int64        `json:"portfolio_id"`
	Type        string       `json:"type"`
	Amount      *json.Number `json:"amount"`
	Symbol      *string      `json:"symbol"`
	Quantity    *json.Number `json:"quantity"`
	Price       *json.Number `json:"price"`
	CreatedAt   time.Time    `json:"created_at"`
}

func newTransactionResponse(trx *ledger.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          trx.ID,
		PortfolioID: trx.PortfolioID,
		Type:        string(trx.Kind()),
		CreatedAt:   trx.CreatedAt,
	}

	f := ledger.FieldsOf(trx.Entry)
	if f.Amount != nil {
		resp.Amount = money(*f.Amount)
	}
	if f.Symbol != "" {
		symbol := f.Symbol
		resp.Symbol = &symbol
	}
	if f.Quantity != nil {
		resp.Quantity = quantity(*f.Quantity)
	}
	if f.Price != nil {
		resp.Price = money(*f.Price)
	}
	return resp
}

type transactionList struct {
	Transactions []transactionResponse `json:"transactions"`
	NextBeforeID *int64                `json:"next_before_id"`
}

type admitResponse struct {
	Admitted bool `json:"admitted"`
}

type positionResponse struct {
	Symbol      string      `json:"symbol"`
	Quantity    json.Number `json:"quantity"`
	LastPrice   json.Number `json:"last_price"`
	MarketValue json.Number `json:"market_value"`
}

type summaryResponse struct {
	Portfolio  portfolioResponse  `json:"portfolio"`
	Cash       json.Number        `json:"cash"`
	Positions  []positionResponse `json:"positions"`
	TotalValue json.Number        `json:"total_value"`
	AsOfID     int64              `json:"as_of_id"`
}

func newSummaryResponse(s *ledger.Summary) summaryResponse {
	resp := summaryResponse{
		Portfolio:  newPortfolioResponse(&s.Portfolio),
		Cash:       *money(s.Cash),
		Positions:  make([]positionResponse, 0, len(s.Positions)),
		TotalValue: *money(s.TotalValue),
		AsOfID:     s.AsOfID,
	}
	for _, pos := range s.Positions {
		resp.Positions = append(resp.Positions, positionResponse{
			Symbol:      pos.Symbol,
			Quantity:    *quantity(pos.Quantity),
			LastPrice:   *money(pos.LastTradePrice),
			MarketValue: *money(pos.MarketValue),
		})
	}
	return resp
}

func money(d decimal.Decimal) *json.Number {
	n := json.Number(ledger.FormatMoney(d))
	return &n
}

func quantity(d decimal.Decimal) *json.Number {
	n := json.Number(ledger.FormatQuantity(d))
	return &n
}
