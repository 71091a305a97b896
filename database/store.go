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

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/stashmock/ledger-api/ledger"
)

const (
	transactionColumns = `"id", "portfolio_id", "kind", COALESCE("symbol", ''), COALESCE("quantity"::text, ''), COALESCE("price"::text, ''), COALESCE("amount"::text, ''), "created_at"`

	historySQL = `SELECT ` + transactionColumns + ` FROM transactions WHERE "portfolio_id"=$1 ORDER BY "id" ASC`
	listSQL    = `SELECT ` + transactionColumns + ` FROM transactions WHERE "portfolio_id"=$1 AND ($2::bigint = 0 OR "id" < $2) ORDER BY "id" DESC LIMIT $3`
	appendSQL  = `INSERT INTO transactions ("portfolio_id", "kind", "symbol", "quantity", "price", "amount") VALUES ($1, $2, $3, $4, $5, $6) RETURNING "id", "created_at"`

	lockPortfolioSQL = `SELECT "id" FROM portfolios WHERE "id"=$1 FOR UPDATE`
)

// LedgerStore keeps the ledger in PostgreSQL. Scopes on one portfolio are
// serialized with a row lock on the portfolio.
type LedgerStore struct {
	db PgxIface
}

var _ ledger.Store = (*LedgerStore)(nil)

func NewLedgerStore(db PgxIface) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) CreateUser(ctx context.Context, user *ledger.User) error {
	sql := `INSERT INTO users ("id", "email") VALUES ($1, $2) ON CONFLICT ("id") DO NOTHING`
	tag, err := s.db.Exec(ctx, sql, user.ID, user.Email)
	if err != nil {
		if hasCode(err, uniqueViolation) {
			return fmt.Errorf("%w: email %s already registered", ledger.ErrConflict, user.Email)
		}
		log.Error().Stack().Err(err).Str("UserID", user.ID).Str("Query", sql).Msg("could not create user")
		return unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrUserExists
	}
	return nil
}

func (s *LedgerStore) GetUser(ctx context.Context, userID string) (*ledger.User, error) {
	u := ledger.User{}
	err := s.db.QueryRow(ctx, `SELECT "id", "email" FROM users WHERE "id"=$1`, userID).Scan(&u.ID, &u.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrUserNotFound
		}
		log.Error().Stack().Err(err).Str("UserID", userID).Msg("could not load user")
		return nil, unavailable(err)
	}
	return &u, nil
}

func (s *LedgerStore) CreatePortfolio(ctx context.Context, p *ledger.Portfolio) error {
	sql := `INSERT INTO portfolios ("user_id", "name", "risk_level") VALUES ($1, $2, $3) RETURNING "id", "created"`
	err := s.db.QueryRow(ctx, sql, p.UserID, p.Name, string(p.RiskLevel)).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if hasCode(err, foreignKeyViolation) {
			return ledger.ErrUserNotFound
		}
		log.Error().Stack().Err(err).Str("UserID", p.UserID).Str("Query", sql).Msg("could not create portfolio")
		return unavailable(err)
	}
	return nil
}

func (s *LedgerStore) GetPortfolio(ctx context.Context, portfolioID int64) (*ledger.Portfolio, error) {
	p := ledger.Portfolio{}
	var risk string
	sql := `SELECT "id", "user_id", "name", "risk_level", "created" FROM portfolios WHERE "id"=$1`
	err := s.db.QueryRow(ctx, sql, portfolioID).Scan(&p.ID, &p.UserID, &p.Name, &risk, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrPortfolioNotFound
		}
		log.Error().Stack().Err(err).Int64("PortfolioID", portfolioID).Msg("could not load portfolio")
		return nil, unavailable(err)
	}
	p.RiskLevel = ledger.RiskLevel(risk)
	return &p, nil
}

type querier interface {
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

func (s *LedgerStore) History(ctx context.Context, portfolioID int64) ([]*ledger.Transaction, error) {
	return queryTransactions(ctx, s.db, historySQL, portfolioID)
}

func (s *LedgerStore) List(ctx context.Context, portfolioID int64, opts ledger.ListOptions) ([]*ledger.Transaction, error) {
	return queryTransactions(ctx, s.db, listSQL, portfolioID, opts.BeforeID, opts.Limit)
}

func queryTransactions(ctx context.Context, db querier, sql string, args ...interface{}) ([]*ledger.Transaction, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		log.Error().Stack().Err(err).Str("Query", sql).Msg("could not query transactions")
		return nil, unavailable(err)
	}
	defer rows.Close()

	trxs := make([]*ledger.Transaction, 0)
	for rows.Next() {
		trx, err := scanTransaction(rows)
		if err != nil {
			log.Error().Stack().Err(err).Str("Query", sql).Msg("could not scan transaction")
			return nil, err
		}
		trxs = append(trxs, trx)
	}

	if err := rows.Err(); err != nil {
		log.Error().Stack().Err(err).Str("Query", sql).Msg("transaction query read failed")
		return nil, unavailable(err)
	}
	return trxs, nil
}

func scanTransaction(rows pgx.Rows) (*ledger.Transaction, error) {
	var (
		trx                     ledger.Transaction
		kind, symbol            string
		quantity, price, amount string
		created                 time.Time
	)
	if err := rows.Scan(&trx.ID, &trx.PortfolioID, &kind, &symbol, &quantity, &price, &amount, &created); err != nil {
		return nil, unavailable(err)
	}

	fields := ledger.Fields{Symbol: symbol}
	var err error
	if fields.Quantity, err = parseDecimal(quantity); err != nil {
		return nil, err
	}
	if fields.Price, err = parseDecimal(price); err != nil {
		return nil, err
	}
	if fields.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}

	entry, err := ledger.NewEntry(ledger.Kind(kind), fields)
	if err != nil {
		return nil, fmt.Errorf("corrupt transaction %d: %w", trx.ID, err)
	}
	trx.Entry = entry
	trx.CreatedAt = created
	return &trx, nil
}

func parseDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func (s *LedgerStore) WithPortfolio(ctx context.Context, portfolioID int64, fn func(context.Context, ledger.LedgerTx) error) error {
	subLog := log.With().Int64("PortfolioID", portfolioID).Logger()

	trx, err := s.db.Begin(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not begin transaction")
		return unavailable(err)
	}

	rollback := func() {
		if err := trx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
	}

	var locked int64
	if err := trx.QueryRow(ctx, lockPortfolioSQL, portfolioID).Scan(&locked); err != nil {
		rollback()
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ErrPortfolioNotFound
		}
		subLog.Error().Stack().Err(err).Msg("could not lock portfolio")
		return unavailable(err)
	}

	if err := fn(ctx, &ledgerTx{trx: trx, portfolioID: portfolioID}); err != nil {
		rollback()
		return err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("failed to commit ledger transaction")
		rollback()
		return unavailable(err)
	}
	return nil
}

type ledgerTx struct {
	trx         pgx.Tx
	portfolioID int64
}

func (tx *ledgerTx) History(ctx context.Context) ([]*ledger.Transaction, error) {
	return queryTransactions(ctx, tx.trx, historySQL, tx.portfolioID)
}

func (tx *ledgerTx) Append(ctx context.Context, e ledger.Entry) (*ledger.Transaction, error) {
	f := ledger.FieldsOf(e)
	var symbol interface{}
	if f.Symbol != "" {
		symbol = f.Symbol
	}

	trx := &ledger.Transaction{PortfolioID: tx.portfolioID, Entry: e}
	err := tx.trx.QueryRow(ctx, appendSQL, tx.portfolioID, string(e.Kind()), symbol,
		decimalArg(f.Quantity), decimalArg(f.Price), decimalArg(f.Amount)).Scan(&trx.ID, &trx.CreatedAt)
	if err != nil {
		if hasCode(err, numericOverflow) {
			return nil, fmt.Errorf("%w: value out of range", ledger.ErrInvalidIntent)
		}
		log.Error().Stack().Err(err).Int64("PortfolioID", tx.portfolioID).Str("Kind", string(e.Kind())).Msg("could not append transaction")
		return nil, unavailable(err)
	}
	return trx, nil
}
