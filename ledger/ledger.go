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
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/stashmock/ledger-api/ledger"

// Ledger is the core API consumed by the service layer.
type Ledger struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

type Option func(*Ledger)

// WithNotifier sets where post commit notices are sent.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) {
		if n != nil {
			l.notifier = n
		}
	}
}

// WithClock overrides the time source used to stamp notices.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		notifier: discardNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateUser registers a user. A duplicate id is ErrUserExists.
func (l *Ledger) CreateUser(ctx context.Context, userID, email string) (user *User, err error) {
	ctx, span := l.span(ctx, "ledger.CreateUser", attribute.String("user.id", userID))
	defer func() { endSpan(span, err) }()

	userID = strings.TrimSpace(userID)
	email = strings.TrimSpace(email)
	if userID == "" {
		return nil, invalidArgument("user id is required")
	}
	if !strings.Contains(email, "@") {
		return nil, invalidArgument("invalid email %q", email)
	}

	user = &User{ID: userID, Email: email}
	if err = l.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Str("UserID", userID).Msg("created user")
	l.notifier.Notify(ctx, Notice{
		Type:       NoticeUserCreated,
		UserID:     user.ID,
		Email:      user.Email,
		OccurredAt: l.now(),
	})
	return user, nil
}

// CreatePortfolio opens an empty portfolio for an existing user.
func (l *Ledger) CreatePortfolio(ctx context.Context, userID, name string, risk string) (p *Portfolio, err error) {
	ctx, span := l.span(ctx, "ledger.CreatePortfolio", attribute.String("user.id", userID))
	defer func() { endSpan(span, err) }()

	level, err := ParseRiskLevel(risk)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArgument("portfolio name is required")
	}

	if _, err = l.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	p = &Portfolio{UserID: userID, Name: name, RiskLevel: level}
	if err = l.store.CreatePortfolio(ctx, p); err != nil {
		return nil, err
	}

	log.Info().Str("UserID", userID).Int64("PortfolioID", p.ID).Msg("created portfolio")
	l.notifier.Notify(ctx, Notice{
		Type:        NoticePortfolioCreated,
		UserID:      p.UserID,
		PortfolioID: p.ID,
		Name:        p.Name,
		OccurredAt:  l.now(),
	})
	return p, nil
}

func (l *Ledger) GetPortfolio(ctx context.Context, portfolioID int64) (*Portfolio, error) {
	return l.store.GetPortfolio(ctx, portfolioID)
}

// SubmitTransaction admits and commits candidate as one serialized step on
// the portfolio. A rejected candidate leaves the ledger unchanged.
func (l *Ledger) SubmitTransaction(ctx context.Context, portfolioID int64, candidate Entry) (trx *Transaction, err error) {
	ctx, span := l.span(ctx, "ledger.SubmitTransaction", attribute.Int64("portfolio.id", portfolioID))
	defer func() { endSpan(span, err) }()

	subLog := log.With().Int64("PortfolioID", portfolioID).Logger()

	err = l.store.WithPortfolio(ctx, portfolioID, func(ctx context.Context, tx LedgerTx) error {
		history, err := tx.History(ctx)
		if err != nil {
			return err
		}
		entry, _, err := Admit(history, candidate)
		if err != nil {
			return err
		}
		trx, err = tx.Append(ctx, entry)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInvalidIntent):
			subLog.Info().Err(err).Msg("transaction rejected")
		case errors.Is(err, ErrNotFound):
			subLog.Debug().Err(err).Msg("transaction for unknown portfolio")
		default:
			subLog.Error().Stack().Err(err).Msg("could not commit transaction")
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int64("transaction.id", trx.ID), attribute.String("transaction.kind", string(trx.Kind())))
	subLog.Info().Int64("TransactionID", trx.ID).Str("Kind", string(trx.Kind())).Msg("committed transaction")

	now := l.now()
	l.notifier.Notify(ctx, Notice{
		Type:          NoticeTransactionCreated,
		PortfolioID:   portfolioID,
		TransactionID: trx.ID,
		Kind:          trx.Kind(),
		OccurredAt:    now,
	})
	l.notifier.Notify(ctx, Notice{
		Type:          NoticeRecompute,
		PortfolioID:   portfolioID,
		TransactionID: trx.ID,
		OccurredAt:    now,
	})

	return trx, nil
}

// Admit checks candidate against the current ledger without committing it.
func (l *Ledger) Admit(ctx context.Context, portfolioID int64, candidate Entry) error {
	if _, err := l.store.GetPortfolio(ctx, portfolioID); err != nil {
		return err
	}
	history, err := l.store.History(ctx, portfolioID)
	if err != nil {
		return err
	}
	_, _, err = Admit(history, candidate)
	return err
}

// Project folds the portfolio's current ledger.
func (l *Ledger) Project(ctx context.Context, portfolioID int64) (*Portfolio, *Projection, error) {
	p, err := l.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, nil, err
	}
	history, err := l.store.History(ctx, portfolioID)
	if err != nil {
		return nil, nil, err
	}
	return p, Project(history), nil
}

// GetSummary recomputes the portfolio valuation from its full ledger.
func (l *Ledger) GetSummary(ctx context.Context, portfolioID int64) (summary *Summary, err error) {
	ctx, span := l.span(ctx, "ledger.GetSummary", attribute.Int64("portfolio.id", portfolioID))
	defer func() { endSpan(span, err) }()

	p, proj, err := l.Project(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	return BuildSummary(*p, proj), nil
}

// ListTransactions pages through the ledger newest first. limit <= 0 uses
// DefaultListLimit and anything above MaxListLimit is capped.
func (l *Ledger) ListTransactions(ctx context.Context, portfolioID int64, limit int, beforeID int64) ([]*Transaction, error) {
	limit = ClampLimit(limit)
	if beforeID < 0 {
		return nil, invalidArgument("before_id must not be negative")
	}

	if _, err := l.store.GetPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	return l.store.List(ctx, portfolioID, ListOptions{Limit: limit, BeforeID: beforeID})
}
