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
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/stashmock/ledger-api/ledger"
	"github.com/stashmock/ledger-api/messenger"
	"github.com/stashmock/ledger-api/middleware"
)

// NoticeStats reports delivery counters of the notice dispatcher.
type NoticeStats interface {
	Stats() messenger.Stats
}

// API exposes the ledger over HTTP.
type API struct {
	ledger  *ledger.Ledger
	notices NoticeStats
	started time.Time
}

type Option func(*API)

// WithNoticeStats adds the dispatcher counters to the health report.
func WithNoticeStats(s NoticeStats) Option {
	return func(a *API) {
		a.notices = s
	}
}

func New(l *ledger.Ledger, opts ...Option) *API {
	a := &API{ledger: l, started: time.Now()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type PingResponse struct {
	Status  string           `json:"status"`
	Uptime  string           `json:"uptime"`
	Time    string           `json:"time"`
	Notices *messenger.Stats `json:"notices,omitempty"`
}

func (a *API) Ping(c *fiber.Ctx) error {
	now := time.Now()
	resp := PingResponse{
		Status: "ok",
		Uptime: now.Sub(a.started).Round(time.Second).String(),
		Time:   now.UTC().Format(time.RFC3339),
	}
	if a.notices != nil {
		stats := a.notices.Stats()
		resp.Notices = &stats
	}
	return c.JSON(resp)
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler renders errors returned by handlers as {"code","message"}.
// Ledger sentinels decide the status; everything unrecognized is a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, code := classify(err)

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error().Stack().Err(err).Str("RequestID", requestID(c)).Str("Path", c.Path()).Msg("unhandled error")
		message = "internal server error"
	}

	return c.Status(status).JSON(ErrorResponse{Code: code, Message: message})
}

func classify(err error) (int, string) {
	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.StatusConflict, "insufficient_funds"
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrConflict):
		return fiber.StatusConflict, "conflict"
	case errors.Is(err, ledger.ErrInvalidIntent):
		return fiber.StatusUnprocessableEntity, "invalid_intent"
	case errors.Is(err, ledger.ErrInvalidArgument):
		return fiber.StatusUnprocessableEntity, "invalid_argument"
	case errors.Is(err, ledger.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable, "store_unavailable"
	case errors.As(err, &fiberErr):
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return fiberErr.Code, "not_found"
		case fiber.StatusMethodNotAllowed:
			return fiberErr.Code, "method_not_allowed"
		case fiber.StatusBadRequest:
			return fiberErr.Code, "bad_request"
		}
		return fiberErr.Code, "error"
	default:
		return fiber.StatusInternalServerError, "internal"
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(middleware.RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func badRequest(format string, args ...interface{}) error {
	return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf(format, args...))
}

func portfolioID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid portfolio id %q", ledger.ErrInvalidArgument, raw)
	}
	return id, nil
}

func queryInt(c *fiber.Ctx, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ledger.ErrInvalidArgument, key)
	}
	return v, nil
}

// MarshalJSON is the encoder installed on the fiber app.
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
