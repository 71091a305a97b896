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

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		"id"      TEXT PRIMARY KEY,
		"email"   TEXT NOT NULL UNIQUE,
		"created" TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS portfolios (
		"id"         BIGSERIAL PRIMARY KEY,
		"user_id"    TEXT NOT NULL REFERENCES users ("id"),
		"name"       TEXT NOT NULL,
		"risk_level" TEXT NOT NULL CHECK ("risk_level" IN ('low', 'medium', 'high')),
		"created"    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS portfolios_user_id_idx ON portfolios ("user_id")`,

	// rows are append only; the CHECK keeps each kind to its own columns
	`CREATE TABLE IF NOT EXISTS transactions (
		"id"           BIGSERIAL PRIMARY KEY,
		"portfolio_id" BIGINT NOT NULL REFERENCES portfolios ("id"),
		"kind"         TEXT NOT NULL,
		"symbol"       TEXT,
		"quantity"     NUMERIC(18, 6),
		"price"        NUMERIC(18, 2),
		"amount"       NUMERIC(18, 2),
		"created_at"   TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT transactions_shape CHECK (
			("kind" IN ('deposit', 'withdraw')
				AND "amount" > 0 AND "symbol" IS NULL AND "quantity" IS NULL AND "price" IS NULL)
			OR
			("kind" IN ('buy', 'sell')
				AND "amount" IS NULL AND "symbol" <> '' AND "quantity" > 0 AND "price" > 0)
		)
	)`,

	`CREATE INDEX IF NOT EXISTS transactions_portfolio_id_idx ON transactions ("portfolio_id", "id")`,
}
