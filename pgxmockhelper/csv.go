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

// Package pgxmockhelper loads CSV fixtures into pgxmock result sets and
// registers the query expectations shared by the database tests.
package pgxmockhelper

import (
	"io/ioutil"
	"strconv"
	"strings"
	"time"

	"github.com/pashagolub/pgxmock"
	"github.com/rs/zerolog/log"
)

type CSVRows struct {
	rows   [][]any
	header []string
	idCol  int
}

// NewCSVRows reads csvFn. typeMap converts named columns to `int64` or
// `timestamp` (RFC 3339); other columns stay strings. A column named id is
// used by Before.
func NewCSVRows(csvFn string, typeMap map[string]string) *CSVRows {
	subLog := log.With().Str("CsvFn", csvFn).Logger()

	rows := &CSVRows{
		idCol: -1,
		rows:  make([][]any, 0),
	}
	rawData, err := ioutil.ReadFile(csvFn)
	if err != nil {
		subLog.Panic().Err(err).Msg("could not read file")
	}

	lines := strings.Split(string(rawData), "\n")
	if len(lines) < 2 {
		subLog.Panic().Int("NumLines", len(lines)).Msg("input file does not have enough lines, need at least 2 (header + trailing new line)")
	}
	if lines[len(lines)-1] != "" {
		subLog.Panic().Msg("input file is missing a trailing new line")
	}

	rows.header = strings.Split(lines[0], ",")
	for idx, name := range rows.header {
		if name == "id" {
			rows.idCol = idx
		}
	}

	for _, ll := range lines[1 : len(lines)-1] {
		parts := strings.Split(ll, ",")
		if len(parts) != len(rows.header) {
			subLog.Panic().Str("Line", ll).Msg("column count does not match header")
		}
		cols := make([]any, len(rows.header))
		for idx, val := range parts {
			switch typeMap[rows.header[idx]] {
			case "int64":
				parsed, err := strconv.ParseInt(val, 10, 64)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to int64")
				}
				cols[idx] = parsed
			case "timestamp":
				parsed, err := time.Parse(time.RFC3339, val)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to timestamp")
				}
				cols[idx] = parsed
			default:
				cols[idx] = val
			}
		}
		rows.rows = append(rows.rows, cols)
	}

	return rows
}

// Before keeps rows whose id is less than id.
func (csvRows *CSVRows) Before(id int64) *CSVRows {
	if csvRows.idCol == -1 {
		log.Panic().Int64("BeforeID", id).Msg("no id column found")
	}
	kept := make([][]any, 0, len(csvRows.rows))
	for _, row := range csvRows.rows {
		if row[csvRows.idCol].(int64) < id {
			kept = append(kept, row)
		}
	}
	csvRows.rows = kept
	return csvRows
}

// Newest reverses the rows and keeps at most limit of them, the way a
// newest-first page is returned.
func (csvRows *CSVRows) Newest(limit int) *CSVRows {
	out := make([][]any, 0, limit)
	for ii := len(csvRows.rows) - 1; ii >= 0 && len(out) < limit; ii-- {
		out = append(out, csvRows.rows[ii])
	}
	csvRows.rows = out
	return csvRows
}

func (csvRows *CSVRows) Len() int {
	return len(csvRows.rows)
}

func (csvRows *CSVRows) Rows() *pgxmock.Rows {
	r := pgxmock.NewRows(csvRows.header)
	for _, row := range csvRows.rows {
		r.AddRow(row...)
	}
	return r
}

// TransactionRows loads a transactions fixture in the column order the
// ledger store selects.
func TransactionRows(fn string) *CSVRows {
	return NewCSVRows(fn, map[string]string{
		"id":           "int64",
		"portfolio_id": "int64",
		"created_at":   "timestamp",
	})
}

// MockLockPortfolio expects the transaction and row lock that open a
// portfolio scope.
func MockLockPortfolio(db pgxmock.PgxConnIface, portfolioID int64) {
	db.ExpectBegin()
	db.ExpectQuery(`SELECT "id" FROM portfolios WHERE .* FOR UPDATE`).
		WithArgs(portfolioID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(portfolioID))
}

// MockHistory expects the ascending history query for portfolioID.
func MockHistory(db pgxmock.PgxConnIface, portfolioID int64, rows *CSVRows) {
	db.ExpectQuery(`SELECT .* FROM transactions WHERE .* ORDER BY "id" ASC`).
		WithArgs(portfolioID).
		WillReturnRows(rows.Rows())
}
