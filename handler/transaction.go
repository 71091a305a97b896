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
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/stashmock/ledger-api/ledger"
)

// SubmitTransaction admits and records one transaction. With ?dry_run=true
// the intent is only checked against the current ledger.
func (a *API) SubmitTransaction(c *fiber.Ctx) error {
	id, err := portfolioID(c)
	if err != nil {
		return err
	}

	req := transactionRequest{}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest("could not parse request body: %s", err)
	}

	entry, err := req.entry()
	if err != nil {
		return err
	}

	if dryRun, _ := strconv.ParseBool(c.Query("dry_run")); dryRun {
		if err := a.ledger.Admit(c.UserContext(), id, entry); err != nil {
			return err
		}
		return c.JSON(admitResponse{Admitted: true})
	}

	trx, err := a.ledger.SubmitTransaction(c.UserContext(), id, entry)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newTransactionResponse(trx))
}

// ListTransactions pages through the ledger newest first. next_before_id is
// set when the page is full.
func (a *API) ListTransactions(c *fiber.Ctx) error {
	id, err := portfolioID(c)
	if err != nil {
		return err
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	beforeID, err := queryInt(c, "before_id")
	if err != nil {
		return err
	}

	trxs, err := a.ledger.ListTransactions(c.UserContext(), id, int(limit), beforeID)
	if err != nil {
		return err
	}

	resp := transactionList{Transactions: make([]transactionResponse, 0, len(trxs))}
	for _, trx := range trxs {
		resp.Transactions = append(resp.Transactions, newTransactionResponse(trx))
	}
	if n := len(trxs); n > 0 && n == ledger.ClampLimit(int(limit)) {
		next := trxs[n-1].ID
		resp.NextBeforeID = &next
	}
	return c.JSON(resp)
}
