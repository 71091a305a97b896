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
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// CreatePortfolio opens an empty portfolio for an existing user.
func (a *API) CreatePortfolio(c *fiber.Ctx) error {
	req := createPortfolioRequest{}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest("could not parse request body: %s", err)
	}

	p, err := a.ledger.CreatePortfolio(c.UserContext(), req.UserID, req.Name, req.RiskLevel)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(newPortfolioResponse(p))
}

// GetPortfolio returns the portfolio record without its valuation.
func (a *API) GetPortfolio(c *fiber.Ctx) error {
	id, err := portfolioID(c)
	if err != nil {
		return err
	}

	p, err := a.ledger.GetPortfolio(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(newPortfolioResponse(p))
}

// GetSummary folds the full ledger of the portfolio into cash, positions
// and total value.
func (a *API) GetSummary(c *fiber.Ctx) error {
	id, err := portfolioID(c)
	if err != nil {
		return err
	}

	summary, err := a.ledger.GetSummary(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(newSummaryResponse(summary))
}
