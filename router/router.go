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

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stashmock/ledger-api/handler"
	"github.com/stashmock/ledger-api/middleware"
)

// New builds the fiber app with JSON error rendering, tracing and access
// logging installed.
func New(api *handler.API) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "ledger-api",
		ErrorHandler:          handler.ErrorHandler,
		JSONEncoder:           handler.MarshalJSON,
		DisableStartupMessage: true,
	})

	app.Use(middleware.NewTracer())
	app.Use(middleware.NewLogger())

	SetupRoutes(app, api)
	return app
}

func SetupRoutes(app *fiber.App, api *handler.API) {
	app.Get("/health", api.Ping)

	app.Post("/users", api.CreateUser)

	portfolio := app.Group("/portfolios")
	portfolio.Post("/", api.CreatePortfolio)
	portfolio.Get("/:id", api.GetPortfolio)
	portfolio.Get("/:id/summary", api.GetSummary)
	portfolio.Post("/:id/transactions", api.SubmitTransaction)
	portfolio.Get("/:id/transactions", api.ListTransactions)
}
