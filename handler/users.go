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

// CreateUser registers a user with a caller chosen id.
func (a *API) CreateUser(c *fiber.Ctx) error {
	req := createUserRequest{}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest("could not parse request body: %s", err)
	}

	user, err := a.ledger.CreateUser(c.UserContext(), req.ID, req.Email)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(userResponse{ID: user.ID, Email: user.Email})
}
