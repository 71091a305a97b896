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

import "fmt"

// Admit decides whether candidate may be appended to history. It returns the
// normalized candidate and the projection of history it was checked against.
//
// Only cash is guarded. Selling a symbol that is not held opens a short
// position and is accepted.
func Admit(history []*Transaction, candidate Entry) (Entry, *Projection, error) {
	entry, err := validate(candidate)
	if err != nil {
		return nil, nil, err
	}

	proj := Project(history)
	delta := entry.CashDelta()
	if !delta.IsNegative() {
		return entry, proj, nil
	}

	if proj.Cash.Add(delta).IsNegative() {
		return nil, proj, fmt.Errorf("%w: cash %s, required %s", ErrInsufficientFunds,
			FormatMoney(proj.Cash), FormatMoney(delta.Neg()))
	}

	return entry, proj, nil
}
