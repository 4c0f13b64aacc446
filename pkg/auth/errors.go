// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import "errors"

// Common authentication errors.
var (
	// ErrNoCredentials is returned when the card requires authentication
	// and no requirement could be satisfied.
	ErrNoCredentials = errors.New("no credentials for any security requirement of the agent")

	// ErrUnsupportedKey is returned for private keys that cannot sign JWTs.
	ErrUnsupportedKey = errors.New("unsupported private key type")

	// ErrMissingKeyFile is returned when JWT signing has no key file.
	ErrMissingKeyFile = errors.New("jwt key file is required")
)
