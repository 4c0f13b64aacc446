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

import (
	"fmt"

	"github.com/kadirpekel/a2aprobe/pkg/config"
)

// NewServiceFromConfig builds the credential chain: explicit credentials,
// then the environment, then the JWT signer when configured.
func NewServiceFromConfig(cfg *config.AuthConfig) (CredentialService, error) {
	if cfg == nil {
		return Chain{Env{Prefix: config.DefaultEnvPrefix}}, nil
	}

	// Ensure defaults are applied
	cfg.SetDefaults()

	chain := Chain{
		NewStore(cfg.Credentials),
		Env{Prefix: cfg.EnvPrefix},
	}

	if cfg.JWT != nil {
		signer, err := LoadJWTSigner(cfg.JWT)
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT signer: %w", err)
		}
		chain = append(chain, signer)
	}

	return chain, nil
}
