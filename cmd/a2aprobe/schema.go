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

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/invopop/jsonschema"

	"github.com/kadirpekel/a2aprobe/pkg/config"
)

// SchemaCmd generates JSON Schema for the probe config file, for editor
// completion of a2aprobe.yaml.
type SchemaCmd struct {
	Compact bool `help:"Compact JSON output (no indentation)."`
}

// Run executes the schema generation command.
func (c *SchemaCmd) Run(out io.Writer) error {
	encoder := json.NewEncoder(out)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(configSchema()); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}

func configSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		// Config files are YAML; property names follow the yaml tags.
		FieldNameTag:              "yaml",
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.ID = "https://github.com/kadirpekel/a2aprobe/schemas/config.json"
	schema.Title = "a2aprobe Configuration Schema"
	schema.Description = "Configuration for the a2aprobe A2A client probe"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	schema.Examples = []any{
		map[string]any{
			"server": map[string]any{
				"url": config.DefaultServerURL,
			},
			"run": map[string]any{
				"max_events": config.DefaultMaxEvents,
				"scenarios": []any{
					map[string]any{
						"name":        "Echo check",
						"expect_echo": true,
						"parts":       []any{map[string]any{"text": "ping"}},
					},
				},
			},
		},
	}
	return schema
}
