// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runner

import (
	"errors"
	"fmt"
	"time"
)

// ErrEchoMismatch is reported when sent text does not come back.
var ErrEchoMismatch = errors.New("echo mismatch")

// Result is the outcome of one scenario.
type Result struct {
	Name string

	// Events is the number of events drained, at most MaxEvents.
	Events int

	// Capped is set when the stream was closed at the cap.
	Capped bool

	Duration time.Duration
	Err      error

	// Texts are the text parts received, in arrival order.
	Texts []string
}

// Report collects the results of a run.
type Report struct {
	Results []Result
}

// OK reports whether every scenario succeeded.
func (r Report) OK() bool {
	return r.Err() == nil
}

// Err joins the scenario errors, nil when all passed.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Events is the total number of events drained.
func (r Report) Events() int {
	n := 0
	for _, res := range r.Results {
		n += res.Events
	}
	return n
}
