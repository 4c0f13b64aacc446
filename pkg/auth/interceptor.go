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

package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
)

// Interceptor applies credentials to outgoing calls according to the
// security requirements of the agent card.
//
// Requirements are alternatives: the first one whose every scheme has a
// credential is applied. A card without security requirements leaves the
// request untouched.
type Interceptor struct {
	a2aclient.PassthroughInterceptor

	Service CredentialService

	// RequireAuth fails the call with ErrNoCredentials when the card asks
	// for authentication and no requirement can be satisfied. Otherwise the
	// call proceeds unauthenticated and the agent decides.
	RequireAuth bool
}

// NewInterceptor creates an interceptor backed by svc.
func NewInterceptor(svc CredentialService, requireAuth bool) *Interceptor {
	return &Interceptor{Service: svc, RequireAuth: requireAuth}
}

// Before sets the authentication headers in req.Meta.
func (i *Interceptor) Before(ctx context.Context, req *a2aclient.Request) (context.Context, error) {
	card := req.Card
	if card == nil || len(card.Security) == 0 || i.Service == nil {
		return ctx, nil
	}

	for _, requirement := range card.Security {
		headers, ok, err := i.resolve(ctx, card, requirement)
		if err != nil {
			return ctx, err
		}
		if !ok {
			continue
		}
		if req.Meta == nil {
			req.Meta = a2aclient.CallMeta{}
		}
		for k, v := range headers {
			req.Meta[k] = append(req.Meta[k], v...)
		}
		return ctx, nil
	}

	if i.RequireAuth {
		return ctx, ErrNoCredentials
	}
	slog.Debug("No security requirement satisfied, sending unauthenticated", "method", req.Method)
	return ctx, nil
}

// resolve builds the headers of one requirement. ok is false when any of
// its schemes lacks a credential or cannot be applied.
func (i *Interceptor) resolve(ctx context.Context, card *a2a.AgentCard, requirement a2a.SecurityRequirements) (map[string][]string, bool, error) {
	headers := map[string][]string{}

	for _, name := range slices.Sorted(maps.Keys(requirement)) {
		scheme, ok := card.SecuritySchemes[name]
		if !ok {
			slog.Debug("Security requirement references unknown scheme", "scheme", name)
			return nil, false, nil
		}

		cred, ok, err := i.Service.Credential(ctx, name)
		if err != nil {
			return nil, false, fmt.Errorf("failed to get credential for %s: %w", name, err)
		}
		if !ok {
			return nil, false, nil
		}

		if !apply(headers, name, scheme, cred) {
			return nil, false, nil
		}
	}
	return headers, true, nil
}

func apply(headers map[string][]string, name a2a.SecuritySchemeName, scheme a2a.SecurityScheme, cred string) bool {
	switch s := scheme.(type) {
	case a2a.HTTPAuthSecurityScheme:
		return applyHTTP(headers, s.Scheme, cred)
	case *a2a.HTTPAuthSecurityScheme:
		return applyHTTP(headers, s.Scheme, cred)
	case a2a.APIKeySecurityScheme:
		return applyAPIKey(headers, name, s.Name, string(s.In), cred)
	case *a2a.APIKeySecurityScheme:
		return applyAPIKey(headers, name, s.Name, string(s.In), cred)
	case a2a.OAuth2SecurityScheme, *a2a.OAuth2SecurityScheme:
		headers["Authorization"] = []string{"Bearer " + cred}
		return true
	default:
		slog.Debug("Skipping unsupported security scheme", "scheme", name, "type", fmt.Sprintf("%T", scheme))
		return false
	}
}

func applyHTTP(headers map[string][]string, scheme, cred string) bool {
	switch strings.ToLower(scheme) {
	case "", "bearer":
		headers["Authorization"] = []string{"Bearer " + cred}
	case "basic":
		if strings.Contains(cred, ":") {
			cred = base64.StdEncoding.EncodeToString([]byte(cred))
		}
		headers["Authorization"] = []string{"Basic " + cred}
	default:
		headers["Authorization"] = []string{scheme + " " + cred}
	}
	return true
}

func applyAPIKey(headers map[string][]string, scheme a2a.SecuritySchemeName, key, in, cred string) bool {
	switch strings.ToLower(in) {
	case "header":
		headers[key] = []string{cred}
	case "cookie":
		cookie := key + "=" + cred
		if prev := headers["Cookie"]; len(prev) > 0 {
			cookie = prev[0] + "; " + cookie
		}
		headers["Cookie"] = []string{cookie}
	default:
		slog.Debug("Skipping API key outside headers", "scheme", scheme, "in", in)
		return false
	}
	return true
}

// Ensure Interceptor implements a2aclient.CallInterceptor
var _ a2aclient.CallInterceptor = (*Interceptor)(nil)
