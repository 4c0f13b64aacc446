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

// Package auth supplies credentials to outgoing A2A calls.
//
// Credentials are looked up per security scheme name, the way the agent
// card declares them:
//
//	auth:
//	  credentials:
//	    BearerAuth: ${AGENT_TOKEN}
//	  env_prefix: A2A_
//	  jwt:
//	    key_file: ./probe.pem
//	    audience: echo-agent
//
// The Interceptor walks the card's security requirements and sets the
// matching headers on every call.
package auth

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"
)

// CredentialService resolves the credential for a security scheme.
// ok is false when the service has none.
type CredentialService interface {
	Credential(ctx context.Context, scheme a2a.SecuritySchemeName) (cred string, ok bool, err error)
}

// Store is an in-memory CredentialService. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	creds map[a2a.SecuritySchemeName]string
}

// NewStore returns a store seeded from creds.
func NewStore(creds map[string]string) *Store {
	s := &Store{creds: make(map[a2a.SecuritySchemeName]string, len(creds))}
	for name, cred := range creds {
		if cred != "" {
			s.creds[a2a.SecuritySchemeName(name)] = cred
		}
	}
	return s
}

// Set stores cred for scheme. An empty cred removes it.
func (s *Store) Set(scheme a2a.SecuritySchemeName, cred string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred == "" {
		delete(s.creds, scheme)
		return
	}
	s.creds[scheme] = cred
}

func (s *Store) Credential(_ context.Context, scheme a2a.SecuritySchemeName) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[scheme]
	return cred, ok, nil
}

// Env reads credentials from environment variables named Prefix followed
// by the upper-cased scheme name, with characters other than letters and
// digits replaced by '_'. BearerAuth with prefix A2A_ reads A2A_BEARERAUTH.
type Env struct {
	Prefix string
}

// VarName returns the variable Env reads for scheme.
func (e Env) VarName(scheme a2a.SecuritySchemeName) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, string(scheme))
	return e.Prefix + name
}

func (e Env) Credential(_ context.Context, scheme a2a.SecuritySchemeName) (string, bool, error) {
	cred, ok := os.LookupEnv(e.VarName(scheme))
	if !ok || cred == "" {
		return "", false, nil
	}
	return cred, true, nil
}

// Chain asks each service in order and returns the first hit.
type Chain []CredentialService

func (c Chain) Credential(ctx context.Context, scheme a2a.SecuritySchemeName) (string, bool, error) {
	for _, svc := range c {
		if svc == nil {
			continue
		}
		cred, ok, err := svc.Credential(ctx, scheme)
		if err != nil {
			return "", false, err
		}
		if ok {
			return cred, true, nil
		}
	}
	return "", false, nil
}

var (
	_ CredentialService = (*Store)(nil)
	_ CredentialService = Env{}
	_ CredentialService = Chain(nil)
)
