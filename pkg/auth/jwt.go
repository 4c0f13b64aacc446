package auth

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/kadirpekel/a2aprobe/pkg/config"
)

// refreshBefore is how long before expiry a cached token is replaced.
const refreshBefore = 30 * time.Second

// JWTOptions are the claims and lifetime of minted tokens.
type JWTOptions struct {
	// Scheme restricts the signer to one security scheme. Empty answers
	// for every scheme.
	Scheme   a2a.SecuritySchemeName
	Issuer   string
	Audience string
	Subject  string
	KeyID    string
	TTL      time.Duration
}

// JWTSigner mints short-lived self-signed bearer tokens and caches each
// one until shortly before it expires.
type JWTSigner struct {
	opts JWTOptions
	key  jwk.Key
	alg  jwa.SignatureAlgorithm
	now  func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewJWTSigner parses a PEM encoded RSA, ECDSA or Ed25519 private key.
func NewJWTSigner(pemKey []byte, opts JWTOptions) (*JWTSigner, error) {
	key, err := jwk.ParseKey(pemKey, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	alg, err := signingAlgorithm(key)
	if err != nil {
		return nil, err
	}

	if opts.KeyID != "" {
		if err := key.Set(jwk.KeyIDKey, opts.KeyID); err != nil {
			return nil, fmt.Errorf("failed to set key id: %w", err)
		}
	}
	if opts.TTL <= 0 {
		opts.TTL = config.DefaultJWTTTL
	}

	return &JWTSigner{opts: opts, key: key, alg: alg, now: time.Now}, nil
}

// LoadJWTSigner reads the key file named by cfg.
func LoadJWTSigner(cfg *config.JWTConfig) (*JWTSigner, error) {
	if cfg == nil || cfg.KeyFile == "" {
		return nil, ErrMissingKeyFile
	}
	data, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read jwt key file: %w", err)
	}
	return NewJWTSigner(data, JWTOptions{
		Scheme:   a2a.SecuritySchemeName(cfg.Scheme),
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Subject:  cfg.Subject,
		KeyID:    cfg.KeyID,
		TTL:      cfg.TTL,
	})
}

func signingAlgorithm(key jwk.Key) (jwa.SignatureAlgorithm, error) {
	switch k := key.(type) {
	case jwk.RSAPrivateKey:
		return jwa.RS256, nil
	case jwk.ECDSAPrivateKey:
		switch k.Crv() {
		case jwa.P256:
			return jwa.ES256, nil
		case jwa.P384:
			return jwa.ES384, nil
		case jwa.P521:
			return jwa.ES512, nil
		}
	case jwk.OKPPrivateKey:
		return jwa.EdDSA, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedKey, key.KeyType())
}

// Algorithm returns the signature algorithm derived from the key.
func (s *JWTSigner) Algorithm() jwa.SignatureAlgorithm {
	return s.alg
}

func (s *JWTSigner) Credential(_ context.Context, scheme a2a.SecuritySchemeName) (string, bool, error) {
	if s.opts.Scheme != "" && s.opts.Scheme != scheme {
		return "", false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expires.Add(-refreshBefore)) {
		return s.token, true, nil
	}

	token, expires, err := s.sign(now)
	if err != nil {
		return "", false, err
	}
	s.token, s.expires = token, expires
	return token, true, nil
}

func (s *JWTSigner) sign(now time.Time) (string, time.Time, error) {
	expires := now.Add(s.opts.TTL)

	token := jwt.New()
	claims := map[string]any{
		jwt.IssuedAtKey:   now,
		jwt.NotBeforeKey:  now,
		jwt.ExpirationKey: expires,
		jwt.JwtIDKey:      uuid.NewString(),
	}
	if s.opts.Issuer != "" {
		claims[jwt.IssuerKey] = s.opts.Issuer
	}
	if s.opts.Audience != "" {
		claims[jwt.AudienceKey] = s.opts.Audience
	}
	if s.opts.Subject != "" {
		claims[jwt.SubjectKey] = s.opts.Subject
	}
	for k, v := range claims {
		if err := token.Set(k, v); err != nil {
			return "", time.Time{}, fmt.Errorf("failed to set claim %s: %w", k, err)
		}
	}

	signed, err := jwt.Sign(token, jwt.WithKey(s.alg, s.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), expires, nil
}

var _ CredentialService = (*JWTSigner)(nil)
