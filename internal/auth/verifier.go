// Package auth verifies third-party identity tokens. The verifier trusts
// RS256 ID tokens signed by a key published at a JWKS endpoint; keys are
// cached with a TTL so steady-state verification makes no network calls.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultKeysURL is the Google certificate endpoint in JWK format.
const DefaultKeysURL = "https://www.googleapis.com/oauth2/v3/certs"

// ErrInvalidToken covers every verification failure the caller does not
// need to distinguish.
var ErrInvalidToken = errors.New("invalid identity token")

// Claims is the verified identity attached to a player.
type Claims struct {
	SubjectID  string
	Email      string
	Name       string
	PictureURL string
}

type idTokenClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// Verifier checks ID tokens against a remote key set. All mutable state
// (the key cache) lives on the instance.
type Verifier struct {
	audience string
	keysURL  string
	ttl      time.Duration
	client   *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewVerifier builds a verifier for tokens issued to the given audience.
// An empty audience skips the audience check (useful in development).
func NewVerifier(audience, keysURL string, ttl time.Duration) *Verifier {
	if keysURL == "" {
		keysURL = DefaultKeysURL
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Verifier{
		audience: audience,
		keysURL:  keysURL,
		ttl:      ttl,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify validates the credential's signature, expiry, and audience, and
// returns the identity claims it carries.
func (v *Verifier) Verify(ctx context.Context, credential string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.ParseWithClaims(credential, &idTokenClaims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrInvalidToken
		}
		return v.keyForID(ctx, kid)
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*idTokenClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Claims{
		SubjectID:  claims.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
		PictureURL: claims.Picture,
	}, nil
}

// keyForID serves from the cache while it is fresh and refetches the key
// set otherwise. An unknown kid forces a refetch once; signing keys
// rotate.
func (v *Verifier) keyForID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fresh := time.Since(v.fetchedAt) < v.ttl
	if fresh {
		if key, ok := v.keys[kid]; ok {
			return key, nil
		}
	}
	if err := v.refetchLocked(ctx); err != nil {
		return nil, err
	}
	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no key with id %q in key set", kid)
	}
	return key, nil
}

func (v *Verifier) refetchLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keysURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching key set: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("key set endpoint returned %d", resp.StatusCode)
	}
	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decoding key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("key set contained no usable keys")
	}
	v.keys = keys
	v.fetchedAt = time.Now()
	return nil
}

func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
