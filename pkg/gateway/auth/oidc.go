package auth

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

var ErrInvalidToken = errors.New("invalid access token")

const maxCachedTokens = 4096

type cachedClaims struct {
	claims  map[string]interface{}
	expires time.Time
}

// OIDCAuthenticator accepts a bearer token when the issuer's userinfo
// endpoint accepts it. Accepted tokens are remembered for cacheTTL, keyed by
// their SHA-256 digest.
type OIDCAuthenticator struct {
	userInfoURL string
	httpc       *http.Client
	cacheTTL    time.Duration
	now         func() time.Time

	mu    sync.Mutex
	cache map[[sha256.Size]byte]cachedClaims
}

// NewOIDCAuthenticator validates against <issuer>/userinfo. A cacheTTL of
// zero disables caching.
func NewOIDCAuthenticator(issuer string, cacheTTL time.Duration, httpc *http.Client) (*OIDCAuthenticator, error) {
	if issuer == "" {
		return nil, fmt.Errorf("OIDC configuration incomplete")
	}
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &OIDCAuthenticator{
		userInfoURL: strings.TrimRight(issuer, "/") + "/userinfo",
		httpc:       httpc,
		cacheTTL:    cacheTTL,
		now:         time.Now,
		cache:       make(map[[sha256.Size]byte]cachedClaims),
	}, nil
}

// ValidateToken returns the userinfo claims for token. A claims set without
// "sub" is rejected.
func (a *OIDCAuthenticator) ValidateToken(ctx context.Context, token string) (map[string]interface{}, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	key := sha256.Sum256([]byte(token))
	if claims, ok := a.cached(key); ok {
		return claims, nil
	}

	claims, err := a.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	a.remember(key, claims)
	return maps.Clone(claims), nil
}

func (a *OIDCAuthenticator) fetchUserInfo(ctx context.Context, token string) (map[string]interface{}, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpc)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var claims map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (a *OIDCAuthenticator) cached(key [sha256.Size]byte) (map[string]interface{}, bool) {
	if a.cacheTTL <= 0 {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.cache[key]
	if !ok {
		return nil, false
	}
	if !a.now().Before(entry.expires) {
		delete(a.cache, key)
		return nil, false
	}
	return maps.Clone(entry.claims), true
}

func (a *OIDCAuthenticator) remember(key [sha256.Size]byte, claims map[string]interface{}) {
	if a.cacheTTL <= 0 {
		return
	}
	now := a.now()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.cache) >= maxCachedTokens {
		for k, entry := range a.cache {
			if !now.Before(entry.expires) {
				delete(a.cache, k)
			}
		}
		if len(a.cache) >= maxCachedTokens {
			clear(a.cache)
		}
	}
	a.cache[key] = cachedClaims{claims: claims, expires: now.Add(a.cacheTTL)}
}
