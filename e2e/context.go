// Package e2e drives a running arisan server through its HTTP API.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestContext holds per-scenario state. Actor names in feature files are
// suffixed with a scenario nonce so reruns against a long-lived server never
// collide.
type TestContext struct {
	baseURL    string
	signingKey []byte
	issuer     string
	audience   string
	client     *http.Client

	nonce      string
	lastStatus int
	lastBody   []byte
	values     map[string]string
}

func NewTestContext() *TestContext {
	return &TestContext{
		baseURL:    env("ARISAN_E2E_URL", "http://localhost:8080"),
		signingKey: []byte(env("JWT_SIGNING_KEY", "dev-secret-key-change-in-production")),
		issuer:     env("JWT_ISSUER", "arisan"),
		audience:   env("JWT_AUDIENCE", "arisan-api"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Reset starts a fresh scenario.
func (tc *TestContext) Reset() {
	tc.nonce = uuid.NewString()[:8]
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.values = map[string]string{}
}

// Actor maps a feature-file name to its scenario address.
func (tc *TestContext) Actor(name string) string {
	return "e2e-" + name + "-" + tc.nonce
}

func (tc *TestContext) Remember(key, value string) { tc.values[key] = value }

func (tc *TestContext) Recall(key string) string { return tc.values[key] }

func (tc *TestContext) token(actor string) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   tc.Actor(actor),
		Issuer:    tc.issuer,
		Audience:  jwt.ClaimStrings{tc.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		ID:        uuid.NewString(),
	}).SignedString(tc.signingKey)
}

// Do sends a request. An empty actor sends it unauthenticated.
func (tc *TestContext) Do(ctx context.Context, method, path, actor string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		token, err := tc.token(actor)
		if err != nil {
			return fmt.Errorf("sign token for %s: %w", actor, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GET(ctx context.Context, path string) error {
	return tc.Do(ctx, http.MethodGet, path, "", nil)
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

func (tc *TestContext) LastBody() []byte { return tc.lastBody }

// Decode unmarshals the last response body into v.
func (tc *TestContext) Decode(v any) error {
	if err := json.Unmarshal(tc.lastBody, v); err != nil {
		return fmt.Errorf("decode response %q: %w", tc.lastBody, err)
	}
	return nil
}

// ExpectStatus fails with the response body when the last status differs.
func (tc *TestContext) ExpectStatus(want int) error {
	if tc.lastStatus != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, tc.lastStatus, tc.lastBody)
	}
	return nil
}
