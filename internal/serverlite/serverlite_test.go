package serverlite

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
	"github.com/omega-networks/mapkit-auth/sdk/go/mapkit_verifier"
)

const adminKey = "lite-admin"

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func start(t *testing.T, opts Options) (*Server, *client) {
	t.Helper()
	opts.AdminKey = adminKey
	srv, err := NewServer(opts)
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return srv, &client{t: t, base: srv.URL(), http: &http.Client{Timeout: 5 * time.Second}}
}

func (c *client) do(method, path string, body interface{}, admin bool) (*http.Response, []byte) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminKey)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

func (c *client) configure(key *ecdsa.PrivateKey) {
	c.t.Helper()
	resp, body := c.do(http.MethodGet, "/api/v1/admin/nonce", nil, true)
	require.Equal(c.t, http.StatusOK, resp.StatusCode, string(body))
	var env struct {
		Data dto.NonceResponse `json:"data"`
	}
	require.NoError(c.t, json.Unmarshal(body, &env))

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(c.t, err)
	resp, body = c.do(http.MethodPut, "/api/v1/admin/settings", map[string]string{
		"key_id":      "ABC1234567",
		"team_id":     "TEAM123456",
		"private_key": string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"nonce":       env.Data.Nonce,
	}, true)
	require.Equal(c.t, http.StatusOK, resp.StatusCode, string(body))
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func TestServerLite_IssuesVerifiableToken(t *testing.T) {
	_, c := start(t, Options{SiteURL: "https://Maps.Example.com:8443/wp"})

	resp, _ := c.do(http.MethodGet, "/api/v1/mapkit/token", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	key := newKey(t)
	c.configure(key)

	resp, body := c.do(http.MethodGet, "/api/v1/mapkit/token", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	tok, err := mapkit_verifier.NewVerifier(&key.PublicKey,
		mapkit_verifier.WithKeyID("ABC1234567"),
		mapkit_verifier.WithTeamID("TEAM123456"),
		mapkit_verifier.WithOrigin("https://Maps.Example.com"),
	).Verify(string(body))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, tok.ExpiresAt.Sub(tok.IssuedAt))
}

func TestServerLite_LocalEnvironmentOmitsOrigin(t *testing.T) {
	_, c := start(t, Options{SiteURL: "http://localhost:8080", Environment: "local"})
	key := newKey(t)
	c.configure(key)

	resp, body := c.do(http.MethodPost, "/api/v1/mapkit/token", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	tok, err := mapkit_verifier.NewVerifier(&key.PublicKey).Verify(string(body))
	require.NoError(t, err)
	assert.Empty(t, tok.Origin)
}

func TestServerLite_FixedClock(t *testing.T) {
	issued := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	_, c := start(t, Options{SiteURL: "https://maps.example.com", Clock: func() time.Time { return issued }})
	key := newKey(t)
	c.configure(key)

	_, body := c.do(http.MethodGet, "/api/v1/mapkit/token", nil, false)
	tok, err := mapkit_verifier.Decode(string(body))
	require.NoError(t, err)
	assert.Equal(t, issued, tok.IssuedAt)
	assert.Equal(t, issued.Add(time.Hour), tok.ExpiresAt)
}

func TestServerLite_RateLimitAndHealth(t *testing.T) {
	_, c := start(t, Options{SiteURL: "https://maps.example.com", RenderRPM: 2})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := c.do(http.MethodGet, "/api/v1/mapkit/token", nil, false)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, statuses)

	resp, _ := c.do(http.MethodGet, "/health/ready", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := c.do(http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "mapkit_rate_limit_hits_total")
}

func TestServerLite_AppIsShared(t *testing.T) {
	srv, c := start(t, Options{SiteURL: "https://maps.example.com"})
	key := newKey(t)
	c.configure(key)

	settings, err := srv.App.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "authorized", string(settings.Settings.Status))
}
