// Package aps signs users in with Autodesk Platform Services and proxies the
// Data Management endpoints the model browser needs.
package aps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fapac/materiais-bff/models"
	"github.com/fapac/materiais-bff/observability"
)

const (
	DefaultBaseURL = "https://developer.api.autodesk.com"

	authorizePath = "/authentication/v2/authorize"
	tokenPath     = "/authentication/v2/token"

	// Upstream error bodies are cut to this many characters.
	errorBodyLimit = 100
)

var (
	// UserScopes are requested on the 3-legged login.
	UserScopes = []string{"data:read", "viewables:read"}
	// ViewerScopes are granted to the 2-legged viewer token.
	ViewerScopes = []string{"viewables:read"}
)

// Config holds the APS application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	BaseURL      string
}

// Token is an APS access token as returned by the token endpoint.
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TTL is the time left before the token expires.
func (t Token) TTL(now time.Time) time.Duration {
	if t.ExpiresAt.IsZero() {
		return time.Duration(t.ExpiresIn) * time.Second
	}
	return t.ExpiresAt.Sub(now)
}

type Client struct {
	cfg  Config
	http models.HTTPDoer
	now  func() time.Time
}

func NewClient(cfg Config, doer models.HTTPDoer) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		cfg:  cfg,
		http: doer,
		now:  time.Now,
	}
}

// AuthorizeURL is where the browser is sent to grant access.
func (c *Client) AuthorizeURL(scopes []string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.CallbackURL)
	q.Set("scope", strings.Join(scopes, " "))
	return c.cfg.BaseURL + authorizePath + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for a user token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.CallbackURL)
	return c.token(ctx, "exchange_code", form)
}

// InternalToken returns a 2-legged token for server-side calls.
func (c *Client) InternalToken(ctx context.Context, scopes []string) (*Token, error) {
	if len(scopes) == 0 {
		scopes = []string{"data:read", "bucket:read"}
	}
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")
	form.Set("scope", strings.Join(scopes, " "))
	return c.token(ctx, "internal_token", form)
}

func (c *Client) token(ctx context.Context, op string, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("aps %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok Token
	if err := c.do(req, op, &tok); err != nil {
		return nil, err
	}
	tok.ExpiresAt = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return &tok, nil
}

// Get calls an APS API path with accessToken and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, accessToken, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("aps get: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var raw json.RawMessage
	if err := c.do(req, "dm", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveUpstream("aps", op, 0, start)
		return fmt.Errorf("aps %s: %w", op, err)
	}
	defer resp.Body.Close()
	observability.ObserveUpstream("aps", op, resp.StatusCode, start)

	log.Debug().
		Str("upstream", "aps").
		Str("operation", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &models.UpstreamError{Status: resp.StatusCode, Body: truncate(string(body), errorBodyLimit)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("aps %s: decode response: %w", op, err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
