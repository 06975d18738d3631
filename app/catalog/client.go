package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fapac/materiais-bff/models"
)

// APIError is a failure reported by the materials API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("materials api: %s (status %d)", e.Message, e.Status)
}

type envelope struct {
	OK    bool            `json:"ok"`
	Count int             `json:"count"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Client talks to the materials API.
type Client struct {
	baseURL string
	http    models.HTTPDoer
}

func NewClient(baseURL string, doer models.HTTPDoer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
	}
}

func (c *Client) List(ctx context.Context) ([]models.Material, error) {
	var materials []models.Material
	if err := c.call(ctx, http.MethodGet, "/api/materiais", nil, &materials); err != nil {
		return nil, err
	}
	return materials, nil
}

func (c *Client) Create(ctx context.Context, input models.MaterialInput) (*models.Material, error) {
	var m models.Material
	if err := c.call(ctx, http.MethodPost, "/api/materiais", input, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/materiais/"+url.PathEscape(id), nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body, data any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, decodeErr)
	}
	if !env.OK {
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}

	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return nil
}
