package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fapac/materiais-bff/observability"
)

// DefaultAirtableURL is the Airtable REST API root.
const DefaultAirtableURL = "https://api.airtable.com/v0"

// HTTPDoer is the transport used for upstream calls. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AirtableConfig identifies the table holding the materials catalog.
type AirtableConfig struct {
	APIURL string
	Token  string
	BaseID string
	Table  string
}

// MaterialsGateway reads and writes materials in Airtable.
// It holds no state besides its configuration; every call is a fresh request.
type MaterialsGateway struct {
	cfg    AirtableConfig
	client HTTPDoer
}

func NewMaterialsGateway(cfg AirtableConfig, client HTTPDoer) *MaterialsGateway {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAirtableURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &MaterialsGateway{
		cfg:    cfg,
		client: client,
	}
}

// List returns every material in upstream order, following pagination.
func (g *MaterialsGateway) List(ctx context.Context) ([]Material, error) {
	var records []AirtableRecord
	offset := ""
	for {
		query := url.Values{}
		if offset != "" {
			query.Set("offset", offset)
		}

		var page airtableListResponse
		if _, err := g.do(ctx, "list", http.MethodGet, "", query, nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)

		if page.Offset == "" || page.Offset == offset {
			break
		}
		offset = page.Offset
	}

	return ProjectMaterials(records), nil
}

// Get returns a single material.
func (g *MaterialsGateway) Get(ctx context.Context, id string) (*Material, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}

	var rec AirtableRecord
	status, err := g.do(ctx, "get", http.MethodGet, "/"+url.PathEscape(id), nil, nil, &rec)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, &NotFoundError{ID: id}
		}
		return nil, err
	}

	m := ProjectMaterial(rec)
	return &m, nil
}

// Create validates input, writes it to Airtable and returns the stored material.
// Validation failures never reach the network.
func (g *MaterialsGateway) Create(ctx context.Context, input MaterialInput) (*Material, error) {
	fields, err := input.AirtableFields()
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"fields":   fields,
		"typecast": true,
	}

	var rec AirtableRecord
	if _, err := g.do(ctx, "create", http.MethodPost, "", nil, body, &rec); err != nil {
		return nil, err
	}

	m := ProjectMaterial(rec)
	return &m, nil
}

// Remove deletes a material by id.
func (g *MaterialsGateway) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}

	status, err := g.do(ctx, "delete", http.MethodDelete, "/"+url.PathEscape(id), nil, nil, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return &NotFoundError{ID: id}
		}
		return err
	}
	return nil
}

func (g *MaterialsGateway) checkConfig() error {
	var missing []string
	if g.cfg.Token == "" {
		missing = append(missing, "AIRTABLE_API_TOKEN")
	}
	if g.cfg.BaseID == "" {
		missing = append(missing, "AIRTABLE_BASE_ID")
	}
	if g.cfg.Table == "" {
		missing = append(missing, "AIRTABLE_TABLE_NAME")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

func (g *MaterialsGateway) tableURL(path string) string {
	return fmt.Sprintf("%s/%s/%s%s",
		strings.TrimRight(g.cfg.APIURL, "/"),
		url.PathEscape(g.cfg.BaseID),
		url.PathEscape(g.cfg.Table),
		path,
	)
}

// do performs one upstream call and decodes a 2xx body into out.
// The returned status is 0 when no response was received.
func (g *MaterialsGateway) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (int, error) {
	if err := g.checkConfig(); err != nil {
		return 0, err
	}

	target := g.tableURL(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		observability.ObserveUpstream("airtable", op, 0, start)
		return 0, fmt.Errorf("airtable %s: %w", op, err)
	}
	defer resp.Body.Close()
	observability.ObserveUpstream("airtable", op, resp.StatusCode, start)

	log.Debug().
		Str("op", op).
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("airtable call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode airtable %s response: %w", op, err)
	}
	return resp.StatusCode, nil
}

// AirtableFields validates the input and returns it keyed by the canonical
// outbound column names. Blank optional fields are omitted.
func (in MaterialInput) AirtableFields() (map[string]any, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	fields := map[string]any{ColumnName: strings.TrimSpace(in.Name)}

	optional := []struct {
		column string
		value  string
	}{
		{ColumnCategory, in.Category},
		{ColumnBrand, in.Brand},
		{ColumnSupplier, in.Supplier},
		{ColumnDescription, in.Description},
		{ColumnTechnicalParams, in.TechParams},
	}
	for _, f := range optional {
		if v := strings.TrimSpace(f.value); v != "" {
			fields[f.column] = v
		}
	}

	price, ok, err := parseInputPrice(in.Price)
	if err != nil {
		return nil, err
	}
	if ok {
		fields[ColumnPrice] = json.Number(price.String())
	}

	return fields, nil
}

func parseInputPrice(raw any) (decimal.Decimal, bool, error) {
	invalid := &ValidationError{Field: "price", Message: "must be a number"}

	switch v := raw.(type) {
	case nil:
		return decimal.Decimal{}, false, nil
	case float64:
		return decimal.NewFromFloat(v), true, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, false, invalid
		}
		return d, true, nil
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "€"))
		if s == "" {
			return decimal.Decimal{}, false, nil
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
		if err != nil {
			return decimal.Decimal{}, false, invalid
		}
		return d, true, nil
	}
	return decimal.Decimal{}, false, invalid
}
