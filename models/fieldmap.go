package models

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldKind selects how a raw Airtable value is coerced.
type FieldKind int

const (
	// KindText accepts strings, numbers, AI-field objects ({"value": ...}),
	// collaborator objects ({"name": ...}) and arrays (first element).
	KindText FieldKind = iota
	// KindPrice keeps JSON numbers numeric and any other value as text.
	KindPrice
	// KindAttachment resolves the first attachment's url, falling back to
	// its small thumbnail url. A plain string is taken as the url.
	KindAttachment
)

// FieldRule maps one Material field from an ordered list of Airtable columns.
type FieldRule struct {
	Target   string
	Sources  []string
	Kind     FieldKind
	Default  string
	Nullable bool

	set func(m *Material, v fieldValue)
}

type fieldValue struct {
	text  string
	price Price
	null  bool
}

func (v fieldValue) ptr() *string {
	if v.null {
		return nil
	}
	s := v.text
	return &s
}

// MaterialFields is the inbound mapping table, in projection order.
var MaterialFields = []FieldRule{
	{
		Target: "name", Sources: []string{"Nome do Material", "name"},
		Kind: KindText, Default: "Sem Nome",
		set: func(m *Material, v fieldValue) { m.Name = v.text },
	},
	{
		Target: "category", Sources: []string{"Categoria", "category"},
		Kind: KindText, Default: "Geral",
		set: func(m *Material, v fieldValue) { m.Category = v.text },
	},
	{
		Target: "brand", Sources: []string{"Marca", "Brand"},
		Kind: KindText, Nullable: true,
		set: func(m *Material, v fieldValue) { m.Brand = v.ptr() },
	},
	{
		Target: "supplier", Sources: []string{"Fornecedor", "Nome do Utilizador"},
		Kind: KindText, Nullable: true,
		set: func(m *Material, v fieldValue) { m.Supplier = v.ptr() },
	},
	{
		Target: "price", Sources: []string{"Preço", "Price", "Cost"},
		Kind: KindPrice, Default: "-",
		set: func(m *Material, v fieldValue) { m.Price = v.price },
	},
	{
		Target: "description", Sources: []string{"Descrição", "Notes"},
		Kind: KindText,
		set:  func(m *Material, v fieldValue) { m.Description = v.text },
	},
	{
		Target: "technicalParams", Sources: []string{"Parâmetros Técnicos", "techParams"},
		Kind: KindText,
		set:  func(m *Material, v fieldValue) { m.TechnicalParams = v.text },
	},
	{
		Target: "photoUrl", Sources: []string{"Foto do Material", "Imagem", "Foto", "Attachments"},
		Kind: KindAttachment, Nullable: true,
		set: func(m *Material, v fieldValue) { m.PhotoURL = v.ptr() },
	},
	{
		Target: "technicalSummary", Sources: []string{"Parâmetros Técnicos Resumidos (AI)"},
		Kind: KindText,
		set:  func(m *Material, v fieldValue) { m.TechnicalSummary = v.text },
	},
	{
		Target: "suggestedUse", Sources: []string{"Sugestão de Aplicação (AI)"},
		Kind: KindText,
		set:  func(m *Material, v fieldValue) { m.SuggestedUse = v.text },
	},
	{
		Target: "createdAt", Sources: []string{"Data de Adição"},
		Kind: KindText,
		set:  func(m *Material, v fieldValue) { m.CreatedAt = v.text },
	},
	{
		Target: "updatedAt", Sources: []string{"Última Modificação"},
		Kind: KindText,
		set:  func(m *Material, v fieldValue) { m.UpdatedAt = v.text },
	},
	{
		Target: "bimId", Sources: []string{"BIM_ID"},
		Kind: KindText,
		set:  func(m *Material, v fieldValue) { m.BimID = v.text },
	},
}

// Outbound column names used when writing a material to Airtable.
const (
	ColumnName            = "Nome do Material"
	ColumnCategory        = "Categoria"
	ColumnBrand           = "Marca"
	ColumnPrice           = "Preço"
	ColumnSupplier        = "Fornecedor"
	ColumnDescription     = "Descrição"
	ColumnTechnicalParams = "Parâmetros Técnicos"
)

// ProjectMaterial builds a Material from rec using MaterialFields.
// Missing or malformed columns fall back to the rule's default.
func ProjectMaterial(rec AirtableRecord) Material {
	m := Material{ID: rec.ID}
	for _, rule := range MaterialFields {
		v, ok := rule.resolve(rec.Fields)
		if !ok {
			v = rule.fallback()
		}
		rule.set(&m, v)
	}
	if m.BimID == "" {
		m.BimID = rec.ID
	}
	return m
}

// ProjectMaterials maps every record, preserving order.
func ProjectMaterials(records []AirtableRecord) []Material {
	out := make([]Material, len(records))
	for i, rec := range records {
		out[i] = ProjectMaterial(rec)
	}
	return out
}

func (r FieldRule) resolve(fields map[string]any) (fieldValue, bool) {
	for _, key := range r.Sources {
		raw, ok := fields[key]
		if !ok || raw == nil {
			continue
		}
		if v, ok := r.coerce(raw); ok {
			return v, true
		}
	}
	return fieldValue{}, false
}

func (r FieldRule) fallback() fieldValue {
	if r.Nullable {
		return fieldValue{null: true}
	}
	return fieldValue{text: r.Default, price: Price{Label: r.Default}}
}

func (r FieldRule) coerce(raw any) (fieldValue, bool) {
	switch r.Kind {
	case KindPrice:
		if d, ok := numericValue(raw); ok {
			return fieldValue{price: NumericPrice(d)}, true
		}
		s, ok := textValue(raw)
		return fieldValue{text: s, price: Price{Label: s}}, ok
	case KindAttachment:
		s, ok := attachmentURL(raw)
		return fieldValue{text: s}, ok
	default:
		s, ok := textValue(raw)
		return fieldValue{text: s}, ok
	}
}

func numericValue(raw any) (decimal.Decimal, bool) {
	switch n := raw.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	}
	return decimal.Decimal{}, false
}

func textValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	case []any:
		for _, item := range v {
			if s, ok := textValue(item); ok {
				return s, true
			}
		}
	case []string:
		for _, item := range v {
			if s, ok := textValue(item); ok {
				return s, true
			}
		}
	case map[string]any:
		for _, key := range []string{"value", "name", "email"} {
			if inner, ok := v[key]; ok && inner != nil {
				if s, ok := textValue(inner); ok {
					return s, true
				}
			}
		}
	}
	return "", false
}

func attachmentURL(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case []any:
		if len(v) == 0 {
			return "", false
		}
		first, ok := v[0].(map[string]any)
		if !ok {
			return textValue(v[0])
		}
		if s, ok := first["url"].(string); ok && s != "" {
			return s, true
		}
		thumbs, _ := first["thumbnails"].(map[string]any)
		small, _ := thumbs["small"].(map[string]any)
		if s, ok := small["url"].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
