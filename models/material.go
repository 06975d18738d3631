package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AirtableRecord is a row as returned by the Airtable REST API.
// Fields is keyed by the column display name.
type AirtableRecord struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type airtableListResponse struct {
	Records []AirtableRecord `json:"records"`
	Offset  string           `json:"offset"`
}

// Material is the normalized projection of an Airtable record.
type Material struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	Brand            *string `json:"brand"`
	Supplier         *string `json:"supplier"`
	Price            Price   `json:"price"`
	Description      string  `json:"description"`
	TechnicalParams  string  `json:"technicalParams"`
	PhotoURL         *string `json:"photoUrl"`
	TechnicalSummary string  `json:"technicalSummary,omitempty"`
	SuggestedUse     string  `json:"suggestedUse,omitempty"`
	CreatedAt        string  `json:"createdAt,omitempty"`
	UpdatedAt        string  `json:"updatedAt,omitempty"`
	BimID            string  `json:"bimId"`
}

// Price is either a numeric amount or a free-text label ("sob consulta", "-").
// It serializes as a JSON number when Amount is set and as a string otherwise.
type Price struct {
	Amount *decimal.Decimal
	Label  string
}

// NumericPrice returns a Price holding d.
func NumericPrice(d decimal.Decimal) Price {
	return Price{Amount: &d}
}

// IsNumeric reports whether the price carries an amount.
func (p Price) IsNumeric() bool {
	return p.Amount != nil
}

func (p Price) String() string {
	if p.Amount != nil {
		return p.Amount.String()
	}
	return p.Label
}

func (p Price) MarshalJSON() ([]byte, error) {
	if p.Amount != nil {
		return []byte(p.Amount.String()), nil
	}
	return json.Marshal(p.Label)
}

func (p *Price) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		*p = Price{Label: label}
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	*p = NumericPrice(d)
	return nil
}

// MaterialInput is the body accepted when creating a material.
// Price may arrive as a JSON number or as a string typed in a form.
type MaterialInput struct {
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Category    string `json:"category" validate:"omitempty,max=100"`
	Brand       string `json:"brand" validate:"omitempty,max=100"`
	Price       any    `json:"price"`
	Supplier    string `json:"supplier" validate:"omitempty,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	TechParams  string `json:"techParams" validate:"omitempty,max=2000"`
}
