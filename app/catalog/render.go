package catalog

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fapac/materiais-bff/models"
)

const emptyMessage = "Nenhum material encontrado."

// Renderer writes a list of materials to w.
type Renderer interface {
	Render(w io.Writer, materials []models.Material) error
}

// RendererFor returns the renderer for v.
func RendererFor(v View) Renderer {
	if v == GridView {
		return GridRenderer{}
	}
	return TableRenderer{}
}

// Render writes the visible materials with the renderer selected by the view.
func (s *State) Render(w io.Writer) error {
	return RendererFor(s.view).Render(w, s.Visible())
}

// TableRenderer writes one row per material.
type TableRenderer struct{}

func (TableRenderer) Render(w io.Writer, materials []models.Material) error {
	if len(materials) == 0 {
		_, err := fmt.Fprintln(w, emptyMessage)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOME\tMARCA\tCATEGORIA\tPREÇO\tFORNECEDOR")
	for _, m := range materials {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Name, brandOf(m), m.Category, DisplayPrice(m.Price), supplierOf(m))
	}
	return tw.Flush()
}

// GridRenderer writes one card per material.
type GridRenderer struct{}

func (GridRenderer) Render(w io.Writer, materials []models.Material) error {
	if len(materials) == 0 {
		_, err := fmt.Fprintln(w, emptyMessage)
		return err
	}

	for i, m := range materials {
		lines := []string{
			m.Name,
			"Marca: " + brandOf(m),
			m.Category,
			DisplayPrice(m.Price),
			"id: " + m.ID,
		}
		if m.PhotoURL != nil {
			lines = append(lines, "foto: "+*m.PhotoURL)
		}
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, card(lines)); err != nil {
			return err
		}
	}
	return nil
}

func card(lines []string) string {
	width := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > width {
			width = n
		}
	}

	var sb strings.Builder
	border := "+" + strings.Repeat("-", width+2) + "+\n"
	sb.WriteString(border)
	for _, l := range lines {
		pad := width - len([]rune(l))
		sb.WriteString("| " + l + strings.Repeat(" ", pad) + " |\n")
	}
	sb.WriteString(border)
	return sb.String()
}

// DisplayPrice formats numeric prices in euros and returns labels as-is.
func DisplayPrice(p models.Price) string {
	if p.IsNumeric() {
		return p.String() + " €"
	}
	if p.Label == "" {
		return "-"
	}
	return p.Label
}

func brandOf(m models.Material) string {
	if m.Brand == nil {
		return "-"
	}
	return *m.Brand
}

func supplierOf(m models.Material) string {
	if m.Supplier == nil {
		return "Desconhecido"
	}
	return *m.Supplier
}
