// Package catalog is the client side of the materials API: it holds the fetched
// list, filters it locally and renders it as a table or as a card grid.
package catalog

import (
	"strings"

	"github.com/fapac/materiais-bff/models"
)

// View selects how the filtered list is rendered.
type View int

const (
	TableView View = iota
	GridView
)

func (v View) String() string {
	if v == GridView {
		return "grid"
	}
	return "table"
}

// State is the client's application state. It is only changed through
// SetMaterials, ApplyFilter and the view setters.
type State struct {
	all  []models.Material
	term string
	view View
}

func NewState() *State {
	return &State{}
}

// SetMaterials replaces the whole list.
func (s *State) SetMaterials(materials []models.Material) {
	s.all = append([]models.Material(nil), materials...)
}

func (s *State) All() []models.Material {
	return s.all
}

// ApplyFilter stores term and returns the matching materials.
func (s *State) ApplyFilter(term string) []models.Material {
	s.term = term
	return s.Visible()
}

func (s *State) Term() string {
	return s.term
}

func (s *State) View() View {
	return s.view
}

func (s *State) SetView(v View) {
	s.view = v
}

// ToggleView switches between table and grid and returns the new view.
func (s *State) ToggleView() View {
	if s.view == GridView {
		s.view = TableView
	} else {
		s.view = GridView
	}
	return s.view
}

// Visible is the list filtered by the current term.
func (s *State) Visible() []models.Material {
	return Filter(s.all, s.term)
}

// Filter returns the materials whose name, category or brand contains term,
// ignoring case. An empty term matches everything.
func Filter(materials []models.Material, term string) []models.Material {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Material, 0, len(materials))
	for _, m := range materials {
		if term == "" || matches(m, term) {
			out = append(out, m)
		}
	}
	return out
}

func matches(m models.Material, term string) bool {
	if strings.Contains(strings.ToLower(m.Name), term) ||
		strings.Contains(strings.ToLower(m.Category), term) {
		return true
	}
	return m.Brand != nil && strings.Contains(strings.ToLower(*m.Brand), term)
}

// AuditResult counts model elements whose material is in the catalog.
type AuditResult struct {
	Certified int
	Unknown   int
	Missing   []string
}

// Audit checks model element material names against the catalog.
// Names match when equal after trimming and lowercasing; blanks are unknown.
func (s *State) Audit(names []string) AuditResult {
	known := make(map[string]struct{}, len(s.all))
	for _, m := range s.all {
		known[normalizeName(m.Name)] = struct{}{}
	}

	var res AuditResult
	seen := make(map[string]struct{})
	for _, name := range names {
		key := normalizeName(name)
		if _, ok := known[key]; ok && key != "" {
			res.Certified++
			continue
		}
		res.Unknown++
		if _, dup := seen[key]; !dup && key != "" {
			seen[key] = struct{}{}
			res.Missing = append(res.Missing, strings.TrimSpace(name))
		}
	}
	return res
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
