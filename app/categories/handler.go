package categories

import (
	"context"
	"net/http"
	"sort"

	"github.com/fapac/materiais-bff/app/respond"
	"github.com/fapac/materiais-bff/models"
)

type CategoryResponse struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ListResponse struct {
	OK    bool               `json:"ok"`
	Count int                `json:"count"`
	Data  []CategoryResponse `json:"data"`
}

type MaterialLister interface {
	List(ctx context.Context) ([]models.Material, error)
}

type CategoryHandler struct {
	repo MaterialLister
}

func NewCategoryHandler(r MaterialLister) *CategoryHandler {
	return &CategoryHandler{repo: r}
}

// HandleGetAll summarizes the catalog by category, sorted by name.
// Every call reads a fresh list from the upstream.
func (h *CategoryHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	materials, err := h.repo.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	response := Summarize(materials)
	respond.JSON(w, http.StatusOK, ListResponse{
		OK:    true,
		Count: len(response),
		Data:  response,
	})
}

// Summarize counts materials per category.
func Summarize(materials []models.Material) []CategoryResponse {
	counts := make(map[string]int)
	for _, m := range materials {
		counts[m.Category]++
	}

	response := make([]CategoryResponse, 0, len(counts))
	for name, count := range counts {
		response = append(response, CategoryResponse{Name: name, Count: count})
	}
	sort.Slice(response, func(i, j int) bool {
		return response[i].Name < response[j].Name
	})
	return response
}
