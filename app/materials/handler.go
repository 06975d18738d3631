package materials

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/fapac/materiais-bff/app/respond"
	"github.com/fapac/materiais-bff/models"
)

type ListResponse struct {
	OK    bool              `json:"ok"`
	Count int               `json:"count"`
	Data  []models.Material `json:"data"`
}

type ItemResponse struct {
	OK   bool             `json:"ok"`
	Data *models.Material `json:"data"`
}

type DeleteResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

type AuditResponse struct {
	OK    bool                `json:"ok"`
	Count int                 `json:"count"`
	Data  []models.AuditEntry `json:"data"`
}

type MaterialsProvider interface {
	List(ctx context.Context) ([]models.Material, error)
	Get(ctx context.Context, id string) (*models.Material, error)
	Create(ctx context.Context, input models.MaterialInput) (*models.Material, error)
	Remove(ctx context.Context, id string) error
}

type AuditStore interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

type MaterialsHandler struct {
	repo  MaterialsProvider
	audit AuditStore
}

// NewMaterialsHandler builds the handler. audit may be nil.
func NewMaterialsHandler(r MaterialsProvider, audit AuditStore) *MaterialsHandler {
	return &MaterialsHandler{
		repo:  r,
		audit: audit,
	}
}

// Routes mounts the materials API under r.
func (h *MaterialsHandler) Routes(r chi.Router) {
	r.Route("/api/materiais", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
	})
	r.Get("/api/audit", h.HandleAudit)
}

func (h *MaterialsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	res, err := h.repo.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if res == nil {
		res = []models.Material{}
	}

	respond.JSON(w, http.StatusOK, ListResponse{
		OK:    true,
		Count: len(res),
		Data:  res,
	})
}

func (h *MaterialsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	material, err := h.repo.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ItemResponse{OK: true, Data: material})
}

func (h *MaterialsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input models.MaterialInput
	if err := respond.DecodeJSON(r, &input); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	material, err := h.repo.Create(r.Context(), input)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.record(r, models.AuditCreate, material.ID, material.Name)

	respond.JSON(w, http.StatusCreated, ItemResponse{OK: true, Data: material})
}

func (h *MaterialsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Remove(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	h.record(r, models.AuditDelete, id, "")

	respond.JSON(w, http.StatusOK, DeleteResponse{
		OK:      true,
		Message: "Material removido com sucesso",
		ID:      id,
	})
}

func (h *MaterialsHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respond.Fail(w, http.StatusNotFound, "audit trail is not enabled")
		return
	}

	limit := 50
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil {
			if l < 1 {
				limit = 1
			} else if l > 200 {
				limit = 200
			} else {
				limit = l
			}
		}
	}

	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}

	respond.JSON(w, http.StatusOK, AuditResponse{
		OK:    true,
		Count: len(entries),
		Data:  entries,
	})
}

// record stores an audit entry. Failures are logged and never reach the client.
func (h *MaterialsHandler) record(r *http.Request, action, id, name string) {
	if h.audit == nil {
		return
	}
	entry := &models.AuditEntry{
		Action:       action,
		MaterialID:   id,
		MaterialName: name,
		RequestID:    middleware.GetReqID(r.Context()),
	}
	if err := h.audit.Record(r.Context(), entry); err != nil {
		log.Error().Err(err).Str("action", action).Str("material_id", id).Msg("record audit entry")
	}
}
