// Package ifc lists the IFC models stored on disk and serves them to the viewer.
package ifc

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fapac/materiais-bff/app/respond"
)

// ModelsPrefix is the public URL prefix of the model files.
const ModelsPrefix = "/models/"

type File struct {
	Name string `json:"name"`
	Size string `json:"size"`
	Date string `json:"date"`
	URL  string `json:"url"`
}

type MetadataResponse struct {
	File      string `json:"file"`
	Status    string `json:"status"`
	Processed bool   `json:"processed"`
	Info      string `json:"info"`
}

type Handler struct {
	dir string
}

func NewHandler(dir string) *Handler {
	return &Handler{dir: dir}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/ifc/files", h.HandleFiles)
	r.Get("/api/ifc/metadata/{filename}", h.HandleMetadata)
	r.Handle(ModelsPrefix+"*", http.StripPrefix(ModelsPrefix, http.FileServer(http.Dir(h.dir))))
}

// HandleFiles lists the .ifc files in the models directory, creating it
// when missing.
func (h *Handler) HandleFiles(w http.ResponseWriter, r *http.Request) {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", h.dir).Msg("create models dir")
		respond.Fail(w, http.StatusInternalServerError, "Erro ao aceder à pasta de modelos.")
		return
	}

	files, err := List(h.dir)
	if err != nil {
		log.Error().Err(err).Str("dir", h.dir).Msg("list models")
		respond.Fail(w, http.StatusInternalServerError, "Não foi possível listar os ficheiros.")
		return
	}
	respond.JSON(w, http.StatusOK, files)
}

func (h *Handler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, MetadataResponse{
		File:      chi.URLParam(r, "filename"),
		Status:    "available",
		Processed: true,
		Info:      "Modelo IFC detetado no sistema local.",
	})
}

// List returns the .ifc files in dir in name order.
func List(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".ifc") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, File{
			Name: e.Name(),
			Size: fmt.Sprintf("%.2f MB", float64(info.Size())/(1024*1024)),
			Date: info.ModTime().UTC().Format("2006-01-02"),
			URL:  ModelsPrefix + e.Name(),
		})
	}
	return files, nil
}
