package routes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marcus-crane/mediaspyy/media"
	"github.com/marcus-crane/mediaspyy/storage"
)

const defaultPageSize = 10

// MediaServer serves the same API that storage.Remote talks to, so one
// instance can act as the external history for others
type MediaServer struct {
	Store    storage.Store
	User     string
	Password string
}

func (m *MediaServer) Routes(r chi.Router) {
	r.Use(middleware.BasicAuth("mediaspyy", map[string]string{m.User: m.Password}))
	r.Get("/", m.list)
	r.Post("/", m.create)
	r.Delete("/{id}", m.delete)
}

// list answers in storage order, oldest first
func (m *MediaServer) list(w http.ResponseWriter, r *http.Request) {
	size := defaultPageSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			renderJSONMessage(w, http.StatusBadRequest, "size must be a number")
			return
		}
		size = n
	}
	records, err := m.Store.Last(r.Context(), size)
	if err != nil {
		slog.Error("Failed to read served history", slog.String("error", err.Error()))
		renderJSONMessage(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	writeJSON(w, http.StatusOK, records)
}

func (m *MediaServer) create(w http.ResponseWriter, r *http.Request) {
	var record media.Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		renderJSONMessage(w, http.StatusBadRequest, "failed to decode media record")
		return
	}
	if err := record.Validate(); err != nil {
		renderJSONMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	stored, err := m.Store.Push(r.Context(), record)
	if err != nil {
		slog.Error("Failed to store served media", slog.String("error", err.Error()))
		renderJSONMessage(w, http.StatusInternalServerError, "failed to store media")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (m *MediaServer) delete(w http.ResponseWriter, r *http.Request) {
	err := storage.Delete(r.Context(), m.Store, chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, storage.ErrNotFound):
		renderJSONMessage(w, http.StatusNotFound, "media not found")
	case errors.Is(err, storage.ErrDeleteUnsupported):
		renderJSONMessage(w, http.StatusMethodNotAllowed, "deleting media is not supported")
	default:
		slog.Error("Failed to delete served media", slog.String("error", err.Error()))
		renderJSONMessage(w, http.StatusInternalServerError, "failed to delete media")
	}
}
