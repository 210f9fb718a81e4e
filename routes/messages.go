package routes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/marcus-crane/mediaspyy/changes"
	"github.com/marcus-crane/mediaspyy/media"
	"github.com/marcus-crane/mediaspyy/storage"
)

// Message keys understood by the extension
const (
	KeyChange          = "ChangeHandler_Change"
	KeyHistory         = "ChangeHandler_History"
	KeyHistoryResponse = "ChangeHandler_HistoryResponse"
	KeyHistoryError    = "ChangeHandler_HistoryError"
	KeyDeleteItem      = "ChangeHandler_DeleteItem"
)

type Message struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data,omitempty"`
}

func handleMessage(h *changes.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			renderJSONMessage(w, http.StatusBadRequest, "failed to decode message")
			return
		}

		switch msg.Key {
		case KeyChange:
			var record media.Record
			if err := json.Unmarshal(msg.Data, &record); err != nil {
				renderJSONMessage(w, http.StatusBadRequest, "failed to decode media record")
				return
			}
			if err := record.Validate(); err != nil {
				renderJSONMessage(w, http.StatusBadRequest, err.Error())
				return
			}
			// The browser doesn't wait around for this so it shouldn't be able to cancel it
			h.HandleChange(context.WithoutCancel(r.Context()), record)
			writeJSON(w, http.StatusAccepted, struct{}{})
		case KeyHistory:
			records, err := h.History(r.Context())
			renderHistory(w, records, err)
		case KeyDeleteItem:
			var record media.Record
			if err := json.Unmarshal(msg.Data, &record); err != nil || record.ID == "" {
				renderJSONMessage(w, http.StatusBadRequest, "an id is required to delete an item")
				return
			}
			records, err := h.Delete(r.Context(), record.ID)
			renderHistory(w, records, err)
		default:
			renderJSONMessage(w, http.StatusBadRequest, "unknown message key")
		}
	}
}

func renderHistory(w http.ResponseWriter, records []media.Record, err error) {
	if err != nil {
		slog.Error("Failed to load history", slog.String("error", err.Error()))
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, storage.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, storage.ErrDeleteUnsupported):
			status = http.StatusNotImplemented
		}
		data, _ := json.Marshal(err.Error())
		writeJSON(w, status, Message{Key: KeyHistoryError, Data: data})
		return
	}
	if records == nil {
		records = []media.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		renderJSONMessage(w, http.StatusInternalServerError, "failed to encode history")
		return
	}
	writeJSON(w, http.StatusOK, Message{Key: KeyHistoryResponse, Data: data})
}
