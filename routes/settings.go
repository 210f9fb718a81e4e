package routes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/marcus-crane/mediaspyy/config"
)

type SettingsStore interface {
	Get(ctx context.Context) (config.Settings, error)
	Update(ctx context.Context, patch map[string]json.RawMessage) (config.Settings, error)
}

// redactedSecret stands in for secrets on the way out. Sending it back in an
// update leaves the stored secret alone.
const redactedSecret = "********"

var secretSettings = []string{"serverPassword", "twitchClientSecret"}

func redact(s config.Settings) config.Settings {
	if s.ServerPassword != "" {
		s.ServerPassword = redactedSecret
	}
	if s.TwitchClientSecret != "" {
		s.TwitchClientSecret = redactedSecret
	}
	return s
}

func dropRedacted(patch map[string]json.RawMessage) {
	for _, name := range secretSettings {
		var v string
		if raw, ok := patch[name]; ok && json.Unmarshal(raw, &v) == nil && v == redactedSecret {
			delete(patch, name)
		}
	}
}

func getSettings(settings SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := settings.Get(r.Context())
		if err != nil {
			slog.Error("Failed to load settings", slog.String("error", err.Error()))
			renderJSONMessage(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		writeJSON(w, http.StatusOK, redact(current))
	}
}

// updateSettings only touches the fields present in the body
func updateSettings(settings SettingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			renderJSONMessage(w, http.StatusBadRequest, "settings must be a JSON object")
			return
		}
		dropRedacted(patch)
		updated, err := settings.Update(r.Context(), patch)
		if errors.Is(err, config.ErrUnknownSetting) || errors.Is(err, config.ErrInvalidSetting) {
			renderJSONMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			slog.Error("Failed to update settings", slog.String("error", err.Error()))
			renderJSONMessage(w, http.StatusInternalServerError, "failed to update settings")
			return
		}
		writeJSON(w, http.StatusOK, redact(updated))
	}
}
