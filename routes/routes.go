package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/marcus-crane/mediaspyy/changes"
	"github.com/marcus-crane/mediaspyy/config"
)

type Options struct {
	Changes  *changes.Handler
	Settings SettingsStore
	// The rest are optional and their routes are left out when nil
	MediaServer    *MediaServer
	Events         http.Handler
	Metrics        http.Handler
	AllowedOrigins []string
}

func renderJSONMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", slog.String("error", err.Error()))
	}
}

func New(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		renderJSONMessage(w, http.StatusOK, "This is MediaSpyy, it keeps track of what your browser has been playing")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			renderJSONMessage(w, http.StatusOK, "This is the v1 endpoint of the API")
		})
		r.Post("/messages", handleMessage(opts.Changes))
		r.Get("/settings", getSettings(opts.Settings))
		r.Put("/settings", updateSettings(opts.Settings))
	})

	if opts.MediaServer != nil {
		r.Route("/media", opts.MediaServer.Routes)
	}
	if opts.Events != nil {
		r.Handle("/events", opts.Events)
	}
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	// rs/cors allows any origin when given none
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = config.ExtensionOrigins
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
	})

	return c.Handler(r)
}
