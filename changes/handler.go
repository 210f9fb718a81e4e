// Package changes decides which playback snapshots are worth keeping.
package changes

import (
	"context"
	"log/slog"

	"github.com/marcus-crane/mediaspyy/config"
	"github.com/marcus-crane/mediaspyy/events"
	"github.com/marcus-crane/mediaspyy/media"
	"github.com/marcus-crane/mediaspyy/storage"
)

type Publisher interface {
	Publish(stream string, v any) error
}

// Handler stores a snapshot only when it differs from the most recently
// stored one. Concurrent changes aren't serialised, so two different
// snapshots arriving together can both be compared against the same record.
type Handler struct {
	Store    storage.Store
	Settings config.SettingsService
	Metrics  *Metrics
	// Events is optional, stored records are published to it when set
	Events Publisher
}

func NewHandler(store storage.Store, settings config.SettingsService, metrics *Metrics) *Handler {
	return &Handler{
		Store:    store,
		Settings: settings,
		Metrics:  metrics,
	}
}

// HandleChange never returns an error. The browser side has no way to act
// on one, so failures are logged and counted instead.
func (h *Handler) HandleChange(ctx context.Context, r media.Record) {
	h.Metrics.incReceived()

	last, err := h.Store.Peek(ctx)
	if err != nil {
		h.Metrics.incFailure(opPeek)
		slog.Error("Failed to load last stored media, dropping change",
			slog.String("title", r.Title),
			slog.String("error", err.Error()))
		return
	}
	if last != nil && media.Equal(*last, r) {
		h.Metrics.incDuplicate()
		slog.Debug("Media unchanged", slog.String("title", r.Title))
		return
	}

	stored, err := h.Store.Push(ctx, r)
	if err != nil {
		h.Metrics.incFailure(opPush)
		slog.Error("Failed to store media change",
			slog.String("title", r.Title),
			slog.String("error", err.Error()))
		return
	}
	h.Metrics.incStored()
	slog.Debug("Stored media change",
		slog.String("title", stored.Title),
		slog.String("artist", stored.Artist),
		slog.String("state", string(stored.PlaybackState)))

	if h.Events != nil {
		if err := h.Events.Publish(events.StreamHistory, stored); err != nil {
			slog.Warn("Failed to publish media change", slog.String("error", err.Error()))
		}
	}
}

// History returns the newest historyEntries records, newest first
func (h *Handler) History(ctx context.Context) ([]media.Record, error) {
	settings, err := h.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return h.Store.Last(ctx, settings.HistoryEntries)
}

// Delete removes a record and hands back the history as it now stands
func (h *Handler) Delete(ctx context.Context, id string) ([]media.Record, error) {
	if err := storage.Delete(ctx, h.Store, id); err != nil {
		return nil, err
	}
	return h.History(ctx)
}
