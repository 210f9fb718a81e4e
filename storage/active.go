package storage

import (
	"context"
	"log/slog"

	"github.com/marcus-crane/mediaspyy/config"
	"github.com/marcus-crane/mediaspyy/media"
)

type LivenessChecker interface {
	IsActive(ctx context.Context) (bool, error)
}

// Active only lets writes through while the tracked stream is live, if
// queryOnlineStatus is switched on. Reads are never gated.
//
// A suppressed push still returns the record it was given, so callers can't
// tell it apart from a real write.
type Active struct {
	Settings config.SettingsService
	Checker  LivenessChecker
	Delegate Store
}

func (a *Active) Push(ctx context.Context, r media.Record) (media.Record, error) {
	settings, err := a.Settings.Get(ctx)
	if err != nil {
		return r, err
	}
	if !settings.QueryOnlineStatus {
		return a.Delegate.Push(ctx, r)
	}

	live, err := a.Checker.IsActive(ctx)
	if err != nil {
		return r, err
	}
	if !live {
		slog.Debug("Stream is offline, not recording media",
			slog.String("twitch_user", settings.TwitchUser),
			slog.String("title", r.Title))
		return r, nil
	}
	return a.Delegate.Push(ctx, r)
}

func (a *Active) Peek(ctx context.Context) (*media.Record, error) {
	return a.Delegate.Peek(ctx)
}

func (a *Active) Last(ctx context.Context, n int) ([]media.Record, error) {
	return a.Delegate.Last(ctx, n)
}

func (a *Active) Delete(ctx context.Context, id string) error {
	return Delete(ctx, a.Delegate, id)
}
