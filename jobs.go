package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/marcus-crane/mediaspyy/changes"
	"github.com/marcus-crane/mediaspyy/config"
	"github.com/marcus-crane/mediaspyy/events"
	"github.com/marcus-crane/mediaspyy/storage"
)

const defaultLivenessInterval = time.Minute

func SetupInBackground(cfg config.Config, settings config.SettingsService, checker storage.LivenessChecker, publisher changes.Publisher) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.Spyy.LivenessInterval) * time.Second
	if interval <= 0 {
		interval = defaultLivenessInterval
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(probeLiveness, settings, checker, publisher),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// probeLiveness lets SSE clients see the stream status without waiting for
// a media change to go through the liveness gate
func probeLiveness(settings config.SettingsService, checker storage.LivenessChecker, publisher changes.Publisher) {
	ctx := context.Background()
	current, err := settings.Get(ctx)
	if err != nil {
		slog.Error("Failed to load settings for liveness probe", slog.String("error", err.Error()))
		return
	}
	if !current.QueryOnlineStatus {
		return
	}

	status := events.Liveness{User: current.TwitchUser, CheckedAt: time.Now().Unix()}
	live, err := checker.IsActive(ctx)
	if err != nil {
		slog.Error("Liveness probe failed",
			slog.String("twitch_user", current.TwitchUser),
			slog.String("error", err.Error()))
		status.Error = err.Error()
	} else {
		status.Live = live
	}

	if err := publisher.Publish(events.StreamLiveness, status); err != nil {
		slog.Warn("Failed to publish liveness", slog.String("error", err.Error()))
	}
}
