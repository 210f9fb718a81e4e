package storage

import (
	"context"

	"github.com/marcus-crane/mediaspyy/config"
	"github.com/marcus-crane/mediaspyy/media"
)

type Backend int

const (
	BackendInternal Backend = iota
	BackendExternal
)

func (b Backend) String() string {
	if b == BackendExternal {
		return "external"
	}
	return "internal"
}

func SelectBackend(s config.Settings) Backend {
	if s.UseExternal {
		return BackendExternal
	}
	return BackendInternal
}

// Selector routes every call to either the internal or external store based
// on the useExternal setting at the time of the call. It never remembers
// which one it used last.
type Selector struct {
	Settings config.SettingsService
	Internal Store
	External Store
}

func (s *Selector) resolve(ctx context.Context) (Store, error) {
	settings, err := s.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if SelectBackend(settings) == BackendExternal {
		return s.External, nil
	}
	return s.Internal, nil
}

func (s *Selector) Push(ctx context.Context, r media.Record) (media.Record, error) {
	store, err := s.resolve(ctx)
	if err != nil {
		return r, err
	}
	return store.Push(ctx, r)
}

func (s *Selector) Peek(ctx context.Context) (*media.Record, error) {
	store, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return store.Peek(ctx)
}

func (s *Selector) Last(ctx context.Context, n int) ([]media.Record, error) {
	store, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return store.Last(ctx, n)
}

func (s *Selector) Delete(ctx context.Context, id string) error {
	store, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	return Delete(ctx, store, id)
}
