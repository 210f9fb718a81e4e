package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/marcus-crane/mediaspyy/db"
	"github.com/marcus-crane/mediaspyy/media"
)

const (
	DefaultKey      = "media"
	DefaultCapacity = 100
)

// Local persists history as a single JSON array in the key-value store,
// oldest first. Once Capacity is reached the oldest records are dropped to
// make room, so the array never grows past Capacity.
type Local struct {
	Store    db.Store
	Key      string
	Capacity int

	// Serialises read-modify-write cycles within this process
	m sync.Mutex
}

func NewLocal(store db.Store) *Local {
	return &Local{
		Store:    store,
		Key:      DefaultKey,
		Capacity: DefaultCapacity,
	}
}

func (l *Local) capacity() int {
	if l.Capacity <= 0 {
		return DefaultCapacity
	}
	return l.Capacity
}

func (l *Local) load(ctx context.Context) ([]media.Record, error) {
	raw, err := l.Store.Get(ctx, l.Key)
	if errors.Is(err, db.ErrNotFound) {
		return []media.Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	var records []media.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode stored history: %w", err)
	}
	return records, nil
}

func (l *Local) save(ctx context.Context, records []media.Record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return l.Store.Set(ctx, l.Key, raw)
}

func (l *Local) Push(ctx context.Context, r media.Record) (media.Record, error) {
	l.m.Lock()
	defer l.m.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return r, err
	}

	keep := l.capacity() - 1
	if len(records) > keep {
		slog.Debug("Evicting oldest media from history",
			slog.Int("evicted", len(records)-keep),
			slog.Int("capacity", l.capacity()))
		records = records[len(records)-keep:]
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	records = append(records, r)

	// One write for the whole array, so a failure leaves the old one in place
	if err := l.save(ctx, records); err != nil {
		return r, err
	}
	return r, nil
}

func (l *Local) Peek(ctx context.Context) (*media.Record, error) {
	records, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	r := records[len(records)-1]
	return &r, nil
}

func (l *Local) Last(ctx context.Context, n int) ([]media.Record, error) {
	records, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return newestFirst(records, n), nil
}

func (l *Local) Delete(ctx context.Context, id string) error {
	l.m.Lock()
	defer l.m.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return err
	}
	for i, r := range records {
		if r.ID == id {
			return l.save(ctx, append(records[:i:i], records[i+1:]...))
		}
	}
	return ErrNotFound
}
