package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/marcus-crane/mediaspyy/media"
)

// Memory keeps history for the lifetime of the process only. It has no
// capacity limit so it's meant for debugging and short lived setups.
type Memory struct {
	m    sync.Mutex
	data []media.Record
}

func NewMemory() *Memory {
	return &Memory{
		data: []media.Record{},
	}
}

func (ms *Memory) Push(_ context.Context, r media.Record) (media.Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	ms.m.Lock()
	defer ms.m.Unlock()
	ms.data = append(ms.data, r)
	slog.Debug("Stored media in memory",
		slog.String("id", r.ID),
		slog.Int("size", len(ms.data)))
	return r, nil
}

func (ms *Memory) Peek(_ context.Context) (*media.Record, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	if len(ms.data) == 0 {
		return nil, nil
	}
	r := ms.data[len(ms.data)-1]
	return &r, nil
}

func (ms *Memory) Last(_ context.Context, n int) ([]media.Record, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	return newestFirst(ms.data, n), nil
}

func (ms *Memory) Delete(_ context.Context, id string) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	for i, r := range ms.data {
		if r.ID == id {
			ms.data = append(ms.data[:i:i], ms.data[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
