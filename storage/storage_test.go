package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marcus-crane/mediaspyy/config"
	"github.com/marcus-crane/mediaspyy/db"
	"github.com/marcus-crane/mediaspyy/media"
)

func record(title string) media.Record {
	return media.Record{
		Locations:     []media.Location{{Type: media.LocationGeneric, URL: "https://music.example.com/" + title}},
		Title:         title,
		Artist:        "some artist",
		Images:        []media.Image{{Src: "https://img.example.com/" + title + ".jpg"}},
		PlaybackState: media.StatePlaying,
	}
}

func titles(records []media.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Title)
	}
	return out
}

func settingsWith(t *testing.T, update func(*config.Settings)) *config.KVSettings {
	t.Helper()
	s := config.NewKVSettings(db.NewMemoryStore())
	current := config.DefaultSettings()
	update(&current)
	require.NoError(t, s.Set(context.Background(), current))
	return s
}

// countingStore records how often each operation reached it
type countingStore struct {
	*Memory
	pushes, peeks, lasts, deletes int
}

func newCountingStore() *countingStore {
	return &countingStore{Memory: NewMemory()}
}

func (c *countingStore) Push(ctx context.Context, r media.Record) (media.Record, error) {
	c.pushes++
	return c.Memory.Push(ctx, r)
}

func (c *countingStore) Peek(ctx context.Context) (*media.Record, error) {
	c.peeks++
	return c.Memory.Peek(ctx)
}

func (c *countingStore) Last(ctx context.Context, n int) ([]media.Record, error) {
	c.lasts++
	return c.Memory.Last(ctx, n)
}

func (c *countingStore) Delete(ctx context.Context, id string) error {
	c.deletes++
	return c.Memory.Delete(ctx, id)
}

// readOnlyStore has no Delete method
type readOnlyStore struct {
	Store
}

type failingKV struct {
	db.Store
	err error
}

func (f failingKV) Set(context.Context, string, []byte) error {
	return f.err
}

var errBoom = errors.New("boom")
