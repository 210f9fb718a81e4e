package changes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-crane/mediaspyy/config"
	"github.com/marcus-crane/mediaspyy/db"
	"github.com/marcus-crane/mediaspyy/events"
	"github.com/marcus-crane/mediaspyy/media"
	"github.com/marcus-crane/mediaspyy/storage"
)

func record(title string) media.Record {
	return media.Record{
		Locations:     []media.Location{{Type: media.LocationGeneric, URL: "https://music.example.com/" + title}},
		Title:         title,
		Artist:        "some artist",
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

func newSettings(t *testing.T, update func(*config.Settings)) *config.KVSettings {
	t.Helper()
	s := config.NewKVSettings(db.NewMemoryStore())
	current := config.DefaultSettings()
	update(&current)
	require.NoError(t, s.Set(context.Background(), current))
	return s
}

func newHandler(t *testing.T, store storage.Store) *Handler {
	t.Helper()
	return NewHandler(store, newSettings(t, func(*config.Settings) {}), NewMetrics(prometheus.NewRegistry()))
}

type published struct {
	stream string
	value  any
}

type fakePublisher struct {
	events []published
}

func (f *fakePublisher) Publish(stream string, v any) error {
	f.events = append(f.events, published{stream: stream, value: v})
	return nil
}

type brokenStore struct {
	storage.Store
	peekErr, pushErr, lastErr error
	pushes                    int
}

func (b *brokenStore) Peek(ctx context.Context) (*media.Record, error) {
	if b.peekErr != nil {
		return nil, b.peekErr
	}
	return b.Store.Peek(ctx)
}

func (b *brokenStore) Push(ctx context.Context, r media.Record) (media.Record, error) {
	b.pushes++
	if b.pushErr != nil {
		return r, b.pushErr
	}
	return b.Store.Push(ctx, r)
}

func (b *brokenStore) Last(ctx context.Context, n int) ([]media.Record, error) {
	if b.lastErr != nil {
		return nil, b.lastErr
	}
	return b.Store.Last(ctx, n)
}

var errBoom = errors.New("boom")

func TestHandleChange_DropsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	h := newHandler(t, store)

	h.HandleChange(ctx, record("A"))
	h.HandleChange(ctx, record("A"))

	all, err := store.Last(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	h.HandleChange(ctx, record("B"))
	last, err := store.Last(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, titles(last))

	assert.Equal(t, 3.0, testutil.ToFloat64(h.Metrics.received))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.Metrics.stored))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.duplicates))
}

func TestHandleChange_StateChangeIsAChange(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	h := newHandler(t, store)

	playing := record("A")
	paused := record("A")
	paused.PlaybackState = media.StatePaused

	h.HandleChange(ctx, playing)
	h.HandleChange(ctx, paused)
	h.HandleChange(ctx, playing)

	all, err := store.Last(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHandleChange_KeepsDistinctSequence(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	h := newHandler(t, store)

	var want []string
	for i := 0; i < 10; i++ {
		title := fmt.Sprintf("track %d", i)
		h.HandleChange(ctx, record(title))
		want = append([]string{title}, want...)
	}

	for k := 0; k <= 10; k++ {
		last, err := store.Last(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, want[:k], titles(last), "last(%d)", k)
	}
}

func TestHandleChange_SwallowsPushFailures(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{Store: storage.NewMemory(), pushErr: errBoom}
	h := newHandler(t, store)

	h.HandleChange(ctx, record("A"))

	assert.Equal(t, 1, store.pushes)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.failures.WithLabelValues(opPush)))
	assert.Zero(t, testutil.ToFloat64(h.Metrics.stored))
}

func TestHandleChange_PeekFailureSkipsPush(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{Store: storage.NewMemory(), peekErr: errBoom}
	h := newHandler(t, store)

	h.HandleChange(ctx, record("A"))

	assert.Zero(t, store.pushes)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.failures.WithLabelValues(opPeek)))
}

func TestHandleChange_RemoteServerError(t *testing.T) {
	ctx := context.Background()
	prior := record("A")
	prior.ID = "1"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]media.Record{prior})
	}))
	defer ts.Close()

	settings := newSettings(t, func(s *config.Settings) {
		s.UseExternal = true
		s.ServerURL = ts.URL
	})
	remote := storage.NewRemote(settings)
	remote.HTTPClient = ts.Client()
	selector := &storage.Selector{Settings: settings, Internal: storage.NewMemory(), External: remote}
	h := NewHandler(selector, settings, NewMetrics(prometheus.NewRegistry()))

	h.HandleChange(ctx, record("B"))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.failures.WithLabelValues(opPush)))

	history, err := h.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, []media.Record{prior}, history)
}

func TestHandleChange_PublishesStoredRecords(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t, storage.NewMemory())
	publisher := &fakePublisher{}
	h.Events = publisher

	h.HandleChange(ctx, record("A"))
	h.HandleChange(ctx, record("A"))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.StreamHistory, publisher.events[0].stream)
	stored, ok := publisher.events[0].value.(media.Record)
	require.True(t, ok)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, "A", stored.Title)
}

func TestHandleChange_NilMetrics(t *testing.T) {
	h := NewHandler(storage.NewMemory(), newSettings(t, func(*config.Settings) {}), nil)
	assert.NotPanics(t, func() { h.HandleChange(context.Background(), record("A")) })
}

func TestHistory_UsesHistoryEntries(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		_, err := store.Push(ctx, record(title))
		require.NoError(t, err)
	}

	settings := newSettings(t, func(*config.Settings) {})
	h := NewHandler(store, settings, nil)

	history, err := h.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"E", "D", "C"}, titles(history))

	current, err := settings.Get(ctx)
	require.NoError(t, err)
	current.HistoryEntries = 1
	require.NoError(t, settings.Set(ctx, current))

	history, err = h.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"E"}, titles(history))
}

func TestHistory_SurfacesErrors(t *testing.T) {
	h := newHandler(t, &brokenStore{Store: storage.NewMemory(), lastErr: errBoom})
	_, err := h.History(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	h := newHandler(t, store)

	a, err := store.Push(ctx, record("A"))
	require.NoError(t, err)
	_, err = store.Push(ctx, record("B"))
	require.NoError(t, err)

	history, err := h.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, titles(history))

	_, err = h.Delete(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_Unsupported(t *testing.T) {
	h := newHandler(t, &brokenStore{Store: storage.NewMemory()})
	_, err := h.Delete(context.Background(), "1")
	assert.ErrorIs(t, err, storage.ErrDeleteUnsupported)
}
