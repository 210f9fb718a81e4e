package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-crane/mediaspyy/db"
	"github.com/marcus-crane/mediaspyy/migrations"
)

func TestLocal_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewLocal(db.NewMemoryStore())

	var pushed []string
	for i := 0; i < DefaultCapacity+5; i++ {
		title := fmt.Sprintf("song %03d", i)
		pushed = append(pushed, title)
		_, err := s.Push(ctx, record(title))
		require.NoError(t, err)
	}

	all, err := s.Last(ctx, DefaultCapacity*2)
	require.NoError(t, err)
	require.Len(t, all, DefaultCapacity)

	// Newest first, the five oldest gone and everything else in order
	want := make([]string, 0, DefaultCapacity)
	for i := len(pushed) - 1; i >= 5; i-- {
		want = append(want, pushed[i])
	}
	assert.Equal(t, want, titles(all))
}

func TestLocal_SmallCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := &Local{Store: db.NewMemoryStore(), Key: "tiny", Capacity: 2}

	for _, title := range []string{"A", "B", "C"} {
		_, err := s.Push(ctx, record(title))
		require.NoError(t, err)
	}
	all, err := s.Last(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, titles(all))
}

func TestLocal_FailedPushLeavesHistoryAlone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := db.NewMemoryStore()
	s := NewLocal(kv)

	_, err := s.Push(ctx, record("A"))
	require.NoError(t, err)

	broken := &Local{Store: failingKV{Store: kv, err: errBoom}, Key: DefaultKey, Capacity: DefaultCapacity}
	_, err = broken.Push(ctx, record("B"))
	assert.ErrorIs(t, err, errBoom)

	all, err := s.Last(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, titles(all))
}

func TestLocal_CorruptHistoryIsAnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := db.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, DefaultKey, []byte("{not json")))

	_, err := NewLocal(kv).Peek(ctx)
	assert.ErrorContains(t, err, "failed to decode stored history")
}

func TestLocal_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewLocal(db.NewMemoryStore())

	a, err := s.Push(ctx, record("A"))
	require.NoError(t, err)
	_, err = s.Push(ctx, record("B"))
	require.NoError(t, err)

	require.NoError(t, Delete(ctx, s, a.ID))
	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)

	all, err := s.Last(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, titles(all))
}

func TestLocal_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	conn, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	defer conn.Close()

	kv := &db.SqliteStore{DB: conn}
	require.NoError(t, kv.ApplyMigrations(migrations.GetMigrations(), migrations.Dir))

	first := NewLocal(kv)
	stored, err := first.Push(ctx, record("A"))
	require.NoError(t, err)

	// A fresh backend over the same database sees what the old one wrote
	second := NewLocal(kv)
	peeked, err := second.Peek(ctx)
	require.NoError(t, err)
	require.NotNil(t, peeked)
	assert.Equal(t, stored, *peeked)
}
