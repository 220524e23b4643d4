package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/thomson/internal/core/db"
	"github.com/solatis/thomson/internal/types"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open("sqlite://"+filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = db.MigrateUp(context.Background(), conn)
	require.NoError(t, err)

	store, err := NewStore(conn)
	require.NoError(t, err)
	return store
}

func TestRecordAndGet(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	run, err := store.Record(ctx, Run{
		Origin:       OriginCLI,
		RulesDigest:  Digest([]byte(`{"a.b":1}`)),
		SourceDigest: Digest([]byte(`a = 1`)),
		Entries:      3,
		OutputBytes:  42,
		DurationMs:   7,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, StatusOK, run.Status)

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, OriginCLI, got.Origin)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, int64(3), got.Entries)
	assert.Equal(t, int64(42), got.OutputBytes)
	assert.Equal(t, run.RulesDigest, got.RulesDigest)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestGet_NotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.Get(context.Background(), types.NewRunID())
	assert.True(t, errors.Is(err, types.ErrRunNotFound))
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	var ids []types.RunID
	for i := 0; i < 3; i++ {
		run, err := store.Record(ctx, Run{Origin: OriginHTTP, RulesDigest: "r", SourceDigest: "s"})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	_, err := store.Record(ctx, Run{
		Origin:       OriginGRPC,
		Status:       StatusFailed,
		Error:        "conflict at /a",
		RulesDigest:  "r",
		SourceDigest: "s",
	})
	require.NoError(t, err)

	runs, err := store.List(ctx, ListOptions{Status: StatusOK})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = store.List(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "conflict at /a", runs[0].Error)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	old := time.Now().Add(-48 * time.Hour)
	_, err := store.Record(ctx, Run{CreatedAt: old, Origin: OriginCLI, RulesDigest: "r", SourceDigest: "s"})
	require.NoError(t, err)
	_, err = store.Record(ctx, Run{Origin: OriginCLI, RulesDigest: "r", SourceDigest: "s"})
	require.NoError(t, err)

	n, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDigest(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Digest(nil))
}
