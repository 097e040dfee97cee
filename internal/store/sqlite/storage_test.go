package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := Open(Config{DBPath: filepath.Join(t.TempDir(), "local.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLocalStorage_SetGetRemove(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, ok, err := s.GetItem(ctx, "c1/stockpredict_user")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem(ctx, "c1/stockpredict_user", `{"id":"1"}`))
	require.NoError(t, s.SetItem(ctx, "c1/stockpredict_user", `{"id":"2"}`))

	v, ok, err := s.GetItem(ctx, "c1/stockpredict_user")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"id":"2"}`, v)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.RemoveItem(ctx, "c1/stockpredict_user"))
	require.NoError(t, s.RemoveItem(ctx, "c1/stockpredict_user"))
	_, ok, err = s.GetItem(ctx, "c1/stockpredict_user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := Open(Config{DBPath: path})
	require.NoError(t, err)
	require.NoError(t, s.SetItem(ctx, "k", "v"))
	require.NoError(t, s.Close())

	s, err = Open(Config{DBPath: path})
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestLocalStorage_PruneBefore(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	require.NoError(t, s.SetItem(ctx, "old", "1"))
	s.now = func() time.Time { return base.Add(48 * time.Hour) }
	require.NoError(t, s.SetItem(ctx, "new", "2"))

	removed, err := s.PruneBefore(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, ok, _ := s.GetItem(ctx, "old")
	assert.False(t, ok)
	_, ok, _ = s.GetItem(ctx, "new")
	assert.True(t, ok)
}

func TestLocalStorage_ReadKeepsItemFromPrune(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	require.NoError(t, s.SetItem(ctx, "active", "1"))
	require.NoError(t, s.SetItem(ctx, "idle", "2"))

	// Only the active session is read after login.
	s.now = func() time.Time { return base.Add(48 * time.Hour) }
	_, ok, err := s.GetItem(ctx, "active")
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := s.PruneBefore(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	v, ok, err := s.GetItem(ctx, "active")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok, _ = s.GetItem(ctx, "idle")
	assert.False(t, ok)
}

func TestLocalStorage_HealthPing(t *testing.T) {
	s := openTemp(t)
	assert.NoError(t, s.DB().PingContext(context.Background()))
}
