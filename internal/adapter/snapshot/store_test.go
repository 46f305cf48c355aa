package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/couchcryptid/sep-event-etl/internal/domain/domaintest"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC))
	return NewStore(filepath.Join(t.TempDir(), "cache", "catalog.snapshot.zst"), clock)
}

func TestStore_RoundTrip(t *testing.T) {
	s := newStore(t)
	rows := []domaintest.Row{
		domaintest.FlareEvent(),
		domaintest.QuietPeriod("2012-02-01 00:00:00", "-40", "1e-06"),
	}
	source := domaintest.Normalized(t, rows...)
	derived := domaintest.Derived(t, rows...)
	// Filtered tables keep their original row indexes through a snapshot.
	derived = derived.Filter([]bool{false, true})

	require.NoError(t, s.Save(context.Background(), source, derived))

	gotSource, gotDerived, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, source.Equal(gotSource))
	assert.True(t, derived.Equal(gotDerived))
	assert.Equal(t, 1, gotDerived.Index(0))

	col, ok := gotDerived.Column(domain.ColPeriodStart)
	require.True(t, ok)
	assert.Equal(t, domain.KindTime, col.Kind())
}

func TestStore_Overwrite(t *testing.T) {
	s := newStore(t)
	first := domaintest.Derived(t, domaintest.FlareEvent())
	second := domaintest.Derived(t, domaintest.QuietPeriod("2012-02-01 00:00:00", "10", "2e-06"))

	require.NoError(t, s.Save(context.Background(), first, first))
	require.NoError(t, s.Save(context.Background(), second, second))

	_, got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Equal(got))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestStore_NotFound(t *testing.T) {
	s := newStore(t)
	_, _, err := s.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_VersionMismatch(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))

	f, err := os.Create(s.Path())
	require.NoError(t, err)
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(zw).Encode(document{Version: Version + 1}))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, _, err = s.Load(context.Background())
	require.ErrorIs(t, err, ErrVersion)
}

func TestStore_Corrupt(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("not zstd"), 0o644))

	_, _, err := s.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStore_CanceledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, s.Save(ctx, nil, nil), context.Canceled)
}
