package history

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomarker-scoring-server/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(id string, createdAt time.Time) *Record {
	return &Record{
		ID:              id,
		Gender:          "female",
		Age:             34,
		HealthScore:     72,
		RiskLevel:       "good",
		TotalMarkers:    8,
		AbnormalMarkers: 2,
		Result:          json.RawMessage(`{"score": 72}`),
		CreatedAt:       createdAt,
	}
}

func TestSQLiteStoreSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord("analysis-1", time.Now().UTC())
	require.NoError(t, store.Save(ctx, record))

	got, err := store.Get(ctx, "analysis-1")
	require.NoError(t, err)
	assert.Equal(t, "analysis-1", got.ID)
	assert.Equal(t, "female", got.Gender)
	assert.Equal(t, 34, got.Age)
	assert.Equal(t, 72, got.HealthScore)
	assert.Equal(t, "good", got.RiskLevel)
	assert.Equal(t, 8, got.TotalMarkers)
	assert.Equal(t, 2, got.AbnormalMarkers)
	assert.JSONEq(t, `{"score": 72}`, string(got.Result))
}

func TestSQLiteStoreSaveRequiresID(t *testing.T) {
	store := newTestStore(t)

	record := testRecord("", time.Now().UTC())
	assert.Error(t, store.Save(context.Background(), record))
}

func TestSQLiteStoreGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStoreListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, testRecord(id, base.Add(time.Duration(i)*time.Minute))))
	}

	records, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "a", records[2].ID)

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)
}

func TestSQLiteStoreCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, store.Save(ctx, testRecord("a", time.Now().UTC())))
	require.NoError(t, store.Save(ctx, testRecord("b", time.Now().UTC())))

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRecord("a", time.Now().UTC())))
	require.NoError(t, store.Delete(ctx, "a"))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "a"), domain.ErrNotFound)
}
