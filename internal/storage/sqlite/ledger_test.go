package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
	"github.com/trivium-ecommerce/fulfillment/internal/storage/sqlite"
)

func openLedger(t *testing.T) *sqlite.Ledger {
	t.Helper()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema())
	return sqlite.NewLedger(store, nil)
}

func record(orderID, itemID, number string, cat domain.Category) domain.ProcessedOrderRecord {
	return domain.ProcessedOrderRecord{
		OrderID:     orderID,
		OrderItemID: itemID,
		BatchNumber: number,
		BatchType:   cat,
		ProcessedAt: time.Now().UTC(),
	}
}

func TestLedger_RecordAndHas(t *testing.T) {
	l := openLedger(t)

	has, err := l.Has("1043946570")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, l.Record(record("1043946570", "6042823871", "S-001", domain.CategorySingle)))

	has, err = l.Has("1043946570")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestLedger_DuplicateRecordIgnored(t *testing.T) {
	l := openLedger(t)

	require.NoError(t, l.Record(record("o-1", "i-1", "S-001", domain.CategorySingle)))
	require.NoError(t, l.Record(record("o-1", "i-1", "S-002", domain.CategorySingle)))

	count, err := l.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLedger_MultiItemOrder(t *testing.T) {
	l := openLedger(t)

	require.NoError(t, l.Record(record("o-1", "i-1", "M-001", domain.CategoryMulti)))
	require.NoError(t, l.Record(record("o-1", "i-2", "M-001", domain.CategoryMulti)))

	count, err := l.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	has, err := l.Has("o-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestLedger_FilterUnprocessed(t *testing.T) {
	l := openLedger(t)
	require.NoError(t, l.Record(record("o-2", "i-1", "S-001", domain.CategorySingle)))

	out, err := l.FilterUnprocessed([]string{"o-3", "o-2", "o-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"o-3", "o-1"}, out)

	out, err = l.FilterUnprocessed(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLedger_CountByCategory(t *testing.T) {
	l := openLedger(t)
	require.NoError(t, l.Record(record("o-1", "i-1", "S-001", domain.CategorySingle)))
	require.NoError(t, l.Record(record("o-2", "i-2", "SL-001", domain.CategorySingleLine)))
	require.NoError(t, l.Record(record("o-3", "i-3", "SL-002", domain.CategorySingleLine)))

	counts, err := l.CountByCategory()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.CategorySingle])
	assert.Equal(t, 2, counts[domain.CategorySingleLine])
}

func TestLedger_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")

	store, err := sqlite.NewStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema())
	l := sqlite.NewLedger(store, nil)
	require.NoError(t, l.Record(record("o-1", "i-1", "S-001", domain.CategorySingle)))
	require.NoError(t, store.Close())

	store2, err := sqlite.NewStore(path, nil)
	require.NoError(t, err)
	defer store2.Close()
	require.NoError(t, store2.EnsureSchema())

	has, err := sqlite.NewLedger(store2, nil).Has("o-1")
	require.NoError(t, err)
	assert.True(t, has)
}
