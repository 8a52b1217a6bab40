package batch_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivium-ecommerce/fulfillment/internal/batch"
	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

var fixedDay = time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)

func newSequencer(t *testing.T) (*batch.Sequencer, string) {
	t.Helper()
	base := t.TempDir()
	seq := batch.NewSequencerWithClock(base, nil, func() time.Time { return fixedDay })
	return seq, base
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestSequencer_EmptyDayStartsAtOne(t *testing.T) {
	seq, _ := newSequencer(t)

	var got int
	err := seq.Allocate(func(number int, dayDir string) error {
		got = number
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestSequencer_NumberIsMaxPlusOneAcrossCategories(t *testing.T) {
	seq, base := newSequencer(t)
	dayDir := filepath.Join(base, "20251103")
	touch(t, dayDir, "S-001.csv")
	touch(t, dayDir, "SL-003.csv")
	touch(t, dayDir, "M-002.csv")
	touch(t, dayDir, "notes.txt")
	touch(t, dayDir, "broken.csv")

	var got int
	err := seq.Allocate(func(number int, dayDir string) error {
		got = number
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 4, got)
}

func TestSequencer_SequentialAllocationsAreContiguous(t *testing.T) {
	seq, _ := newSequencer(t)

	var numbers []int
	for i := 0; i < 3; i++ {
		err := seq.Allocate(func(number int, dayDir string) error {
			numbers = append(numbers, number)
			// Файл создаётся внутри блокировки, следующий вызов его увидит.
			return os.WriteFile(filepath.Join(dayDir, batch.FileName(domain.CategorySingle, number)), []byte("x"), 0o644)
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []int{1, 2, 3}, numbers)
}

func TestSequencer_DayRolloverRestartsNumbering(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2025, 11, 3, 23, 59, 59, 0, time.UTC)
	seq := batch.NewSequencerWithClock(base, nil, func() time.Time { return now })

	allocate := func() int {
		var got int
		err := seq.Allocate(func(number int, dayDir string) error {
			got = number
			return os.WriteFile(filepath.Join(dayDir, batch.FileName(domain.CategorySingle, number)), []byte("x"), 0o644)
		})
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, 1, allocate())
	assert.Equal(t, 2, allocate())

	// Через две секунды уже новые сутки: нумерация начинается заново.
	now = time.Date(2025, 11, 4, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, 1, allocate())

	_, err := os.Stat(filepath.Join(base, "20251103", "S-002.csv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "20251104", "S-001.csv"))
	require.NoError(t, err)
}

func TestStemAndFileName(t *testing.T) {
	assert.Equal(t, "S-001", batch.Stem(domain.CategorySingle, 1))
	assert.Equal(t, "SL-012", batch.Stem(domain.CategorySingleLine, 12))
	assert.Equal(t, "M-123.csv", batch.FileName(domain.CategoryMulti, 123))
}

func TestWriter_WriteBatch(t *testing.T) {
	dayDir := t.TempDir()
	w := batch.NewWriter(nil)

	orders := []domain.Order{
		{
			ID:       "1043946570",
			PlacedAt: time.Date(2025, 11, 3, 9, 15, 30, 0, time.UTC),
			Status:   domain.OrderStatusOpen,
			Items: []domain.OrderItem{
				{ID: "6042823871", EAN: "8712345678901", Quantity: 1, Fulfilment: domain.FulfilmentRetailer},
				{ID: "6042823872", EAN: "8712345678902", Quantity: 2, Fulfilment: domain.FulfilmentRetailer},
			},
		},
	}
	labels := map[string]string{"6042823871": "c628ba4f-f31a-4fe4-b0fa-2f34a6e54d4a"}

	path, err := w.WriteBatch(dayDir, domain.CategoryMulti, 7, "Trivium", orders, labels)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dayDir, "M-007.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, batch.Headers, rows[0])
	assert.Equal(t, []string{
		"1043946570", "Trivium", "8712345678901", "1",
		"c628ba4f-f31a-4fe4-b0fa-2f34a6e54d4a",
		"2025-11-03 09:15:30", "Multi", "M-007", "open",
	}, rows[1])
	// Позиция без лейбла выводится с пустой колонкой.
	assert.Equal(t, "", rows[2][4])
	assert.Equal(t, "2", rows[2][3])
}

func TestWriter_NoTempFilesLeftBehind(t *testing.T) {
	dayDir := t.TempDir()
	w := batch.NewWriter(nil)

	_, err := w.WriteBatch(dayDir, domain.CategorySingle, 1, "Trivium", nil, nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(dayDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "S-001.csv", entries[0].Name())
}
