package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportInsertsAllRecords(t *testing.T) {
	store := newFakeStore()
	im := NewImporter(store)

	records := []Payment{
		payment("Ahmet Yılmaz", "2024-01-15", 5000),
		payment("Fatma Kaya", "2024-01-16", 2500),
	}
	result, err := im.Import(context.Background(), records, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, store.payments, 2)
}

func TestImportHonorsSkipSet(t *testing.T) {
	store := newFakeStore()
	im := NewImporter(store)

	records := []Payment{
		payment("Ahmet Yılmaz", "2024-01-15", 5000),
		payment("Fatma Kaya", "2024-01-16", 2500),
		payment("Ali Demir", "2024-01-17", 750),
	}
	result, err := im.Import(context.Background(), records, map[int]bool{1: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, store.payments, 2)
	for _, p := range store.payments {
		assert.NotEqual(t, "Fatma Kaya", p.CustomerName)
	}
}

func TestImportIsolatesRowFailures(t *testing.T) {
	store := newFakeStore()
	store.failRows["Fatma Kaya"] = errors.New("value too long")
	im := NewImporter(store)

	records := []Payment{
		payment("Ahmet Yılmaz", "2024-01-15", 5000),
		payment("Fatma Kaya", "2024-01-16", 2500),
		payment("Ali Demir", "2024-01-17", 750),
	}
	result, err := im.Import(context.Background(), records, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, 2, result.Issues[0].Row)
	assert.Len(t, store.payments, 2)
}

func TestImportCommitFailureWritesNothing(t *testing.T) {
	store := newFakeStore()
	store.failCommit = errors.New("connection reset")
	im := NewImporter(store)

	records := []Payment{
		payment("Ahmet Yılmaz", "2024-01-15", 5000),
		payment("Fatma Kaya", "2024-01-16", 2500),
	}
	result, err := im.Import(context.Background(), records, nil)
	require.Error(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 2, result.Failed)
	assert.Empty(t, store.payments)
}
