package metastore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subhatta123/bitool-sub002/internal/schema"
	"github.com/subhatta123/bitool-sub002/internal/semantic"
)

func TestTableProfileRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.GetTableProfile("orders")
	assert.False(t, ok)

	store.PutTableProfile(&schema.TableProfile{Name: "orders", RowCount: 42})

	got, ok := store.GetTableProfile("orders")
	require.True(t, ok)
	assert.Equal(t, int64(42), got.RowCount)

	// The returned snapshot is a copy; mutating it must not leak back.
	got.RowCount = 0
	again, ok := store.GetTableProfile("orders")
	require.True(t, ok)
	assert.Equal(t, int64(42), again.RowCount)
}

func TestSemanticSchemaMarkedPersisted(t *testing.T) {
	store := NewMemoryStore()
	store.PutSemanticSchema(&semantic.Schema{Table: "orders"})

	got, ok := store.GetSemanticSchema("orders")
	require.True(t, ok)
	assert.True(t, got.Persisted)
	assert.True(t, store.HasSemanticSchema("orders"))
	assert.False(t, store.HasSemanticSchema("other"))
}

func TestPutReplacesWholeRecord(t *testing.T) {
	store := NewMemoryStore()
	store.PutTableProfile(&schema.TableProfile{Name: "orders", RowCount: 1, Score: 5})
	store.PutTableProfile(&schema.TableProfile{Name: "orders", RowCount: 2})

	got, ok := store.GetTableProfile("orders")
	require.True(t, ok)
	assert.Equal(t, int64(2), got.RowCount)
	assert.Zero(t, got.Score)
}

func TestConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.PutSemanticSchema(&semantic.Schema{Table: "orders"})
				store.GetSemanticSchema("orders")
				store.HasSemanticSchema("orders")
			}
		}()
	}
	wg.Wait()
}
