package sequence

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nust-bites/config"
)

func newAllocator(t *testing.T) *SQLAllocator {
	t.Helper()
	db, err := config.OpenDatabase(filepath.Join(t.TempDir(), "seq.db"))
	require.NoError(t, err)
	return NewSQLAllocator(db)
}

func TestNextStartsAtOneAndIncrements(t *testing.T) {
	a := newAllocator(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := a.Next(ctx, OrderID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := a.Next(ctx, "invoice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "counters are independent per name")
}

func TestNextIsUniqueUnderConcurrency(t *testing.T) {
	a := newAllocator(t)
	const workers = 16
	const perWorker = 5

	var (
		mu     sync.Mutex
		values []int64
		wg     sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				v, err := a.Next(context.Background(), OrderID)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				values = append(values, v)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, values, workers*perWorker)
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		assert.Equal(t, int64(i+1), v)
	}
}

func TestOrderCode(t *testing.T) {
	assert.Equal(t, "KFC-1042", OrderCode("KFC", 1042))
}
