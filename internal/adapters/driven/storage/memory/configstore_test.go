package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetLookupUnset(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("retrieval.top_k", int64(3)))

	v, ok := store.Lookup("retrieval.top_k")
	require.True(t, ok)
	assert.Equal(t, int64(3), v)

	require.NoError(t, store.Unset("retrieval.top_k"))
	_, ok = store.Lookup("retrieval.top_k")
	assert.False(t, ok)

	assert.NoError(t, store.Unset("never.set"))
	assert.Empty(t, store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("user.k%d", i)
			_ = store.Set(key, i)
			_, _ = store.Lookup(key)
		}()
	}
	wg.Wait()

	_, ok := store.Lookup("user.k7")
	assert.True(t, ok)
}
