package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("client.api_url", "http://localhost:8000/api"))
	require.NoError(t, store.Set("client.api_url", "http://lens.local/api"))

	val, ok := store.Get("client.api_url")
	assert.True(t, ok)
	assert.Equal(t, "http://lens.local/api", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("client.api_url", "http://localhost:8000/api"))
	require.NoError(t, store.Set("client.settle_delay_ms", 800))
	require.NoError(t, store.Set("server.top_limit", int64(20)))
	require.NoError(t, store.Set("server.chat_rate_per_sec", 2.5))
	require.NoError(t, store.Set("server.context_limit", float64(30)))
	require.NoError(t, store.Set("tui.enabled", true))

	assert.Equal(t, "http://localhost:8000/api", store.GetString("client.api_url"))
	assert.Equal(t, 800, store.GetInt("client.settle_delay_ms"))
	assert.Equal(t, 20, store.GetInt("server.top_limit"))
	assert.Equal(t, 30, store.GetInt("server.context_limit"))
	assert.InDelta(t, 2.5, store.GetFloat("server.chat_rate_per_sec"), 1e-9)
	assert.InDelta(t, 800.0, store.GetFloat("client.settle_delay_ms"), 1e-9)
	assert.True(t, store.GetBool("tui.enabled"))
}

func TestConfigStore_TypedGetters_WrongTypeOrMissing(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("number", 42))
	require.NoError(t, store.Set("text", "hello"))

	assert.Empty(t, store.GetString("number"))
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("text"))
	assert.Zero(t, store.GetFloat("text"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.False(t, store.GetBool("text"))
}

func TestConfigStore_Keys(t *testing.T) {
	store := NewConfigStore()
	assert.Empty(t, store.Keys())

	require.NoError(t, store.Set("server.addr", ":8000"))
	require.NoError(t, store.Set("client.api_url", "x"))
	require.NoError(t, store.Set("llm.provider", "openai"))

	assert.Equal(t, []string{"client.api_url", "llm.provider", "server.addr"}, store.Keys())
}

func TestConfigStore_PersistenceNoOps(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("k", "v"))

	require.NoError(t, store.Save())
	require.NoError(t, store.Load())

	assert.Equal(t, "v", store.GetString("k"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key.%d", i), i)
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key.%d", i))
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 50)
}
