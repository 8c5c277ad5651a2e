package file

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("server.chat_burst", 4))

	var reloads atomic.Int32
	w := NewWatcher(store, func() { reloads.Add(1) })
	w.delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(store.Path(), []byte("[server]\nchat_burst = 12\n"), 0600))

	assert.Eventually(t, func() bool {
		return store.GetInt("server.chat_burst") == 12 && reloads.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	store := newTestConfigStore(t)

	var reloads atomic.Int32
	w := NewWatcher(store, func() { reloads.Add(1) })
	w.delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	other := store.Path() + ".bak"
	require.NoError(t, os.WriteFile(other, []byte("x"), 0600))

	assert.Never(t, func() bool { return reloads.Load() > 0 }, 200*time.Millisecond, 20*time.Millisecond)
}
