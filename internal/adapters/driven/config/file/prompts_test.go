package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
)

func TestPromptStore_ImplementsInterface(t *testing.T) {
	var _ driven.PromptStore = (*PromptStore)(nil)
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".lens", "prompts"), store.Dir())
}

func TestPromptStore_Load_WritesDefaults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSynthesisSystem)

	require.NoError(t, err)
	assert.Contains(t, prompt, "Social Movement Research Agent")
	for _, f := range []string{"synthesis_system.txt", "query_translate.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected %s to exist", f)
	}
}

func TestPromptStore_Load_UserOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "synthesis_system.txt"), []byte("\n  Be brief.  \n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSynthesisSystem)

	require.NoError(t, err)
	assert.Equal(t, "Be brief.", prompt)

	// Existing files are never overwritten by the defaults.
	data, err := os.ReadFile(filepath.Join(dir, "synthesis_system.txt"))
	require.NoError(t, err)
	assert.Equal(t, "\n  Be brief.  \n", string(data))
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptQueryTranslate)
	require.NoError(t, os.Remove(filepath.Join(dir, "query_translate.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptQueryTranslate)

	require.NoError(t, err)
	assert.Contains(t, prompt, "English")
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")

	assert.ErrorContains(t, err, "nonexistent_prompt")
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptSynthesisSystem)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "synthesis_system.txt"), []byte("edited"), 0600))

	cached, err := store.Load(driven.PromptSynthesisSystem)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptSynthesisSystem)
	require.NoError(t, err)
	assert.Equal(t, "edited", fresh)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = store.Load(driven.PromptSynthesisSystem)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}
