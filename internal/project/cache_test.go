// internal/project/cache_test.go
package project

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/layerlint/internal/jsonc"
)

func TestFileCache_ConcurrentFirstLoadReadsOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "events.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("\ufeff{\"events\": []}"), 0o644))
	cache := NewFileCache(jsonc.Options{})

	var wg sync.WaitGroup
	results := make([]*CachedFile, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.Load(path)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), cache.Reads())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.Equal(t, `{"events": []}`, results[0].Text, "byte order mark is dropped")
	assert.False(t, results[0].Scan.ErrorFound)
	assert.NotEmpty(t, results[0].Scan.Properties)
}

func TestFileCache_OffsetsIndexStrippedText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strings.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("\ufeff{\"id\": \"s\"}"), 0o644))

	f := NewFileCache(jsonc.Options{}).Load(path)
	require.NoError(t, f.Err)

	var id *jsonc.ParsedProperty
	for i := range f.Scan.Properties {
		if f.Scan.Properties[i].Path == "root.id" {
			id = &f.Scan.Properties[i]
		}
	}
	require.NotNil(t, id)
	assert.Equal(t, 1, id.StartOffset)
	assert.Equal(t, `"id": "s"`, f.Text[id.StartOffset:id.EndOffset+1])
}

func TestFileCache_ReadError(t *testing.T) {
	cache := NewFileCache(jsonc.Options{})

	f := cache.Load(filepath.Join(t.TempDir(), "missing.jsonc"))

	require.Error(t, f.Err)
	assert.ErrorIs(t, f.Err, os.ErrNotExist)
	assert.Same(t, f, cache.Load(f.Path))
	assert.Equal(t, int64(1), cache.Reads())
}
