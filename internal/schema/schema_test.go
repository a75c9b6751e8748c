// internal/schema/schema_test.go
package schema

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/jsonc"
)

const eventsSchema = `{
  "type": "object",
  "properties": {
    "events": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {"id": {"type": "string"}}
      }
    }
  }
}`

func schemaServer(t *testing.T, body string, status int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFieldPath(t *testing.T) {
	tests := []struct {
		field, want string
	}{
		{"(root)", "root"},
		{"", "root"},
		{"events", "root.events"},
		{"events.0.id", "root.events[0].id"},
		{"layout.components.12", "root.layout.components[12]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FieldPath(tt.field, "root", "."), tt.field)
	}
	assert.Equal(t, "doc/events[0]", FieldPath("events.0", "doc", "/"))
}

func TestValidate_LocatesErrors(t *testing.T) {
	v, err := Compile(eventsSchema, jsonc.Options{})
	require.NoError(t, err)

	doc := "{\n  // first\n  \"events\": [\n    {\"id\": 5},\n    {\"other\": true}\n  ]\n}"
	errs, err := v.Validate(doc)
	require.NoError(t, err)
	require.Len(t, errs, 2)

	assert.Equal(t, "root.events[0].id", errs[0].Path)
	assert.Equal(t, 4, errs[0].Line)
	assert.Equal(t, "invalid_type", errs[0].Kind)

	assert.Equal(t, "root.events[1]", errs[1].Path)
	assert.Equal(t, 5, errs[1].Line)
	assert.Equal(t, "required", errs[1].Kind)
}

func TestValidate_ValidDocument(t *testing.T) {
	v, err := Compile(eventsSchema, jsonc.Options{})
	require.NoError(t, err)
	errs, err := v.Validate(`{"events": [{"id": "a"},],}`)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`, jsonc.Options{})
	assert.Error(t, err)
}

func TestCachedSource_DiskAndMemoryCache(t *testing.T) {
	srv, hits := schemaServer(t, eventsSchema, http.StatusOK)
	cacheDir := t.TempDir()
	url := srv.URL + "/events.schema.json"

	src, err := NewCachedSource(Options{CacheDir: cacheDir}, zap.NewNop())
	require.NoError(t, err)
	defer src.Close()

	v1, err := src.Validator(context.Background(), url)
	require.NoError(t, err)
	v2, err := src.Validator(context.Background(), url)
	require.NoError(t, err)
	assert.Same(t, v1, v2)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// A fresh source in offline mode is served from disk.
	offline, err := NewCachedSource(Options{CacheDir: cacheDir, Offline: true}, zap.NewNop())
	require.NoError(t, err)
	_, err = offline.Validator(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestCachedSource_OfflineMiss(t *testing.T) {
	src, err := NewCachedSource(Options{CacheDir: t.TempDir(), Offline: true}, zap.NewNop())
	require.NoError(t, err)

	_, err = src.Validator(context.Background(), "https://schemas.invalid/x.json")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Message, "offline")
}

func TestCachedSource_BadResponses(t *testing.T) {
	notFound, _ := schemaServer(t, "missing", http.StatusNotFound)
	garbage, _ := schemaServer(t, `{"type": 12}`, http.StatusOK)

	src, err := NewCachedSource(Options{}, zap.NewNop())
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Validator(context.Background(), notFound.URL)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Message, "404")

	_, err = src.Validator(context.Background(), garbage.URL)
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "invalid schema", le.Message)
}

func TestCachedSource_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.schema.json")
	require.NoError(t, os.WriteFile(path, []byte(eventsSchema), 0o644))

	src, err := NewCachedSource(Options{}, zap.NewNop())
	require.NoError(t, err)

	_, err = src.Validator(context.Background(), path)
	require.NoError(t, err)
	_, err = src.Validator(context.Background(), "file://"+path)
	require.NoError(t, err)

	_, err = src.Validator(context.Background(), filepath.Join(t.TempDir(), "none.json"))
	var le *LoadError
	assert.ErrorAs(t, err, &le)
}

func TestCachedSource_ConcurrentLoadsFetchOnce(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(eventsSchema))
	}))
	defer srv.Close()

	src, err := NewCachedSource(Options{RequestsPerSecond: 50}, zap.NewNop())
	require.NoError(t, err)
	defer src.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := src.Validator(context.Background(), srv.URL)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
