package project

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/xkilldash9x/layerlint/internal/jsonc"
)

// CachedFile is the text of one file together with its scanner output.
// A leading byte order mark is dropped from Text, and every offset in Scan
// indexes Text, not the raw file bytes.
type CachedFile struct {
	Path string
	Text string
	Scan jsonc.Result
	// Err is set when the file could not be read.
	Err error
}

// FileCache reads and scans each file at most once per run. It is safe for
// concurrent use; concurrent first loads of the same path share one read.
type FileCache struct {
	opts  jsonc.Options
	files sync.Map
	group singleflight.Group
	reads atomic.Int64
}

// NewFileCache returns an empty cache scanning with opts.
func NewFileCache(opts jsonc.Options) *FileCache {
	opts.SearchPath = ""
	opts.OmitValues = false
	return &FileCache{opts: opts}
}

// Load returns the cached file, reading and scanning it on first use.
func (c *FileCache) Load(path string) *CachedFile {
	if v, ok := c.files.Load(path); ok {
		return v.(*CachedFile)
	}
	v, _, _ := c.group.Do(path, func() (interface{}, error) {
		if v, ok := c.files.Load(path); ok {
			return v, nil
		}
		f := c.read(path)
		c.files.Store(path, f)
		return f, nil
	})
	return v.(*CachedFile)
}

// Reads returns how many files were read from disk.
func (c *FileCache) Reads() int64 {
	return c.reads.Load()
}

func (c *FileCache) read(path string) *CachedFile {
	c.reads.Add(1)
	data, err := os.ReadFile(path)
	if err != nil {
		return &CachedFile{Path: path, Err: fmt.Errorf("failed to read %s: %w", path, err)}
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	return &CachedFile{
		Path: path,
		Text: text,
		Scan: jsonc.Scan(text, c.opts),
	}
}
