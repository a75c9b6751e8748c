package schema

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/layerlint/internal/jsonc"
)

// Source resolves a schema location (URL or file path) to a Validator.
type Source interface {
	Validator(ctx context.Context, location string) (Validator, error)
}

// Options configures a CachedSource.
type Options struct {
	// CacheDir keeps downloaded schemas between runs; empty disables the disk
	// cache.
	CacheDir string
	// Offline forbids network access; only cached schemas are used.
	Offline           bool
	Timeout           time.Duration
	RetryCount        int
	RequestsPerSecond float64
	LRUSize           int
	Scan              jsonc.Options
}

// CachedSource fetches schemas over HTTP with a rate limit, keeps them on
// disk and holds compiled validators in an LRU cache.
type CachedSource struct {
	opts     Options
	client   *resty.Client
	limiter  *rate.Limiter
	compiled *lru.Cache[string, Validator]
	group    singleflight.Group
	logger   *zap.Logger
}

// NewCachedSource creates a source.
func NewCachedSource(opts Options, logger *zap.Logger) (*CachedSource, error) {
	if opts.LRUSize <= 0 {
		opts.LRUSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	compiled, err := lru.New[string, Validator](opts.LRUSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema cache: %w", err)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	log := logger.Named("schema")
	client := resty.New().
		SetLogger(&restyLogger{log: log.Sugar()}).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/schema+json, application/json")

	return &CachedSource{
		opts:     opts,
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		compiled: compiled,
		logger:   log,
	}, nil
}

// Validator returns the compiled validator for location, loading it once.
func (s *CachedSource) Validator(ctx context.Context, location string) (Validator, error) {
	if v, ok := s.compiled.Get(location); ok {
		return v, nil
	}
	v, err, _ := s.group.Do(location, func() (interface{}, error) {
		if v, ok := s.compiled.Get(location); ok {
			return v, nil
		}
		text, err := s.fetch(ctx, location)
		if err != nil {
			return nil, err
		}
		val, err := Compile(text, s.opts.Scan)
		if err != nil {
			return nil, &LoadError{Location: location, Message: "invalid schema", Cause: err}
		}
		s.compiled.Add(location, val)
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Validator), nil
}

// Close releases idle HTTP connections.
func (s *CachedSource) Close() {
	s.client.GetClient().CloseIdleConnections()
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func (s *CachedSource) fetch(ctx context.Context, location string) (string, error) {
	if !isRemote(location) {
		data, err := os.ReadFile(strings.TrimPrefix(location, "file://"))
		if err != nil {
			return "", &LoadError{Location: location, Message: "cannot read schema file", Cause: err}
		}
		return string(data), nil
	}

	cachePath := s.cachePath(location)
	if cachePath != "" {
		if data, err := os.ReadFile(cachePath); err == nil {
			s.logger.Debug("Schema loaded from disk cache", zap.String("location", location))
			return string(data), nil
		}
	}
	if s.opts.Offline {
		return "", &LoadError{Location: location, Message: "not cached and offline mode is enabled"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", &LoadError{Location: location, Message: "rate limiter", Cause: err}
	}
	resp, err := s.client.R().SetContext(ctx).Get(location)
	if err != nil {
		return "", &LoadError{Location: location, Message: "request failed", Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return "", &LoadError{Location: location, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode())}
	}
	body := resp.String()
	s.logger.Debug("Schema downloaded", zap.String("location", location), zap.Int("bytes", len(body)))

	if cachePath != "" {
		if err := writeCache(cachePath, body); err != nil {
			s.logger.Warn("Failed to cache schema", zap.String("location", location), zap.Error(err))
		}
	}
	return body, nil
}

func (s *CachedSource) cachePath(location string) string {
	if s.opts.CacheDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(location))
	return filepath.Join(s.opts.CacheDir, hex.EncodeToString(sum[:])+".json")
}

func writeCache(path, body string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// restyLogger forwards resty's messages to zap.
type restyLogger struct {
	log *zap.SugaredLogger
}

func (l *restyLogger) Errorf(format string, v ...interface{}) { l.log.Errorf(format, v...) }
func (l *restyLogger) Warnf(format string, v ...interface{})  { l.log.Warnf(format, v...) }
func (l *restyLogger) Debugf(format string, v ...interface{}) { l.log.Debugf(format, v...) }
