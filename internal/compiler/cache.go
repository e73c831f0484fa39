// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	xglog "github.com/blockscout/solc-cache/internal/log"
	"github.com/blockscout/solc-cache/internal/metrics"
)

// tracer emits the lightweight spans below. No SDK/exporter is wired
// in here; with no TracerProvider configured these are no-ops, but any
// caller that does install one (e.g. an otel-instrumented HTTP server
// embedding this package) observes real Get/Fetch spans for free.
var tracer = otel.Tracer("github.com/blockscout/solc-cache/internal/compiler")

// DownloadCache maps a Version to the local filesystem path of its
// materialized binary, fetching on demand and coalescing concurrent
// requests for the same version into a single in-flight download. It
// follows the same singleflight.Group coalescing shape the teacher uses
// for its playback-resolution cache (internal/control/recordings), which
// already satisfies the "map lock is never held across an await/fetch"
// and "only one fetch per key runs at a time" requirements this cache
// needs: the map of in-flight keys singleflight.Group maintains
// internally is locked only around bookkeeping, never around the call to
// fn.
type DownloadCache struct {
	name string
	sf   singleflight.Group

	mu      sync.RWMutex
	present map[Version]string
}

// NewDownloadCache constructs an empty cache. name labels this cache's
// Prometheus series (typically the compiler name, e.g. "solc") and may
// be empty.
func NewDownloadCache(name string) *DownloadCache {
	return &DownloadCache{name: name, present: make(map[Version]string)}
}

// Get returns the local path for ver, fetching it via fetcher if not
// already present. Concurrent calls for the same ver across goroutines
// observe exactly one call to fetcher.Fetch; concurrent calls for
// different versions never block each other.
//
// The underlying fetch is detached from ctx (it runs under
// context.Background so one caller's cancellation never aborts a
// download other callers are waiting on) and is raced against ctx.Done
// only for the purpose of this call returning early; the fetch itself
// always runs to completion and its result is cached for whoever asks
// next, matching spec.md's allowance for either cancellation strategy.
func (c *DownloadCache) Get(ctx context.Context, fetcher Fetcher, ver Version) (string, error) {
	ctx, span := tracer.Start(ctx, "DownloadCache.Get", trace.WithAttributes(
		attribute.String("compiler", c.name),
		attribute.String("version", ver.String()),
	))
	defer span.End()

	if path, ok := c.lookup(ver); ok {
		metrics.CacheRequests.WithLabelValues(c.name, "hit").Inc()
		span.SetAttributes(attribute.String("cache.outcome", "hit"))
		return path, nil
	}

	key := ver.String()
	resultCh := c.sf.DoChan(key, func() (interface{}, error) {
		// Another fetch for ver may have completed between the lookup
		// above and joining singleflight; re-check before fetching again.
		if path, ok := c.lookup(ver); ok {
			return path, nil
		}

		_, fetchSpan := tracer.Start(ctx, "Fetcher.Fetch", trace.WithAttributes(
			attribute.String("fetcher_kind", fetcherKindLabel(fetcher)),
		))
		defer fetchSpan.End()

		start := time.Now()
		path, err := fetcher.Fetch(context.Background(), ver)
		metrics.FetchDuration.WithLabelValues(c.name, fetcherKindLabel(fetcher)).Observe(time.Since(start).Seconds())
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) {
				metrics.FetchErrors.WithLabelValues(c.name, fe.Kind.String()).Inc()
			}
			fetchSpan.RecordError(err)
			fetchSpan.SetStatus(codes.Error, err.Error())
			return "", err
		}
		c.store(ver, path)
		return path, nil
	})

	select {
	case res := <-resultCh:
		if res.Err != nil {
			metrics.CacheRequests.WithLabelValues(c.name, "error").Inc()
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			return "", res.Err
		}
		metrics.CacheRequests.WithLabelValues(c.name, "miss_fetched").Inc()
		span.SetAttributes(attribute.String("cache.outcome", "miss_fetched"))
		return res.Val.(string), nil
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		span.SetStatus(codes.Error, ctx.Err().Error())
		return "", scheduleErr(ver, "get", ctx.Err())
	}
}

// fetcherKindLabel derives a short metrics label from the concrete
// Fetcher implementation without requiring every Fetcher to carry its
// own label field.
func fetcherKindLabel(fetcher Fetcher) string {
	switch fetcher.(type) {
	case *ListFetcher:
		return "list"
	case *S3Fetcher:
		return "s3"
	default:
		return "unknown"
	}
}

func (c *DownloadCache) lookup(ver Version) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	path, ok := c.present[ver]
	return path, ok
}

func (c *DownloadCache) store(ver Version, path string) {
	c.mu.Lock()
	c.present[ver] = path
	metrics.MaterializedVersions.WithLabelValues(c.name).Set(float64(len(c.present)))
	c.mu.Unlock()
}

// LoadFromDir reconciles the on-disk cache directory against fetcher's
// current manifest at startup: it scans fetcher.Folder() for child
// directories, interprets each directory name as a Version via the
// canonical parser (silently skipping anything that doesn't parse), and
// for each one that does, reads the solc file inside and asks
// fetcher.ExpectedHash. A version unknown to the current manifest, or
// whose on-disk content no longer matches the manifest-declared hash
// (partial write, bit rot, manifest rollback), is logged and left
// absent; it will be re-fetched on first Get. A malformed single entry
// never aborts the rest of the scan.
//
// Per spec.md §4.4.1/§6, a folder-scan failure (anything but the folder
// simply not existing yet) bubbles as an I/O error instead of being
// swallowed; per-entry problems remain logged-and-skipped since they
// describe one stale cache entry, not a reconciliation failure.
func (c *DownloadCache) LoadFromDir(fetcher Fetcher) error {
	logger := xglog.WithComponent("cache")

	metrics.KnownVersions.WithLabelValues(c.name).Set(float64(len(fetcher.AllVersions())))

	entries, err := os.ReadDir(fetcher.Folder())
	if err != nil {
		if os.IsNotExist(err) {
			metrics.MaterializedVersions.WithLabelValues(c.name).Set(float64(c.Len()))
			return nil
		}
		metrics.MaterializedVersions.WithLabelValues(c.name).Set(float64(c.Len()))
		return fmt.Errorf("scan compiler folder %s for disk reconciliation: %w", fetcher.Folder(), err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		ver, err := ParseVersion(entry.Name())
		if err != nil {
			// Not a version directory at all (garbage); not our concern.
			continue
		}

		path := filepath.Join(fetcher.Folder(), entry.Name(), executableFileName)
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn().Err(err).Str("version", ver.String()).
					Msg("failed to read on-disk artifact")
			}
			continue
		}

		expected, ok := fetcher.ExpectedHash(ver)
		if !ok {
			logger.Warn().
				Str("version", ver.String()).
				Msg("on-disk artifact not present in upstream manifest, ignoring cached file")
			continue
		}

		actual := sha256Sum(data)
		if actual != expected {
			logger.Warn().
				Str("version", ver.String()).
				Msg("on-disk artifact hash mismatch, ignoring cached file")
			continue
		}

		c.store(ver, path)
	}

	metrics.MaterializedVersions.WithLabelValues(c.name).Set(float64(c.Len()))
	return nil
}

// Loaded reports whether ver is currently present in the cache without
// triggering a fetch.
func (c *DownloadCache) Loaded(ver Version) bool {
	_, ok := c.lookup(ver)
	return ok
}

// Len returns the number of versions currently materialized.
func (c *DownloadCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.present)
}
