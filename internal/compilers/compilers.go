// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package compilers wires a DownloadCache to a concrete Fetcher and
// exposes the small surface the rest of the service needs: look up a
// compiler binary by version, list known versions, and force a
// disk-reconciliation pass. It corresponds to the original source's
// top-level Compilers type.
package compilers

import (
	"context"

	"github.com/blockscout/solc-cache/internal/compiler"
)

// Compilers is the façade a contract-verification service depends on. It
// does not know whether the underlying Fetcher is backed by an HTTP
// manifest or an S3 bucket.
type Compilers struct {
	cache   *compiler.DownloadCache
	fetcher compiler.Fetcher
}

// New constructs a Compilers façade around fetcher, labeling its metrics
// with name (e.g. "solc"). It immediately reconciles against whatever is
// already on disk so a restart does not re-download artifacts it already
// has. A folder-scan I/O error during that initial reconciliation bubbles
// to the caller rather than being swallowed.
func New(name string, fetcher compiler.Fetcher) (*Compilers, error) {
	cache := compiler.NewDownloadCache(name)
	if err := cache.LoadFromDir(fetcher); err != nil {
		return nil, err
	}
	return &Compilers{cache: cache, fetcher: fetcher}, nil
}

// Get returns the local path to the compiler binary for ver, fetching it
// if necessary.
func (c *Compilers) Get(ctx context.Context, ver compiler.Version) (string, error) {
	return c.cache.Get(ctx, c.fetcher, ver)
}

// AllVersions returns every version currently known upstream, not just
// the ones already materialized on disk.
func (c *Compilers) AllVersions() []compiler.Version {
	return c.fetcher.AllVersions()
}

// FetchVersions re-reconciles the cache against the current on-disk
// state and the fetcher's present manifest. It does not talk to the
// network itself; it is intended to run after a scheduled refresh has
// updated the fetcher's RefreshableVersions snapshot, picking up any
// artifacts that refresh made newly expected. A folder-scan I/O error
// bubbles to the caller rather than being swallowed.
func (c *Compilers) FetchVersions() error {
	return c.cache.LoadFromDir(c.fetcher)
}

// Loaded reports whether ver is currently materialized without
// triggering a fetch.
func (c *Compilers) Loaded(ver compiler.Version) bool {
	return c.cache.Loaded(ver)
}
