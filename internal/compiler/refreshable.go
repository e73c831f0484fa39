// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package compiler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	xglog "github.com/blockscout/solc-cache/internal/log"
	"github.com/blockscout/solc-cache/internal/metrics"
)

// VersionsFetcher produces the current upstream snapshot of type T. Both
// ListFetcher (Response = Manifest) and S3Fetcher
// (Response = map[Version]struct{}) implement it.
type VersionsFetcher[T any] interface {
	FetchVersions(ctx context.Context) (T, error)
}

// RefreshableVersions holds a snapshot of upstream-derived data that many
// readers may access concurrently and that a single background job
// replaces atomically on a schedule. T must support equality via the
// caller-supplied equal function so a refresh that returns an unchanged
// value never takes the write lock.
type RefreshableVersions[T any] struct {
	mu    sync.RWMutex
	value T
	equal func(a, b T) bool
	lenOf func(T) int
}

// NewRefreshableVersions constructs a container with a starting snapshot.
// equal must report structural equality of two snapshots; lenOf reports a
// size for observability logging.
func NewRefreshableVersions[T any](initial T, equal func(a, b T) bool, lenOf func(T) int) *RefreshableVersions[T] {
	return &RefreshableVersions[T]{value: initial, equal: equal, lenOf: lenOf}
}

// Read acquires shared access to the current snapshot and returns a copy
// of the value under the lock. Multiple readers may proceed concurrently.
func (r *RefreshableVersions[T]) Read() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Write replaces the snapshot unconditionally, taking the exclusive lock.
func (r *RefreshableVersions[T]) Write(v T) {
	r.mu.Lock()
	r.value = v
	r.mu.Unlock()
}

// SpawnRefresh starts a background job on sched (a shared cron.Cron
// instance) that, on each fire, calls fetcher.FetchVersions and swaps the
// snapshot in if it changed. Fetch errors are logged and swallowed so the
// job survives to the next tick; the job is owned by sched and terminates
// when sched is stopped. spec is the 7-field cron wire format spec.md §6
// mandates (or a predefined descriptor); see normalizeCronSpec.
func (r *RefreshableVersions[T]) SpawnRefresh(sched *cron.Cron, spec string, name string, fetcher VersionsFetcher[T]) (cron.EntryID, error) {
	cronSpec, err := normalizeCronSpec(spec)
	if err != nil {
		return 0, err
	}

	logger := xglog.WithComponent("refresh")
	return sched.AddFunc(cronSpec, func() {
		jobID := uuid.NewString()
		ctx := xglog.ContextWithJobID(context.Background(), jobID)
		jlog := xglog.WithContext(ctx, logger)

		jlog.Info().Str("job", name).Msg("looking for new compiler versions")
		fetched, err := fetcher.FetchVersions(ctx)
		if err != nil {
			jlog.Error().Str("job", name).Err(err).Msg("error during version refresh")
			metrics.RefreshRuns.WithLabelValues(name, "error").Inc()
			return
		}

		r.mu.RLock()
		unchanged := r.equal(fetched, r.value)
		oldLen := r.lenOf(r.value)
		r.mu.RUnlock()

		if unchanged {
			jlog.Info().Str("job", name).Msg("no new versions found")
			metrics.RefreshRuns.WithLabelValues(name, "unchanged").Inc()
			return
		}

		r.mu.Lock()
		r.value = fetched
		r.mu.Unlock()
		newLen := r.lenOf(fetched)

		jlog.Info().
			Str("job", name).
			Int("old_length", oldLen).
			Int("new_length", newLen).
			Msg("found new compiler versions")
		metrics.RefreshRuns.WithLabelValues(name, "swapped").Inc()
	})
}
