// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package compiler

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the single cron.Cron instance that every
// RefreshableVersions refresh job registers against. Seconds-resolution
// schedules are enabled so the 6-field form ("sec min hour dom month dow")
// robfig/cron actually parses can be expressed; normalizeCronSpec below is
// what lets callers still write the 7-field wire format ("sec min hour dom
// month dow year") spec.md §6 mandates.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler constructs a Scheduler with second-level precision enabled.
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithSeconds())}
}

// normalizeCronSpec accepts the 7-field cron wire format spec.md §6
// mandates ("sec min hour dom month dow year", the shape the original
// Rust `cron` crate parses — see _examples/original_source/src/config.rs)
// and translates it into the 6-field expression robfig/cron/v3 actually
// understands: robfig has no year field at all, so the trailing year
// token is dropped once its presence (not its content — robfig never
// interprets it either way) has been confirmed. Predefined descriptors
// ("@every 1s", "@hourly", ...) are passed through unchanged, since they
// carry no positional fields to count.
func normalizeCronSpec(spec string) (string, error) {
	trimmed := strings.TrimSpace(spec)
	if strings.HasPrefix(trimmed, "@") {
		return trimmed, nil
	}
	fields := strings.Fields(trimmed)
	if len(fields) != 7 {
		return "", fmt.Errorf("scheduler: expected a 7-field cron expression (sec min hour dom month dow year), got %d field(s) in %q", len(fields), spec)
	}
	return strings.Join(fields[:6], " "), nil
}

// Register parses spec as a 7-field cron expression and registers a
// refresh job for r against fetcher, tagging log lines with name. The
// returned entry ID can be used with Remove.
func Register[T any](s *Scheduler, spec string, name string, r *RefreshableVersions[T], fetcher VersionsFetcher[T]) (cron.EntryID, error) {
	id, err := r.SpawnRefresh(s.cron, spec, name, fetcher)
	if err != nil {
		return 0, fmt.Errorf("scheduler: register %q: %w", name, err)
	}
	return id, nil
}

// Remove cancels a previously registered job.
func (s *Scheduler) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

// Start begins running registered jobs in their own goroutine. Safe to
// call once; subsequent calls are no-ops per cron.Cron's own contract.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and blocks until any in-flight job has
// finished.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
