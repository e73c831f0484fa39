// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package compiler

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"
)

// executableFileName is the fixed basename every fetcher variant writes
// the compiler binary under.
const executableFileName = "solc"

// SaveExecutable hashes data and writes it to
// <root>/<ver>/solc with executable permissions, running the hash and the
// write concurrently since they both only read the shared in-memory bytes
// (spec requirement: "hashing and file-writing must run concurrently").
// If either sub-task fails, the whole operation fails; on a hash mismatch
// the partially written file is left in place (per spec) but no path is
// ever returned to the caller, so the download cache never records a slot
// for it.
func SaveExecutable(ctx context.Context, data []byte, expected H256, root string, ver Version) (string, error) {
	dir := filepath.Join(root, ver.String())
	path := filepath.Join(dir, executableFileName)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fileErr(ver, "mkdir", err)
	}

	g, _ := errgroup.WithContext(ctx)

	var actual H256
	g.Go(func() error {
		actual = H256(sha256.Sum256(data))
		return nil
	})

	g.Go(func() error {
		return writeExecutable(path, data)
	})

	if err := g.Wait(); err != nil {
		return "", fileErr(ver, "write", err)
	}

	if actual != expected {
		return "", hashMismatch(ver, expected, actual)
	}

	return path, nil
}

// sha256Sum is a small wrapper kept alongside SaveExecutable since it is
// the only other place in this package that hashes raw bytes (disk
// reconciliation at cache startup).
func sha256Sum(data []byte) H256 {
	return H256(sha256.Sum256(data))
}

// writeExecutable durably and atomically replaces path with data, setting
// POSIX mode 0o777 (owner/group/other rwx, not reduced by the process
// umask) so the result is directly executable. renameio's rename-over-existing-file semantics satisfy the
// "remove any existing solc" requirement without a separate unlink step,
// and its fsync-before-rename is strictly stronger than the fsync the base
// spec merely recommends.
func writeExecutable(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithStaticPermissions(0o777))
	if err != nil {
		return err
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return err
	}

	return pending.CloseAtomicallyReplace()
}
