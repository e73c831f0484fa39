// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package compiler

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustVersion(t *testing.T, s string) Version {
	t.Helper()
	v, err := ParseVersion(s)
	require.NoError(t, err)
	return v
}

func TestSaveExecutable_Success(t *testing.T) {
	root := t.TempDir()
	ver := mustVersion(t, "v0.8.25+commit.b61c2a91")
	data := []byte("fake solc binary contents")
	expected := H256(sha256.Sum256(data))

	path, err := SaveExecutable(context.Background(), data, expected, root, ver)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ver.String(), "solc"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o777), info.Mode().Perm())
}

func TestSaveExecutable_HashMismatch(t *testing.T) {
	root := t.TempDir()
	ver := mustVersion(t, "v0.8.25+commit.b61c2a91")
	data := []byte("hello")
	wrongExpected := H256(sha256.Sum256([]byte("world")))

	_, err := SaveExecutable(context.Background(), data, wrongExpected, root, ver)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHashMismatch)

	// a subsequent call with the correct hash succeeds (S3 scenario).
	correct := H256(sha256.Sum256(data))
	path, err := SaveExecutable(context.Background(), data, correct, root, ver)
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSaveExecutable_OverwritesExisting(t *testing.T) {
	root := t.TempDir()
	ver := mustVersion(t, "v0.8.25+commit.b61c2a91")

	first := []byte("first contents")
	_, err := SaveExecutable(context.Background(), first, H256(sha256.Sum256(first)), root, ver)
	require.NoError(t, err)

	second := []byte("second, different, longer contents")
	path, err := SaveExecutable(context.Background(), second, H256(sha256.Sum256(second)), root, ver)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}
