// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ValidListFetcher(t *testing.T) {
	path := writeConfigFile(t, `
logLevel: debug
compilers:
  - name: solc
    folder: /var/cache/solc
    fetcher: list
    list:
      manifestUrl: https://example.com/list.json
`)
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Compilers, 1)
	assert.Equal(t, FetcherList, cfg.Compilers[0].Fetcher)
	assert.Equal(t, defaultRefreshSchedule, cfg.Compilers[0].RefreshSchedule)
}

func TestLoad_ValidS3Fetcher(t *testing.T) {
	path := writeConfigFile(t, `
compilers:
  - name: solc
    folder: /var/cache/solc
    fetcher: s3
    refreshSchedule: "0 */5 * * * * *"
    s3:
      bucket: solc-builds
`)
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "solc-builds", cfg.Compilers[0].S3.Bucket)
	assert.Equal(t, "0 */5 * * * * *", cfg.Compilers[0].RefreshSchedule)
}

func TestLoad_RejectsUnknownFetcherKind(t *testing.T) {
	path := writeConfigFile(t, `
compilers:
  - name: solc
    folder: /var/cache/solc
    fetcher: ftp
`)
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFetcherKind))
}

func TestLoad_RejectsMissingRequiredFieldForKind(t *testing.T) {
	path := writeConfigFile(t, `
compilers:
  - name: solc
    folder: /var/cache/solc
    fetcher: list
`)
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
}

func TestLoad_RejectsUnknownYAMLField(t *testing.T) {
	path := writeConfigFile(t, `
compilers:
  - name: solc
    folder: /var/cache/solc
    fetcher: list
    list:
      manifestUrl: https://example.com/list.json
    bogusField: true
`)
	_, err := NewLoader(path).Load()
	require.Error(t, err)
}

func TestLoad_EnvOverridesLogLevel(t *testing.T) {
	path := writeConfigFile(t, `
logLevel: info
compilers:
  - name: solc
    folder: /var/cache/solc
    fetcher: list
    list:
      manifestUrl: https://example.com/list.json
`)
	t.Setenv(envLogLevel, "warn")
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, defaultFetchTimeoutSeconds, cfg.FetchTimeoutSeconds)
	assert.Empty(t, cfg.Compilers)
}

func TestLoad_FetchTimeoutSecondsEnvOverride(t *testing.T) {
	t.Setenv(envFetchTimeoutSeconds, "45")
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.FetchTimeoutSeconds)
}

func TestLoad_FetchTimeoutSecondsFileOverride(t *testing.T) {
	path := writeConfigFile(t, `
fetchTimeoutSeconds: 90
compilers:
  - name: solc
    folder: /var/cache/solc
    fetcher: list
    list:
      manifestUrl: https://example.com/list.json
`)
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.FetchTimeoutSeconds)
}
