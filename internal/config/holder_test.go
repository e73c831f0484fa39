// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_WatchFileReloadsOnWrite(t *testing.T) {
	path := writeConfigFile(t, `
compilers:
  - name: solc
    folder: /var/cache/solc
    fetcher: list
    list:
      manifestUrl: https://example.com/list.json
`)
	loader := NewLoader(path)
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	require.NoError(t, h.WatchFile(path))
	defer h.Close()

	assert.Equal(t, "https://example.com/list.json", h.Get().Compilers[0].List.ManifestURL)

	updated := []byte(`
compilers:
  - name: solc
    folder: /var/cache/solc
    fetcher: list
    list:
      manifestUrl: https://example.com/updated-list.json
`)
	require.NoError(t, os.WriteFile(path, updated, 0o644))

	require.Eventually(t, func() bool {
		return h.Get().Compilers[0].List.ManifestURL == "https://example.com/updated-list.json"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestHolder_KeepsPreviousSnapshotOnInvalidReload(t *testing.T) {
	path := writeConfigFile(t, `
compilers:
  - name: solc
    folder: /var/cache/solc
    fetcher: list
    list:
      manifestUrl: https://example.com/list.json
`)
	loader := NewLoader(path)
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	require.NoError(t, h.WatchFile(path))
	defer h.Close()

	require.NoError(t, os.WriteFile(path, []byte(`compilers:\n  - name: solc\n    fetcher: bogus\n`), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, "https://example.com/list.json", h.Get().Compilers[0].List.ManifestURL)
}
