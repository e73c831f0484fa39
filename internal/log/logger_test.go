// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_DefaultsServiceName(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Level: "info"})

	Base().Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "solc-cache", entry["service"])
	assert.Equal(t, "hello", entry["message"])
}

func TestConfigure_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Level: "warn"})

	Base().Info().Msg("suppressed")
	Base().Warn().Msg("kept")

	out := buf.String()
	assert.False(t, strings.Contains(out, "suppressed"))
	assert.True(t, strings.Contains(out, "kept"))
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	WithComponent("cache").Info().Msg("ping")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cache", entry["component"])
}

func TestJobIDRoundTrip(t *testing.T) {
	ctx := ContextWithJobID(nil, "job-1")
	assert.Equal(t, "job-1", JobIDFromContext(ctx))
	assert.Empty(t, JobIDFromContext(nil))

	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	WithContext(ctx, Base()).Info().Msg("refreshed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "job-1", entry["job_id"])
}
