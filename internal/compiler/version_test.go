// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package compiler

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion_Release(t *testing.T) {
	v, err := ParseVersion("v0.8.25+commit.b61c2a91")
	require.NoError(t, err)
	assert.Equal(t, Release, v.Kind)
	assert.Equal(t, uint64(0), v.Major)
	assert.Equal(t, uint64(8), v.Minor)
	assert.Equal(t, uint64(25), v.Patch)
	assert.Equal(t, "b61c2a91", v.Commit.String())
}

func TestParseVersion_Nightly(t *testing.T) {
	v, err := ParseVersion("v0.8.26-nightly.2025.1.3+commit.deadbeef")
	require.NoError(t, err)
	assert.Equal(t, Nightly, v.Kind)
	assert.Equal(t, Date{Year: 2025, Month: 1, Day: 3}, v.Date)
}

func TestParseVersion_Rejects(t *testing.T) {
	cases := []string{
		"",
		"0.8.25+commit.b61c2a91",           // missing leading v
		"v0.8.25+commit.b61c2a9",            // commit too short
		"v0.8.25+commit.b61c2a91z",          // commit too long / non-hex
		"v0.8.25_commit.b61c2a91",           // wrong separator
		"v0.8.25+commit.b61c2a91 ",          // trailing data
		"v0.8.25+commit.B61C2A91",           // uppercase hex rejected
		"v0.8.26-nightly.2025.13.3+commit.deadbeef", // invalid month
	}
	for _, c := range cases {
		_, err := ParseVersion(c)
		assert.Errorf(t, err, "expected parse error for %q", c)
		assert.True(t, errors.Is(err, ErrParse), "expected ErrParse for %q", c)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	inputs := []string{
		"v0.8.25+commit.b61c2a91",
		"v0.4.10+commit.f0d539ae",
		"v0.8.26-nightly.2025.1.3+commit.deadbeef",
		"v1.0.0-nightly.2024.12.31+commit.00000000",
	}
	for _, in := range inputs {
		v, err := ParseVersion(in)
		require.NoError(t, err)
		assert.Equal(t, in, v.String())

		v2, err := ParseVersion(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, v2)
	}
}

func TestCompare_SemverDominates(t *testing.T) {
	a := mustVersion(t, "v0.8.24+commit.b61c2a91")
	b := mustVersion(t, "v0.8.25+commit.00000000")
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestCompare_ReleaseAboveNightlyAtEqualSemver(t *testing.T) {
	release := mustVersion(t, "v0.8.25+commit.b61c2a91")
	nightly := mustVersion(t, "v0.8.25-nightly.2025.1.1+commit.b61c2a91")
	assert.True(t, nightly.Less(release))
	assert.False(t, release.Less(nightly))
}

func TestCompare_NightlyDateOrdering(t *testing.T) {
	early := mustVersion(t, "v0.8.25-nightly.2025.1.1+commit.00000000")
	late := mustVersion(t, "v0.8.25-nightly.2025.1.2+commit.00000000")
	assert.True(t, early.Less(late))
}

func TestCompare_CommitTieBreak(t *testing.T) {
	a := mustVersion(t, "v0.8.25+commit.00000000")
	b := mustVersion(t, "v0.8.25+commit.00000001")
	assert.True(t, a.Less(b))
}

func TestVersion_UsableAsMapKey(t *testing.T) {
	m := map[Version]string{}
	v1 := mustVersion(t, "v0.8.25+commit.b61c2a91")
	v2, err := ParseVersion(v1.String())
	require.NoError(t, err)

	m[v1] = "present"
	assert.Equal(t, "present", m[v2])
}

func TestSortStability(t *testing.T) {
	versions := []Version{
		mustVersion(t, "v0.8.25+commit.b61c2a91"),
		mustVersion(t, "v0.4.10+commit.f0d539ae"),
		mustVersion(t, "v0.8.25-nightly.2025.1.1+commit.b61c2a91"),
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Less(versions[j]) })
	assert.Equal(t, "v0.4.10+commit.f0d539ae", versions[0].String())
	assert.Equal(t, "v0.8.25-nightly.2025.1.1+commit.b61c2a91", versions[1].String())
	assert.Equal(t, "v0.8.25+commit.b61c2a91", versions[2].String())
}
