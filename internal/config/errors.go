// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
	// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrUnknownFetcherKind means a compiler entry named a fetcher kind
	// other than "list" or "s3".
	ErrUnknownFetcherKind = errors.New("unknown fetcher kind")

	// ErrMissingField means a required field for the selected fetcher kind
	// was left empty.
	ErrMissingField = errors.New("missing required config field")
)
