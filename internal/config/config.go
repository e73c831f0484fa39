// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration loading for the compiler
// provisioning core: a YAML file (strictly parsed, unknown fields
// rejected) overridden by a small set of environment variables.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FetcherKind selects which Fetcher implementation a Compiler entry binds to.
type FetcherKind string

const (
	FetcherList FetcherKind = "list"
	FetcherS3   FetcherKind = "s3"
)

// ListConfig configures a ListFetcher.
type ListConfig struct {
	ManifestURL string `yaml:"manifestUrl,omitempty"`
}

// S3Config configures an S3Fetcher. AccessKeyID/SecretAccessKey are
// optional; when absent the standard AWS credential chain (env vars,
// shared config file, instance role) is used instead.
type S3Config struct {
	Bucket          string `yaml:"bucket,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	Region          string `yaml:"region,omitempty"`
	AccessKeyID     string `yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty"`
}

// CompilerConfig describes one provisioned compiler family (e.g. solc).
type CompilerConfig struct {
	Name    string      `yaml:"name"`
	Folder  string      `yaml:"folder"`
	Fetcher FetcherKind `yaml:"fetcher"`
	List    ListConfig  `yaml:"list,omitempty"`
	S3      S3Config    `yaml:"s3,omitempty"`
	// RefreshSchedule is the 7-field cron wire format spec.md §6 mandates
	// (sec min hour dom month dow year), e.g. "0 0 * * * * *".
	RefreshSchedule string `yaml:"refreshSchedule,omitempty"`
}

// Config is the root configuration document.
type Config struct {
	LogLevel string `yaml:"logLevel,omitempty"`
	// FetchTimeoutSeconds is the timeout of the HTTP client a ListFetcher
	// uses for each request (manifest or binary download, including reading
	// the body); hashing and writing the file are not covered. A zero in the
	// file keeps the default; a zero from the environment disables the
	// timeout.
	FetchTimeoutSeconds int              `yaml:"fetchTimeoutSeconds,omitempty"`
	Compilers           []CompilerConfig `yaml:"compilers"`
}

// defaultRefreshSchedule is the 7-field cron wire format spec.md §6
// mandates (sec min hour dom month dow year); compiler.normalizeCronSpec
// strips the trailing year field before handing it to robfig/cron, which
// has no year support of its own.
const defaultRefreshSchedule = "0 0 * * * * *" // top of every hour

const defaultFetchTimeoutSeconds = 120

// defaults applies zero-value fallbacks before file/env overrides are merged.
func defaults() Config {
	return Config{LogLevel: "info", FetchTimeoutSeconds: defaultFetchTimeoutSeconds}
}

// Validate checks structural invariants that YAML decoding alone cannot
// enforce: a known fetcher kind and the fields it requires.
func Validate(cfg Config) error {
	for _, c := range cfg.Compilers {
		if c.Name == "" {
			return fmt.Errorf("%w: compilers[].name", ErrMissingField)
		}
		if c.Folder == "" {
			return fmt.Errorf("%w: compilers[%s].folder", ErrMissingField, c.Name)
		}
		switch c.Fetcher {
		case FetcherList:
			if c.List.ManifestURL == "" {
				return fmt.Errorf("%w: compilers[%s].list.manifestUrl", ErrMissingField, c.Name)
			}
		case FetcherS3:
			if c.S3.Bucket == "" {
				return fmt.Errorf("%w: compilers[%s].s3.bucket", ErrMissingField, c.Name)
			}
		default:
			return fmt.Errorf("%w: compilers[%s].fetcher=%q", ErrUnknownFetcherKind, c.Name, c.Fetcher)
		}
	}
	return nil
}

// Loader loads a Config from a YAML file, applying environment overrides
// afterward (ENV > file > defaults, matching the teacher's precedence
// order).
type Loader struct {
	configPath string
}

// NewLoader constructs a Loader for the YAML file at configPath. An empty
// configPath means "defaults and environment only".
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load reads, merges, and validates the configuration.
func (l *Loader) Load() (Config, error) {
	cfg := defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		cfg = mergeFileConfig(cfg, fileCfg)
	}

	l.mergeEnvConfig(&cfg)

	for i := range cfg.Compilers {
		if cfg.Compilers[i].RefreshSchedule == "" {
			cfg.Compilers[i].RefreshSchedule = defaultRefreshSchedule
		}
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile reads path as strict YAML: unknown fields are rejected and
// multiple documents in one file are an error.
func (l *Loader) loadFile(path string) (Config, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return Config{}, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read file: %w", err)
	}

	var fileCfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
	}

	if err := dec.Decode(new(struct{})); err != io.EOF {
		return Config{}, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return fileCfg, nil
}

// mergeFileConfig overlays file-sourced values onto defaults. A zero-value
// field in src leaves the existing value in dst untouched.
func mergeFileConfig(dst Config, src Config) Config {
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.FetchTimeoutSeconds != 0 {
		dst.FetchTimeoutSeconds = src.FetchTimeoutSeconds
	}
	if len(src.Compilers) > 0 {
		dst.Compilers = src.Compilers
	}
	return dst
}

const (
	envLogLevel            = "SOLC_CACHE_LOG_LEVEL"
	envFetchTimeoutSeconds = "SOLC_CACHE_FETCH_TIMEOUT_SECONDS"
)

// mergeEnvConfig applies the small set of environment overrides this
// service supports. Per-compiler settings are file-only: they name
// structural relationships (fetcher kind, bucket, manifest URL) that do
// not lend themselves to flat env vars the way a single log level does.
func (l *Loader) mergeEnvConfig(cfg *Config) {
	cfg.LogLevel = ParseString(envLogLevel, cfg.LogLevel)
	cfg.FetchTimeoutSeconds = ParseInt(envFetchTimeoutSeconds, cfg.FetchTimeoutSeconds)
}
