// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blockscout/solc-cache/internal/compiler"
	"github.com/blockscout/solc-cache/internal/compilers"
	"github.com/blockscout/solc-cache/internal/config"
	xglog "github.com/blockscout/solc-cache/internal/log"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve /metrics on")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "solc-cache"})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "solc-cache"})

	holder := config.NewHolder(cfg, loader)
	if *configPath != "" {
		if err := holder.WatchFile(*configPath); err != nil {
			logger.Warn().Err(err).Msg("config hot-reload disabled")
		}
	}
	defer holder.Close()

	sched := compiler.NewScheduler()
	sched.Start()
	defer sched.Stop()

	registry := make(map[string]*compilers.Compilers, len(cfg.Compilers))
	for _, c := range cfg.Compilers {
		facade, err := buildCompiler(ctx, sched, c, cfg.FetchTimeoutSeconds)
		if err != nil {
			logger.Fatal().Err(err).Str("compiler", c.Name).Msg("failed to initialize compiler fetcher")
		}
		registry[c.Name] = facade
		logger.Info().Str("compiler", c.Name).Str("fetcher", string(c.Fetcher)).Msg("compiler provisioning ready")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	logger.Info().Str("addr", *metricsAddr).Int("compilers", len(registry)).Msg("solc-cache daemon started")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	_ = srv.Close()
}

// buildCompiler constructs a fetcher for cfg, performs the spec-mandated
// blocking initial version listing, registers its scheduled refresh job,
// and wraps it in a Compilers façade. fetchTimeoutSeconds bounds the HTTP
// client ListFetcher downloads through; zero falls back to no timeout.
func buildCompiler(ctx context.Context, sched *compiler.Scheduler, cfg config.CompilerConfig, fetchTimeoutSeconds int) (*compilers.Compilers, error) {
	switch cfg.Fetcher {
	case config.FetcherList:
		client := &http.Client{Timeout: time.Duration(fetchTimeoutSeconds) * time.Second}
		lf := compiler.NewListFetcher(client, cfg.List.ManifestURL, cfg.Folder, nil)
		primeVersions(ctx, cfg.Name, lf.Versions(), lf)
		if _, err := compiler.Register(sched, cfg.RefreshSchedule, cfg.Name, lf.Versions(), lf); err != nil {
			return nil, err
		}
		return compilers.New(cfg.Name, lf)

	case config.FetcherS3:
		client, err := newS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("build s3 client: %w", err)
		}
		sf := compiler.NewS3Fetcher(client, cfg.S3.Bucket, cfg.S3.Prefix, cfg.Folder)
		primeVersions(ctx, cfg.Name, sf.Versions(), sf)
		if _, err := compiler.Register(sched, cfg.RefreshSchedule, cfg.Name, sf.Versions(), sf); err != nil {
			return nil, err
		}
		return compilers.New(cfg.Name, sf)

	default:
		return nil, fmt.Errorf("compiler %s: unknown fetcher kind %q", cfg.Name, cfg.Fetcher)
	}
}

// primeVersions performs the blocking initial version listing spec.md
// §4.2.2/§4.2.3 require at construction time ("fetch the manifest once" /
// "list the bucket ... once"), so AllVersions and disk reconciliation have
// something to work with immediately rather than waiting for the first
// scheduled refresh tick. A failure here is logged and tolerated, the same
// way a failed scheduled refresh is: the compiler starts with an empty
// snapshot and picks up versions on the next tick instead of blocking
// daemon startup on an upstream outage.
func primeVersions[T any](ctx context.Context, name string, rv *compiler.RefreshableVersions[T], vf compiler.VersionsFetcher[T]) {
	logger := xglog.WithComponent("main")
	v, err := vf.FetchVersions(ctx)
	if err != nil {
		logger.Warn().Str("compiler", name).Err(err).Msg("initial version listing failed, starting empty")
		return
	}
	rv.Write(v)
}

// newS3Client loads region and credentials for an S3Fetcher. When the
// config file supplies a static key pair it takes precedence; otherwise
// the standard AWS credential chain (env vars, shared config file,
// EC2/ECS instance role) is used.
func newS3Client(ctx context.Context, s3cfg config.S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s3cfg.Region))
	}
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}
