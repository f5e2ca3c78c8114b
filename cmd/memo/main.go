package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bjaus/memo"
	"github.com/bjaus/memo/fetch"
	"github.com/bjaus/memo/fetch/redisstore"
	"github.com/bjaus/memo/internal/config"
	"github.com/bjaus/memo/internal/logger"
	"github.com/bjaus/memo/internal/server"
	"github.com/bjaus/memo/metrics"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, envFile string

	root := &cobra.Command{
		Use:          "memo",
		Short:        "TTL memoization cache with an HTTP debug surface",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile == "" {
				_ = godotenv.Load() // optional .env in the working directory
				return nil
			}
			if err := godotenv.Load(envFile); err != nil {
				return errors.Wrapf(err, "load env file %s", envFile)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (env MEMO_CONFIG)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the config")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if !cmd.Flags().Changed("config") {
				path = os.Getenv("MEMO_CONFIG")
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return root
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "memo",
		Version:     version,
	})
	defer func() { _ = log.Sync() }()

	rec, err := metrics.NewRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	defaultTTL := config.Duration(cfg.Cache.DefaultTTL)

	kvOpts := append(metrics.CacheHooks[json.RawMessage](rec, "kv"),
		memo.WithTTL[json.RawMessage](defaultTTL),
		memo.WithLogger[json.RawMessage](log.Named("kv")),
	)
	kv := memo.New[json.RawMessage](kvOpts...)
	rec.Watch("kv", kv)

	upstreamOpts := append(metrics.CacheHooks[[]byte](rec, "upstream"),
		memo.WithTTL[[]byte](defaultTTL),
		memo.WithSizer(func(b []byte) int { return len(b) }),
		memo.WithLogger[[]byte](log.Named("upstream")),
	)
	upstreamCache := memo.New[[]byte](upstreamOpts...)
	rec.Watch("upstream", upstreamCache)

	fetchOpts := []fetch.Option[[]byte]{
		fetch.WithRetry[[]byte](fetch.Retry{
			MaxAttempts: cfg.Upstream.Retry.MaxAttempts,
			BaseDelay:   config.Duration(cfg.Upstream.Retry.BaseDelay),
			MaxDelay:    config.Duration(cfg.Upstream.Retry.MaxDelay),
			Multiplier:  cfg.Upstream.Retry.Multiplier,
		}),
		fetch.WithLogger[[]byte](log.Named("fetch")),
		fetch.OnRetry[[]byte](metrics.RetryHook(rec, "upstream")),
	}

	if cfg.Store.Kind == "redis" {
		client, err := redisstore.Dial(ctx, cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()

		store := redisstore.New[[]byte](client, redisstore.WithPrefix(cfg.Store.Redis.Prefix))
		fetchOpts = append(fetchOpts,
			fetch.WithStore[[]byte](store),
			fetch.WithStoreErrorHandler[[]byte](func(err error) error {
				log.Warn("shared store unavailable, continuing without it", logger.Err(err))
				return nil
			}),
		)
		log.Info("shared store enabled", zap.String("addr", cfg.Store.Redis.Addr))
	}

	srv := server.New(server.Options{
		Cache:       kv,
		Fetcher:     fetch.New(upstreamCache, fetchOpts...),
		UpstreamURL: cfg.Upstream.BaseURL,
		FetchTTL:    config.Duration(cfg.Upstream.TTL),
		Client:      &http.Client{Timeout: config.Duration(cfg.Upstream.Timeout)},
		Gatherer:    prometheus.DefaultGatherer,
		Logger:      log,
	})

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("upstream", cfg.Upstream.BaseURL))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
