package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Siddarth2230/shortlink/internal/archive"
	"github.com/Siddarth2230/shortlink/internal/config"
	"github.com/Siddarth2230/shortlink/internal/handler"
	"github.com/Siddarth2230/shortlink/internal/repository"
	"github.com/Siddarth2230/shortlink/internal/service"
	"github.com/Siddarth2230/shortlink/internal/sweeper"
	"github.com/Siddarth2230/shortlink/pkg/idgen"
	"github.com/Siddarth2230/shortlink/pkg/logsink"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "shortlink",
	Short: "URL shortener with expiring links and click statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("cannot load config: %w", err)
		}
		return run(cmd.Context(), cfg)
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config-path", ".", "directory containing app.env")
	flags.String("addr", "", "listen address, overrides SERVER_ADDRESS")
	flags.String("log-level", "", "debug, info, warn or error; overrides LOG_LEVEL")

	_ = viper.BindPFlag("SERVER_ADDRESS", flags.Lookup("addr"))
	_ = viper.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	var sink *logsink.Client
	if cfg.LogSinkURL != "" {
		sink = logsink.NewClient(cfg.LogSinkURL, logsink.WithToken(cfg.LogSinkToken))
	}
	logger := newLogger(cfg, sink)
	slog.SetDefault(logger)

	gen, closeGen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGen()

	svc := service.NewLinkService(repository.NewLinkRepository(logger), gen, logger)
	svc.DefaultValidity = cfg.DefaultValidity()

	var archiver archive.Archiver = archive.Nop{}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("db ping failed: %w", err)
		}
		pg := archive.NewPostgres(db, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		archiver = pg
	}

	h := handler.NewLinkHandler(svc, cfg.BaseURL, logger)
	srv := &http.Server{
		Addr: cfg.ServerAddress,
		Handler: handler.NewRouter(h, handler.RouterConfig{
			AllowedOrigin: cfg.CORSOrigin,
			Logger:        logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if sink != nil {
		g.Go(func() error { return sink.Run(gctx) })
	}

	if cfg.SweepSchedule != "" {
		sw := sweeper.New(svc, archiver, cfg.SweepRetention, logger)
		if err := sw.Schedule(cfg.SweepSchedule); err != nil {
			return err
		}
		g.Go(func() error { return sw.Start(gctx) })
	}

	g.Go(func() error {
		logger.Info("server starting", "addr", cfg.ServerAddress, "generator", cfg.CodeGenerator)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.Config, sink *logsink.Client) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	if sink != nil {
		h = logsink.NewHandler(h, sink, parseLevel(cfg.LogSinkLevel))
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newGenerator builds the short code generator selected by CODE_GENERATOR.
// The returned func releases any connection it holds.
func newGenerator(ctx context.Context, cfg config.Config) (idgen.Generator, func(), error) {
	noop := func() {}

	switch cfg.CodeGenerator {
	case config.GeneratorCounter:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opt.DialTimeout = 5 * time.Second
		opt.ReadTimeout = 3 * time.Second

		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis ping failed: %w", err)
		}
		return idgen.NewCounterGenerator(client, cfg.RedisCounterKey), func() { _ = client.Close() }, nil

	case config.GeneratorSnowflake:
		gen, err := idgen.NewSnowflakeGenerator(cfg.SnowflakeNodeID, idgen.DefaultEpoch)
		if err != nil {
			return nil, noop, err
		}
		return gen, noop, nil

	default:
		gen, err := idgen.NewRandomGenerator(cfg.CodeLength)
		if err != nil {
			return nil, noop, err
		}
		return gen, noop, nil
	}
}
