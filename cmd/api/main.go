package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sanosuguru/venue-ticket-service/internal/api/handler"
	"github.com/sanosuguru/venue-ticket-service/internal/api/middleware"
	"github.com/sanosuguru/venue-ticket-service/internal/api/server"
	"github.com/sanosuguru/venue-ticket-service/internal/application"
	"github.com/sanosuguru/venue-ticket-service/internal/config"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/venue-ticket-service/internal/infrastructure/memory"
	redisinfra "github.com/sanosuguru/venue-ticket-service/internal/infrastructure/redis"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/clock"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/logger"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/metrics"
	"github.com/sanosuguru/venue-ticket-service/internal/worker"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "設定ファイル（YAML）のパス。未指定なら環境変数のみ")
	venuePath := pflag.String("venue", "", "会場レイアウト（YAML）のパス。VENUE_FILE より優先")
	pflag.Parse()

	if err := run(*configPath, *venuePath); err != nil {
		fmt.Fprintf(os.Stderr, "起動に失敗しました: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, venuePath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if venuePath != "" {
		cfg.Venue.File = venuePath
	}

	log := logger.NewLoggerWithLevel(cfg.Env, cfg.LogLevel)
	logger.Set(log)
	defer logger.Sync()

	venueFile, err := config.LoadVenue(cfg.Venue.File)
	if err != nil {
		return err
	}
	v, err := venueFile.Build()
	if err != nil {
		return err
	}

	clk := clock.Real{}
	inventory, err := memory.NewSeatRepository(v, seat.NewBasicScorer(v))
	if err != nil {
		return err
	}
	holds := memory.NewSeatHoldRepository(clk)

	m := metrics.Init()
	opts := []application.Option{
		application.WithClock(clk),
		application.WithConfirmationCodeGenerator(application.NewAlphabeticCodeGenerator(cfg.Hold.ConfirmationCodeLength)),
		application.WithMetrics(m),
		application.WithLogger(log),
	}

	var checks []handler.HealthCheck
	if cfg.Redis.Enabled {
		client, err := redisinfra.NewClient(&redisinfra.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()

		opts = append(opts, application.WithSeatCache(redisinfra.NewSeatCache(client, venueFile.Name), cfg.Redis.CacheTTL))
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisinfra.Ping(ctx, client) },
		})
		log.Info("空席数キャッシュを有効化", zap.String("addr", cfg.Redis.Host+":"+cfg.Redis.Port))
	}

	svc := application.NewTicketService(v, inventory, holds, opts...)

	e := server.New(svc, server.Options{
		Metrics:        m,
		MetricsAuth:    middleware.MetricsAuth{User: cfg.Metrics.User, Password: cfg.Metrics.Password},
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		HealthChecks:   checks,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sweeper *worker.ExpiredHoldSweeper
	if cfg.Worker.SweepInterval > 0 {
		sweeper = worker.NewExpiredHoldSweeper(svc, cfg.Worker.SweepInterval)
		go sweeper.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("サーバー起動",
			zap.String("port", cfg.Server.Port),
			zap.String("venue", venueFile.Name),
			zap.Int("total_seats", v.TotalSeats()),
			zap.Int("hold_limit_seconds", v.HoldLimitSeconds()),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("サーバーをシャットダウンしています...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("サーバー起動エラー: %w", err)
		}
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーシャットダウンエラー: %w", err)
	}

	log.Info("サーバーが正常にシャットダウンしました")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
