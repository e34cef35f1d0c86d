// cmd/scoring-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"credit-scoring/internal/api"
	"credit-scoring/internal/common/camunda"
	"credit-scoring/internal/common/config"
	"credit-scoring/internal/common/database"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/observability"
	"credit-scoring/internal/scoring/model"
	"credit-scoring/internal/scoring/pipeline"
	pcs "credit-scoring/internal/workers/scoring/predict-credit-score"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
type pingCloser interface {
	Ping(ctx context.Context) error
	Close() error
}

// pingOrClose releases c when it cannot reach its backend, so a retry starts clean.
func pingOrClose(ctx context.Context, c pingCloser) error {
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return err
	}
	return nil
}

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func thresholdsFrom(cfg config.ScoringConfig) pipeline.Thresholds {
	return pipeline.Thresholds{
		LowRiskMin:    cfg.LowRiskMin,
		MediumRiskMin: cfg.MediumRiskMin,
	}
}

func routerConfigFrom(cfg *config.Config) api.RouterConfig {
	return api.RouterConfig{
		RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		MetricsHandler: promhttp.Handler(),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	if err := run(cfg, log); err != nil {
		log.Error("scoring service stopped with error", map[string]interface{}{"error": err})
		zapLog.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	log.Info("starting scoring service", map[string]interface{}{
		"environment": cfg.App.Environment,
		"modelSource": cfg.Model.Source,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("observability init: %w", err)
	}
	defer obs.Shutdown()

	var ready atomic.Bool

	// --- Model backing stores ---
	var deps model.Dependencies

	if cfg.Model.Source == config.ModelSourceRedis {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return pingOrClose(ctx, redis)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			return err
		}
		defer redis.Close()
		deps.Redis = redis
		log.Info("Redis connected successfully", nil)
	}

	if cfg.Model.Source == config.ModelSourcePostgres {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pingOrClose(ctx, pg)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			return err
		}
		defer pg.Close()
		deps.Postgres = pg
		log.Info("PostgreSQL connected successfully", nil)
	}

	// --- Model & pipeline ---
	loaded, err := model.Load(ctx, cfg.Model, deps, log)
	if err != nil {
		return err
	}

	pipe, err := pipeline.New(loaded.Scorer, thresholdsFrom(cfg.Scoring),
		pipeline.WithObserver(obs),
		pipeline.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("pipeline init: %w", err)
	}

	// --- Zeebe worker ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		wcfg := pcs.ConfigFromApp(cfg)
		if wcfg.Enabled {
			zeebe, err = camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			if err != nil {
				return err
			}
			defer zeebe.Close()
			log.Info("Zeebe client connected successfully", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

			handler, err := pcs.NewHandler(wcfg, pipe, log)
			if err != nil {
				return err
			}
			w, err := camunda.StartWorker(zeebe.GetClient(), camunda.WorkerOptions{
				TaskType:      pcs.TaskType,
				MaxJobsActive: wcfg.MaxJobsActive,
				Timeout:       wcfg.Timeout,
			}, handler.Handle, log)
			if err != nil {
				return err
			}
			defer w.Close()
		} else {
			log.Info("worker disabled", map[string]interface{}{"taskType": pcs.TaskType})
		}
	}

	// --- HTTP surface ---
	handler := api.NewHandler(pipe, loaded.Info, func() bool {
		if !ready.Load() {
			return false
		}
		if zeebe != nil {
			return zeebe.HealthCheck(context.Background()) == nil
		}
		return true
	}, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(handler, routerConfigFrom(cfg), log),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ready.Store(true)
	log.Info("scoring service ready", map[string]interface{}{
		"model":   loaded.Info.Name,
		"version": loaded.Info.Version,
		"kind":    loaded.Info.Kind,
	})

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, draining requests...", nil)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownWait))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	log.Info("scoring service stopped gracefully", nil)
	return nil
}
