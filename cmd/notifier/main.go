package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/internal/config"
	"github.com/monthlyclub/monthly-club/internal/notification"
	"github.com/monthlyclub/monthly-club/pkg/database"
	"github.com/monthlyclub/monthly-club/pkg/messaging"
	"github.com/monthlyclub/monthly-club/pkg/observability"
	"github.com/monthlyclub/monthly-club/pkg/secrets"
)

const serviceName = "notifier"

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "notifier: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(observability.LoggerConfig{
		Service:     serviceName,
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
		Environment:    cfg.Environment,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := notification.NewMetrics(registry)

	delivery, err := buildSender(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := []notification.Option{
		notification.WithLogger(logger),
		notification.WithMetrics(metrics),
		notification.WithRetryPolicy(retryPolicy(cfg, logger)),
	}
	checks := map[string]healthCheck{}

	if cfg.DatabaseDSN != "" {
		db, err := database.Connect(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(db, notification.Migrations, "migrations", logger); err != nil {
			return err
		}
		opts = append(opts, notification.WithDeliveryLog(notification.NewRepository(db)))
		checks["postgres"] = db.PingContext
	}

	var workers sync.WaitGroup
	sender := delivery

	if cfg.Queue.Enabled {
		rabbit, err := messaging.NewRabbitMQClient(messaging.Config{
			URL:                   cfg.Queue.RabbitMQURL,
			CircuitBreakerEnabled: true,
			Logger:                logger,
		})
		if err != nil {
			return err
		}
		defer rabbit.Close()
		if _, err := rabbit.DeclareQueueWithDLQ(notification.EmailQueue); err != nil {
			return fmt.Errorf("declare email queue: %w", err)
		}

		rdb := redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		checks["rabbitmq"] = func(context.Context) error {
			if !rabbit.IsHealthy() {
				return errors.New("connection unavailable")
			}
			return nil
		}

		worker := notification.NewWorker(delivery, rdb, rabbit, logger, metrics)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := rabbit.Consume(ctx, notification.EmailQueue, worker.ProcessTask); err != nil {
				logger.Error("email worker stopped", zap.Error(err))
			}
		}()

		sender = notification.NewQueueSender(rabbit)
	}

	svc := notification.NewService(sender, notification.Config{
		FromEmail:  cfg.Email.FromEmail,
		OwnerEmail: cfg.Email.OwnerEmail,
		AppURL:     cfg.Email.AppURL,
		RedirectTo: cfg.Email.RedirectTo,
	}, opts...)
	if cfg.Email.RedirectTo != "" {
		logger.Warn("all email is redirected", zap.String("redirect_to", cfg.Email.RedirectTo))
	}

	if cfg.KafkaEnabled() {
		consumer := messaging.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger,
			messaging.WithHandlerBackOff(eventBackOff(cfg.Kafka.HandlerRetry)))
		defer consumer.Close()

		router := notification.NewRouter(svc, logger)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := consumer.Consume(ctx, router.Handle); err != nil {
				logger.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(svc, registry, checks, logger).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("notifier listening",
			zap.String("addr", srv.Addr),
			zap.String("sender", sender.Name()),
			zap.Bool("queue", cfg.Queue.Enabled),
			zap.Bool("events", cfg.KafkaEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	stop()
	workers.Wait()
	return nil
}

// buildSender returns the sender that talks to the outside world, chosen by
// EMAIL_PROVIDER.
func buildSender(ctx context.Context, cfg config.Config, logger *zap.Logger) (notification.Sender, error) {
	registry := notification.NewSenderRegistry()
	registry.Register(notification.NewLogSender(logger))

	switch cfg.Email.Provider {
	case config.ProviderDev:
		dev, err := notification.NewDevSender(cfg.Email.DevDir)
		if err != nil {
			return nil, err
		}
		registry.Register(dev)
	case config.ProviderResend:
		apiKey, err := resendAPIKey(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		resendSender, err := notification.NewResendSender(apiKey)
		if err != nil {
			return nil, err
		}
		registry.Register(resendSender)
	}

	return registry.Get(cfg.Email.Provider)
}

func resendAPIKey(ctx context.Context, cfg config.Config, logger *zap.Logger) (string, error) {
	var manager *secrets.Manager
	if cfg.Email.ResendKeyARN != "" {
		m, err := secrets.NewManager(ctx, logger)
		if err != nil {
			logger.Warn("secrets manager unavailable", zap.Error(err))
		} else {
			manager = m
		}
	}
	return manager.GetSecretString(ctx, cfg.Email.ResendKeyARN, cfg.Email.ResendAPIKey)
}

func retryPolicy(cfg config.Config, logger *zap.Logger) notification.RetryPolicy {
	if cfg.Email.RetryAttempts == 0 {
		return notification.NoRetry{}
	}
	attempts := cfg.Email.RetryAttempts
	return notification.BackoffRetry{
		NewBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), attempts)
		},
		Notify: func(err error, attempt int) {
			logger.Warn("email send failed, retrying", zap.Error(err), zap.Int("attempt", attempt))
		},
	}
}

// eventBackOff bounds how long a failing business event is redelivered to the
// router. The facade's own RetryPolicy runs inside each delivery.
func eventBackOff(maxElapsed time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		if maxElapsed <= 0 {
			return &backoff.StopBackOff{}
		}
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = maxElapsed
		return b
	}
}
