// Package main запускает обработчик событий каталога, который публикует автомобили в канале бота.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/car-rental/internal/config"
	"github.com/mmeshcher/car-rental/internal/events"
	"github.com/mmeshcher/car-rental/internal/metrics"
	"github.com/mmeshcher/car-rental/internal/notify"
	"github.com/mmeshcher/car-rental/internal/repository"
	"github.com/mmeshcher/car-rental/internal/telegram"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if len(cfg.KafkaBrokers) == 0 || cfg.BotToken == "" || cfg.ChannelID == "" {
		sugar.Fatal("worker requires KAFKA_BROKERS, BOT_TOKEN and CHANNEL_ID")
	}

	m := metrics.Registry(cfg.MetricsNamespace)

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	// Бот используется только для отправки, обновления получает основной сервис.
	channel, err := telegram.New(telegram.Config{
		Token:     cfg.BotToken,
		Username:  cfg.BotUsername,
		ChannelID: cfg.ChannelID,
	}, nil, repo, logger, m)
	if err != nil {
		sugar.Fatalw("telegram bot initialization error", "error", err.Error())
	}

	notifier := notify.NewCarNotifier(channel, repo, logger, m, channel.DeepLink)

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaCarTopic, logger)
	defer consumer.Close()

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting car event consumer", "topic", cfg.KafkaCarTopic, "group", cfg.KafkaGroupID)
		return consumer.Consume(ctx, func(ctx context.Context, ev events.CarSaved) {
			notifier.CarSaved(ctx, ev.Car, ev.Created)
		})
	})

	g.Go(func() error {
		sugar.Infow("starting metrics server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down worker...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("worker terminated with error", "error", err)
	}
}
