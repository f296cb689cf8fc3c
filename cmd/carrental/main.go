// Package main запускает HTTP-сервер и Telegram-бота сервиса аренды автомобилей.
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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/car-rental/internal/cache"
	"github.com/mmeshcher/car-rental/internal/config"
	"github.com/mmeshcher/car-rental/internal/events"
	"github.com/mmeshcher/car-rental/internal/handler"
	"github.com/mmeshcher/car-rental/internal/metrics"
	"github.com/mmeshcher/car-rental/internal/middleware"
	"github.com/mmeshcher/car-rental/internal/notify"
	"github.com/mmeshcher/car-rental/internal/repository"
	"github.com/mmeshcher/car-rental/internal/service"
	"github.com/mmeshcher/car-rental/internal/session"
	"github.com/mmeshcher/car-rental/internal/telegram"
	"github.com/mmeshcher/car-rental/internal/wizard"
)

const (
	notifyTimeout  = 30 * time.Second
	sweepInterval  = 10 * time.Minute
	badgerGCPeriod = 5 * time.Minute
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	m := metrics.Registry(cfg.MetricsNamespace)

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var codes service.Cache
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, logger)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		codes = rc
	} else {
		mc := cache.NewMemory()
		defer mc.Close()
		codes = mc
	}

	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		sugar.Fatalw("session store initialization error", "error", err.Error())
	}
	defer sessions.Close()

	var (
		rentBot    *telegram.Bot
		dispatcher *notify.Dispatcher
		hooks      []service.CarHook
	)
	if cfg.BotToken != "" {
		w := wizard.New(sessions, sessions, repo, m, wizard.Config{Currency: cfg.PaymentCurrency})
		rentBot, err = telegram.New(telegram.Config{
			Token:         cfg.BotToken,
			Username:      cfg.BotUsername,
			ChannelID:     cfg.ChannelID,
			ProviderToken: cfg.PaymentProviderToken,
		}, w, repo, logger, m)
		if err != nil {
			sugar.Fatalw("telegram bot initialization error", "error", err.Error())
		}
	}

	switch {
	case len(cfg.KafkaBrokers) > 0:
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaCarTopic, logger)
		defer producer.Close()
		hooks = append(hooks, producer.CarSaved)
	case rentBot != nil && cfg.ChannelID != "":
		notifier := notify.NewCarNotifier(rentBot, repo, logger, m, rentBot.DeepLink)
		dispatcher = notify.NewDispatcher(notifier.CarSaved, notifyTimeout)
		hooks = append(hooks, dispatcher.CarSaved)
	}

	svc := handler.Services{
		Accounts: service.NewAccounts(repo, codes, service.LogCodeSender{Logger: logger}, cfg.VerifyCodeTTL),
		Catalog:  service.NewCatalog(repo, hooks...),
		Rentals:  service.NewRentals(repo),
		Stats:    service.NewStats(repo),
		Health:   repo,
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter(m)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	if rentBot != nil {
		g.Go(func() error {
			sugar.Infow("starting telegram bot", "username", cfg.BotUsername)
			rentBot.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		sugar.Infow("starting car rental server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		if dispatcher != nil {
			dispatcher.Wait()
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// openSessions открывает хранилище сессий бота, выбранное в конфигурации.
func openSessions(ctx context.Context, cfg *config.Config) (session.Backend, error) {
	switch cfg.SessionBackend {
	case config.SessionRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return &redisSessions{RedisStore: session.NewRedisStore(client, cfg.SessionTTL), client: client}, nil
	case config.SessionBadger:
		db, err := session.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		store := session.NewBadgerStore(db, cfg.SessionTTL)
		store.StartGC(ctx, badgerGCPeriod)
		return store, nil
	default:
		store := session.NewMemoryStore(cfg.SessionTTL)
		store.StartSweeper(ctx, sweepInterval)
		return store, nil
	}
}

// redisSessions закрывает собственный клиент Redis вместе с хранилищем.
type redisSessions struct {
	*session.RedisStore
	client *redis.Client
}

func (s *redisSessions) Close() error {
	return s.client.Close()
}
