// cmd/server runs the forex analytics backend: the rate refresher, the
// REST + WebSocket gateway, and the metrics/health server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fxdesk/config"
	"fxdesk/internal/analysis"
	"fxdesk/internal/gateway"
	"fxdesk/internal/logger"
	"fxdesk/internal/metrics"
	"fxdesk/internal/model"
	"fxdesk/internal/notification"
	"fxdesk/internal/rates"
	redisstore "fxdesk/internal/store/redis"
	sqlitestore "fxdesk/internal/store/sqlite"

	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	godotenv.Load()

	cfg := config.Load()
	logger.Init("fxdesk-server", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	store, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("sqlite open failed", "path", cfg.SQLitePath, "err", err)
		os.Exit(1)
	}
	defer store.Close()
	health.CheckSQLite(ctx, store.DB())

	// Redis is optional: without it the API serves from sqlite only.
	var (
		cache       *redisstore.Cache
		cacheWriter rates.CacheWriter
		redisClient *goredis.Client
	)
	if c, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}); err != nil {
		slog.Warn("redis unavailable, serving without live cache", "err", err)
	} else {
		cache = c
		redisClient = c.Client()
		defer cache.Close()

		cb := redisstore.NewCircuitBreaker(5, 10*time.Second)
		cacheWriter = redisstore.NewBufferedCache(ctx, cache, cb)
	}

	hub := gateway.NewHub(m)
	provider := rates.NewHistoryProvider(store)
	svc := analysis.New(provider, m)

	notifier := buildNotifier(cfg)
	pairs := cfg.ParsePairs()
	policy := model.RiskPolicy{MinConfidence: cfg.AutoTradeMinConfidence}

	refresher := rates.NewRefresher(rates.RefresherConfig{
		Fetcher:   rates.NewClient(cfg.ForexAPIKey, cfg.ForexAPIBase),
		Pairs:     pairs,
		Schedule:  cfg.RefreshSchedule,
		History:   store,
		Cache:     cacheWriter,
		Broadcast: hub,
		Metrics:   m,
		OnCycle: func(cycle []model.Rate) {
			alertOnSignals(ctx, svc, notifier, policy, cycle)
			health.SetLastRateTime(time.Now())
		},
	})
	if err := refresher.Start(); err != nil {
		slog.Error("refresher start failed", "err", err)
		os.Exit(1)
	}
	defer refresher.Stop()
	health.SetFeedRunning(true)

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()
	health.StartLivenessChecker(ctx, redisClient, store.DB(), 15*time.Second)

	mux := http.NewServeMux()
	deps := gateway.Deps{
		Service:   svc,
		History:   provider,
		Hub:       hub,
		Refresher: refresher,
		Metrics:   m,
		Pairs:     pairs,
		Start:     time.Now(),
	}
	if cache != nil {
		deps.Cache = cache
	}
	gateway.RegisterRoutes(mux, deps)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "err", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	cancel()
	refresher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
}

// buildNotifier assembles the alert fan-out from configured backends.
// Always logs; webhook and Telegram join when configured.
func buildNotifier(cfg *config.Config) notification.Notifier {
	fan := notification.Fanout{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		fan = append(fan, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		fan = append(fan, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	return fan
}

// alertOnSignals re-analyzes each refreshed pair and notifies when the
// auto-trade policy approves the current signal.
func alertOnSignals(ctx context.Context, svc *analysis.Service, notifier notification.Notifier, policy model.RiskPolicy, cycle []model.Rate) {
	for _, rate := range cycle {
		rec, err := svc.EvaluateAutoTrade(ctx, rate.Pair, policy, analysis.Options{})
		if err != nil {
			// Thin history right after startup is normal; skip quietly.
			continue
		}
		if !rec.ShouldTrade {
			continue
		}
		if err := notifier.Send(ctx, notification.FromRecommendation(rate.Pair, *rec)); err != nil {
			slog.Warn("alert delivery failed", "pair", rate.Pair, "err", err)
		}
	}
}
