// Package metrics exposes Prometheus instrumentation and a combined
// /metrics + /healthz server for the forex analytics service.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Rate feed
	RatesFetched  prometheus.Counter
	FetchErrors   prometheus.Counter
	FetchDur      prometheus.Histogram
	PairsSkipped  prometheus.Counter
	RefreshCycles prometheus.Counter

	// Analytics API
	APIRequests *prometheus.CounterVec // labels: endpoint, status
	AnalyzeDur  prometheus.Histogram
	BacktestDur prometheus.Histogram

	// Live stream
	WSClients    prometheus.Gauge
	WSBroadcasts prometheus.Counter

	// Live rate cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RatesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxdesk_rates_fetched_total",
			Help: "Total rates fetched from the exchange-rate API",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxdesk_rates_fetch_errors_total",
			Help: "Total failed refresh cycles against the exchange-rate API",
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxdesk_rates_fetch_duration_seconds",
			Help:    "Exchange-rate API refresh cycle latency",
			Buckets: prometheus.DefBuckets,
		}),
		PairsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxdesk_rates_pairs_skipped_total",
			Help: "Tracked pairs skipped because no rate could be derived",
		}),
		RefreshCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxdesk_rates_refresh_cycles_total",
			Help: "Total refresh cycles attempted",
		}),

		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxdesk_api_requests_total",
			Help: "API requests by endpoint and status code",
		}, []string{"endpoint", "status"}),
		AnalyzeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxdesk_analyze_duration_seconds",
			Help:    "Bollinger analysis latency per request",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxdesk_backtest_duration_seconds",
			Help:    "Backtest simulation latency per request",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxdesk_ws_clients",
			Help: "Currently connected WebSocket clients",
		}),
		WSBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxdesk_ws_broadcasts_total",
			Help: "Rate envelopes broadcast to WebSocket clients",
		}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxdesk_rate_cache_hits_total",
			Help: "Live rate cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxdesk_rate_cache_misses_total",
			Help: "Live rate cache misses (fell through to the API)",
		}),
	}

	prometheus.MustRegister(
		m.RatesFetched, m.FetchErrors, m.FetchDur, m.PairsSkipped, m.RefreshCycles,
		m.APIRequests, m.AnalyzeDur, m.BacktestDur,
		m.WSClients, m.WSBroadcasts,
		m.CacheHits, m.CacheMisses,
	)
	return m
}

// HealthStatus tracks dependency health for the /healthz endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt       time.Time
	RedisConnected  bool
	RedisLatencyMs  float64
	SQLiteOK        bool
	SQLiteLatencyMs float64
	FeedRunning     bool
	LastRateTime    time.Time
	LastCheckAt     time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetFeedRunning(v bool) {
	h.mu.Lock()
	h.FeedRunning = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastRateTime(t time.Time) {
	h.mu.Lock()
	h.LastRateTime = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	} else if !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
	}

	rateAge := ""
	if !h.LastRateTime.IsZero() {
		rateAge = time.Since(h.LastRateTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		FeedRunning     bool    `json:"feed_running"`
		LastRateTime    string  `json:"last_rate_time"`
		RateAge         string  `json:"rate_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		FeedRunning:     h.FeedRunning,
		LastRateTime:    h.LastRateTime.Format(time.RFC3339),
		RateAge:         rateAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
