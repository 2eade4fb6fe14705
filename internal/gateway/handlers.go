package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fxdesk/internal/analysis"
	"fxdesk/internal/logger"
	"fxdesk/internal/marketsession"
	"fxdesk/internal/metrics"
	"fxdesk/internal/model"
	"fxdesk/internal/rates"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// defaultMinConfidence applies when an auto-trade request omits the policy
// threshold.
const defaultMinConfidence = 60

// Deps wires the handlers' collaborators. Cache and Metrics may be nil;
// Refresher may be nil when running without the live feed.
type Deps struct {
	Service   *analysis.Service
	History   rates.Provider
	Hub       *Hub
	Cache     RateCache
	Refresher StatusReporter
	Metrics   *metrics.Metrics
	Pairs     []string
	Start     time.Time
}

// RateCache is the read surface of the redis cache.
type RateCache interface {
	Latest(ctx context.Context, pair string) (model.Rate, bool, error)
	All(ctx context.Context, pairs []string) ([]model.Rate, error)
}

// StatusReporter exposes the refresher's status snapshot.
type StatusReporter interface {
	Status() rates.Status
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("ws upgrade failed", "err", err)
			return
		}
		lastSeq, _ := strconv.ParseInt(r.URL.Query().Get("last_seq"), 10, 64)
		d.Hub.Register(conn, lastSeq)
	})

	mux.HandleFunc("/api/analyze/", d.handleAnalyze)
	mux.HandleFunc("/api/backtest/", d.handleBacktest)
	mux.HandleFunc("/api/autotrade/", d.handleAutoTrade)
	mux.HandleFunc("/api/rates/latest/", d.handleLatestRate)
	mux.HandleFunc("/api/rates/all", d.handleAllRates)
	mux.HandleFunc("/api/rates/history/", d.handleRateHistory)
	mux.HandleFunc("/api/rates/status", d.handleStatus)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"ws_clients":  d.Hub.ClientCount(),
			"market_open": marketsession.IsMarketOpen(time.Now()),
			"uptime_sec":  int64(time.Since(d.Start).Seconds()),
			"ts":          time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

func (d Deps) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	pair, ok := d.pairFromPath(w, r, "/api/analyze/", "analyze")
	if !ok {
		return
	}

	ctx := logger.WithRequestID(r.Context(), logger.GenerateRequestID(pair, time.Now()))
	res, err := d.Service.Analyze(ctx, pair, analysis.Options{
		Days:      qInt(r, "days"),
		Period:    qInt(r, "period"),
		NumStdDev: qFloat(r, "stddev"),
	})
	if err != nil {
		d.writeErr(w, "analyze", err)
		return
	}
	d.writeJSON(w, "analyze", res)
}

func (d Deps) handleBacktest(w http.ResponseWriter, r *http.Request) {
	pair, ok := d.pairFromPath(w, r, "/api/backtest/", "backtest")
	if !ok {
		return
	}

	ctx := logger.WithRequestID(r.Context(), logger.GenerateRequestID(pair, time.Now()))
	report, err := d.Service.Backtest(ctx, pair, analysis.BacktestOptions{
		Days:                 qInt(r, "days"),
		InitialBalance:       qFloat(r, "balance"),
		Period:               qInt(r, "period"),
		NumStdDev:            qFloat(r, "stddev"),
		MinStrength:          qInt(r, "min_strength"),
		PositionSizeFraction: qFloat(r, "fraction"),
	})
	if err != nil {
		d.writeErr(w, "backtest", err)
		return
	}
	d.writeJSON(w, "backtest", report)
}

func (d Deps) handleAutoTrade(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		d.apiStatus("autotrade", http.StatusMethodNotAllowed)
		http.Error(w, `{"error":"POST required"}`, http.StatusMethodNotAllowed)
		return
	}

	pair, ok := d.pairFromPath(w, r, "/api/autotrade/", "autotrade")
	if !ok {
		return
	}

	var body struct {
		MaxRisk       float64 `json:"max_risk"`
		MinConfidence int     `json:"min_confidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		d.apiStatus("autotrade", http.StatusBadRequest)
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if body.MinConfidence <= 0 {
		body.MinConfidence = defaultMinConfidence
	}

	ctx := logger.WithRequestID(r.Context(), logger.GenerateRequestID(pair, time.Now()))
	rec, err := d.Service.EvaluateAutoTrade(ctx, pair,
		model.RiskPolicy{MaxRisk: body.MaxRisk, MinConfidence: body.MinConfidence},
		analysis.Options{Days: qInt(r, "days")})
	if err != nil {
		d.writeErr(w, "autotrade", err)
		return
	}
	d.writeJSON(w, "autotrade", rec)
}

func (d Deps) handleLatestRate(w http.ResponseWriter, r *http.Request) {
	pair, ok := d.pairFromPath(w, r, "/api/rates/latest/", "rates_latest")
	if !ok {
		return
	}

	if d.Cache != nil {
		rate, found, err := d.Cache.Latest(r.Context(), pair)
		if err == nil && found {
			if d.Metrics != nil {
				d.Metrics.CacheHits.Inc()
			}
			d.writeJSON(w, "rates_latest", rate)
			return
		}
		if d.Metrics != nil {
			d.Metrics.CacheMisses.Inc()
		}
	}

	// Cache miss: fall back to the hub's last broadcast.
	for _, rate := range d.Hub.Snapshot() {
		if rate.Pair == pair {
			d.writeJSON(w, "rates_latest", rate)
			return
		}
	}
	d.writeErr(w, "rates_latest", model.ErrDataUnavailable)
}

func (d Deps) handleAllRates(w http.ResponseWriter, r *http.Request) {
	var all []model.Rate
	if d.Cache != nil {
		if cached, err := d.Cache.All(r.Context(), d.Pairs); err == nil && len(cached) > 0 {
			all = cached
		}
	}
	if all == nil {
		all = d.Hub.Snapshot()
	}

	if base := strings.ToUpper(r.URL.Query().Get("base")); base != "" {
		filtered := all[:0]
		for _, rate := range all {
			if strings.HasPrefix(rate.Pair, base+"/") {
				filtered = append(filtered, rate)
			}
		}
		all = filtered
	}

	d.writeJSON(w, "rates_all", map[string]interface{}{
		"count": len(all),
		"rates": all,
		"ts":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (d Deps) handleRateHistory(w http.ResponseWriter, r *http.Request) {
	pair, ok := d.pairFromPath(w, r, "/api/rates/history/", "rates_history")
	if !ok {
		return
	}

	days := qInt(r, "days")
	if days <= 0 {
		days = analysis.DefaultDays
	}
	series, err := d.History.GetPriceSeries(r.Context(), pair, rates.Span{Days: days})
	if err != nil {
		d.writeErr(w, "rates_history", err)
		return
	}
	d.writeJSON(w, "rates_history", map[string]interface{}{
		"pair":   pair,
		"days":   days,
		"points": series,
	})
}

func (d Deps) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	payload := map[string]interface{}{
		"market_open":   marketsession.IsMarketOpen(now),
		"market_status": marketsession.StatusString(now),
		"ws_clients":    d.Hub.ClientCount(),
	}
	if d.Refresher != nil {
		payload["refresher"] = d.Refresher.Status()
	}
	d.writeJSON(w, "rates_status", payload)
}

// pairFromPath extracts and validates "{BASE}/{QUOTE}" from the URL path.
func (d Deps) pairFromPath(w http.ResponseWriter, r *http.Request, prefix, endpoint string) (string, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 {
		d.apiStatus(endpoint, http.StatusBadRequest)
		SetCORS(w)
		http.Error(w, `{"error":"expected /{base}/{quote}"}`, http.StatusBadRequest)
		return "", false
	}

	pair := model.PairSymbol(parts[0], parts[1])
	if _, _, err := model.SplitPair(pair); err != nil {
		d.apiStatus(endpoint, http.StatusBadRequest)
		SetCORS(w)
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return "", false
	}
	return pair, true
}

func (d Deps) writeJSON(w http.ResponseWriter, endpoint string, v interface{}) {
	d.apiStatus(endpoint, http.StatusOK)
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (d Deps) writeErr(w http.ResponseWriter, endpoint string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrDataUnavailable):
		code = http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientData):
		code = http.StatusUnprocessableEntity
	}
	d.apiStatus(endpoint, code)

	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (d Deps) apiStatus(endpoint string, code int) {
	if d.Metrics != nil {
		d.Metrics.APIRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	}
}

func qInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func qFloat(r *http.Request, key string) float64 {
	f, _ := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	return f
}
