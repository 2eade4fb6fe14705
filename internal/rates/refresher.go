package rates

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fxdesk/internal/marketsession"
	"fxdesk/internal/metrics"
	"fxdesk/internal/model"

	"github.com/robfig/cron/v3"
)

// maxConsecutiveErrors halts the refresher: an API key that has gone bad or
// a hard outage should not burn quota forever.
const maxConsecutiveErrors = 5

// HistoryWriter persists a refresh cycle.
type HistoryWriter interface {
	UpsertRates(rates []model.Rate) error
}

// CacheWriter stores the live rates. Satisfied by redis.BufferedCache.
type CacheWriter interface {
	WriteRates(rates []model.Rate) error
}

// Broadcaster pushes a refresh cycle to connected WebSocket clients.
type Broadcaster interface {
	BroadcastRates(rates []model.Rate)
}

// RefresherConfig wires the refresher's collaborators. Cache, Broadcast,
// Metrics and OnCycle are optional.
type RefresherConfig struct {
	Fetcher   TableFetcher
	Pairs     []string // tracked pairs, "EUR/USD" form
	Schedule  string   // cron spec, e.g. "@every 1m"
	History   HistoryWriter
	Cache     CacheWriter
	Broadcast Broadcaster
	Metrics   *metrics.Metrics
	Now       func() time.Time // injected clock; defaults to time.Now

	// OnCycle runs after each successful cycle with the derived rates.
	// The server hooks auto-trade alerting here.
	OnCycle func(rates []model.Rate)
}

// Status is a point-in-time snapshot of the refresher.
type Status struct {
	Running           bool      `json:"running"`
	MarketOpen        bool      `json:"market_open"`
	LastUpdate        time.Time `json:"last_update"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	TrackedPairs      []string  `json:"tracked_pairs"`
}

// Refresher periodically fetches conversion tables, derives the tracked
// pairs, and fans the rates out to the history store, live cache, and
// WebSocket hub. It stops itself after maxConsecutiveErrors failed cycles.
type Refresher struct {
	cfg  RefresherConfig
	cron *cron.Cron

	mu          sync.Mutex
	running     bool
	entryID     cron.EntryID
	lastUpdate  time.Time
	consecutive int
}

// NewRefresher builds a refresher. The schedule is validated on Start.
func NewRefresher(cfg RefresherConfig) *Refresher {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Refresher{
		cfg:  cfg,
		cron: cron.New(),
	}
}

// Start schedules refresh cycles and runs one immediately. Idempotent.
func (r *Refresher) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}

	id, err := r.cron.AddFunc(r.cfg.Schedule, func() { r.RunCycle(context.Background()) })
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.entryID = id
	r.running = true
	r.mu.Unlock()

	r.cron.Start()
	slog.Info("rate refresher started",
		"schedule", r.cfg.Schedule, "pairs", len(r.cfg.Pairs))

	// Prime the cache without waiting for the first tick.
	go r.RunCycle(context.Background())
	return nil
}

// Stop cancels the schedule. In-flight cycles finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	id := r.entryID
	r.mu.Unlock()

	r.cron.Remove(id)
	r.cron.Stop()
	slog.Info("rate refresher stopped")
}

// Status reports the current refresher state.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Running:           r.running,
		MarketOpen:        marketsession.IsMarketOpen(r.cfg.Now()),
		LastUpdate:        r.lastUpdate,
		ConsecutiveErrors: r.consecutive,
		TrackedPairs:      r.cfg.Pairs,
	}
}

// RunCycle performs one fetch-derive-store pass. Exported for the immediate
// fetch on startup and for tests; the cron schedule calls it on each tick.
func (r *Refresher) RunCycle(ctx context.Context) {
	now := r.cfg.Now()
	if !marketsession.IsMarketOpen(now) {
		slog.Debug("skipping refresh, market closed",
			"next_open", marketsession.NextOpen(now))
		return
	}

	if m := r.cfg.Metrics; m != nil {
		m.RefreshCycles.Inc()
	}

	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	tables, err := FetchTables(fetchCtx, r.cfg.Fetcher, now)
	cancel()
	if err != nil {
		r.recordFailure(err)
		return
	}
	if m := r.cfg.Metrics; m != nil {
		m.FetchDur.Observe(time.Since(start).Seconds())
	}

	rates := r.derive(tables, now)
	if len(rates) == 0 {
		r.recordFailure(model.ErrDataUnavailable)
		return
	}

	if err := r.cfg.History.UpsertRates(rates); err != nil {
		slog.Error("rate history write failed", "err", err)
	}
	if r.cfg.Cache != nil {
		if err := r.cfg.Cache.WriteRates(rates); err != nil {
			slog.Warn("rate cache write failed", "err", err)
		}
	}
	if r.cfg.Broadcast != nil {
		r.cfg.Broadcast.BroadcastRates(rates)
	}

	r.mu.Lock()
	r.consecutive = 0
	r.lastUpdate = now
	r.mu.Unlock()

	if m := r.cfg.Metrics; m != nil {
		m.RatesFetched.Add(float64(len(rates)))
	}
	slog.Info("rates refreshed", "pairs", len(rates), "took", time.Since(start))

	if r.cfg.OnCycle != nil {
		r.cfg.OnCycle(rates)
	}
}

func (r *Refresher) derive(tables Tables, now time.Time) []model.Rate {
	rates := make([]model.Rate, 0, len(r.cfg.Pairs))
	for _, pair := range r.cfg.Pairs {
		base, quote, err := model.SplitPair(pair)
		if err != nil {
			slog.Warn("dropping malformed tracked pair", "pair", pair, "err", err)
			continue
		}
		mid, err := DeriveRate(tables, base, quote)
		if err != nil {
			slog.Warn("pair not derivable this cycle", "pair", pair, "err", err)
			if m := r.cfg.Metrics; m != nil {
				m.PairsSkipped.Inc()
			}
			continue
		}
		rates = append(rates, Quote(base, quote, mid, now, "exchangerate-api"))
	}
	return rates
}

func (r *Refresher) recordFailure(err error) {
	if m := r.cfg.Metrics; m != nil {
		m.FetchErrors.Inc()
	}

	r.mu.Lock()
	r.consecutive++
	n := r.consecutive
	r.mu.Unlock()

	slog.Error("refresh cycle failed", "err", err, "consecutive", n)
	if n >= maxConsecutiveErrors {
		slog.Error("halting refresher after repeated failures", "failures", n)
		r.Stop()
	}
}
