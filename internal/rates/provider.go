// Package rates supplies forex price data: an exchange-rate API client,
// cross-rate derivation, a sqlite-backed history provider, and a periodic
// refresher that keeps the store and live cache current.
package rates

import (
	"context"
	"sort"
	"time"

	"fxdesk/internal/model"
)

// Span selects how much history a provider should return. Days limits by
// calendar time back from the newest point; Points caps to the most recent N.
// Both zero means the full series. When both are set, Days applies first.
type Span struct {
	Days   int
	Points int
}

// Provider returns the close-price series for a currency pair, oldest first.
// Pairs with no data at all yield model.ErrDataUnavailable; a series shorter
// than requested is returned as-is.
type Provider interface {
	GetPriceSeries(ctx context.Context, pair string, span Span) ([]model.PricePoint, error)
}

// Trim applies a span to an ascending series. The result is a copy; callers
// may mutate it freely.
func Trim(series []model.PricePoint, span Span) []model.PricePoint {
	out := series
	if span.Days > 0 && len(out) > 0 {
		cutoff := out[len(out)-1].Timestamp.AddDate(0, 0, -span.Days)
		i := sort.Search(len(out), func(i int) bool {
			return !out[i].Timestamp.Before(cutoff)
		})
		out = out[i:]
	}
	if span.Points > 0 && len(out) > span.Points {
		out = out[len(out)-span.Points:]
	}
	cp := make([]model.PricePoint, len(out))
	copy(cp, out)
	return cp
}

// Static serves fixed series keyed by pair. Used for offline backtests and
// in tests.
type Static struct {
	series map[string][]model.PricePoint
}

// NewStatic builds a fixture provider. Each series is sorted ascending once
// at construction.
func NewStatic(series map[string][]model.PricePoint) *Static {
	for pair, s := range series {
		sorted := make([]model.PricePoint, len(s))
		copy(sorted, s)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		})
		series[pair] = sorted
	}
	return &Static{series: series}
}

func (s *Static) GetPriceSeries(_ context.Context, pair string, span Span) ([]model.PricePoint, error) {
	series, ok := s.series[pair]
	if !ok {
		return nil, model.ErrDataUnavailable
	}
	return Trim(series, span), nil
}

// HistoryProvider serves series from the sqlite rate history.
type HistoryProvider struct {
	store SeriesReader
	now   func() time.Time
}

// SeriesReader is the slice of the sqlite store the provider needs.
type SeriesReader interface {
	ReadSeries(pair string, after time.Time) ([]model.PricePoint, error)
	ReadRecent(pair string, n int) ([]model.PricePoint, error)
}

// NewHistoryProvider builds a provider over the rate history store.
func NewHistoryProvider(store SeriesReader) *HistoryProvider {
	return &HistoryProvider{store: store, now: time.Now}
}

func (h *HistoryProvider) GetPriceSeries(_ context.Context, pair string, span Span) ([]model.PricePoint, error) {
	var (
		series []model.PricePoint
		err    error
	)
	switch {
	case span.Days > 0:
		after := h.now().UTC().AddDate(0, 0, -span.Days)
		series, err = h.store.ReadSeries(pair, after)
	case span.Points > 0:
		series, err = h.store.ReadRecent(pair, span.Points)
	default:
		series, err = h.store.ReadSeries(pair, time.Time{})
	}
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, model.ErrDataUnavailable
	}
	if span.Points > 0 && len(series) > span.Points {
		series = series[len(series)-span.Points:]
	}
	return series, nil
}
