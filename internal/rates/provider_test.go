package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"fxdesk/internal/model"
)

func dailySeries(start time.Time, closes ...float64) []model.PricePoint {
	series := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		series[i] = model.PricePoint{Timestamp: start.AddDate(0, 0, i), Close: c}
	}
	return series
}

func TestStatic_UnknownPair(t *testing.T) {
	p := NewStatic(map[string][]model.PricePoint{})
	_, err := p.GetPriceSeries(context.Background(), "XXX/YYY", Span{})
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestStatic_SortsFixture(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	p := NewStatic(map[string][]model.PricePoint{
		"EUR/USD": {
			{Timestamp: base.AddDate(0, 0, 2), Close: 3},
			{Timestamp: base, Close: 1},
			{Timestamp: base.AddDate(0, 0, 1), Close: 2},
		},
	})
	series, err := p.GetPriceSeries(context.Background(), "EUR/USD", Span{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Timestamp.After(series[i-1].Timestamp) {
			t.Fatalf("series not ascending at %d", i)
		}
	}
}

func TestTrim_Days(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	series := dailySeries(base, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	got := Trim(series, Span{Days: 3})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Close != 8 || got[2].Close != 10 {
		t.Errorf("wrong window: %+v", got)
	}
}

func TestTrim_Points(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	series := dailySeries(base, 1, 2, 3, 4, 5)

	got := Trim(series, Span{Points: 2})
	if len(got) != 2 || got[0].Close != 4 || got[1].Close != 5 {
		t.Fatalf("wrong tail: %+v", got)
	}
}

func TestTrim_ShortSeriesReturnedWhole(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	series := dailySeries(base, 1, 2)

	if got := Trim(series, Span{Days: 30, Points: 100}); len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestTrim_ReturnsCopy(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	series := dailySeries(base, 1, 2, 3)

	got := Trim(series, Span{})
	got[0].Close = 99
	if series[0].Close != 1 {
		t.Error("Trim aliased the input slice")
	}
}

type fakeStore struct {
	series map[string][]model.PricePoint
}

func (f *fakeStore) ReadSeries(pair string, after time.Time) ([]model.PricePoint, error) {
	var out []model.PricePoint
	for _, p := range f.series[pair] {
		if !p.Timestamp.Before(after) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ReadRecent(pair string, n int) ([]model.PricePoint, error) {
	s := f.series[pair]
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s, nil
}

func TestHistoryProvider_EmptyHistoryIsUnavailable(t *testing.T) {
	h := NewHistoryProvider(&fakeStore{series: map[string][]model.PricePoint{}})
	_, err := h.GetPriceSeries(context.Background(), "EUR/USD", Span{Days: 30})
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestHistoryProvider_DaysWindow(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	h := NewHistoryProvider(&fakeStore{series: map[string][]model.PricePoint{
		"EUR/USD": dailySeries(base, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
	}})
	h.now = func() time.Time { return base.AddDate(0, 0, 9) }

	series, err := h.GetPriceSeries(context.Background(), "EUR/USD", Span{Days: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 5 {
		t.Fatalf("len = %d, want 5", len(series))
	}
	if series[0].Close != 6 {
		t.Errorf("window start = %g, want 6", series[0].Close)
	}
}

func TestHistoryProvider_RecentPoints(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	h := NewHistoryProvider(&fakeStore{series: map[string][]model.PricePoint{
		"EUR/USD": dailySeries(base, 1, 2, 3, 4, 5),
	}})

	series, err := h.GetPriceSeries(context.Background(), "EUR/USD", Span{Points: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 3 || series[0].Close != 3 {
		t.Fatalf("wrong tail: %+v", series)
	}
}
