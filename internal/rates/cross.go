package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fxdesk/internal/model"
)

// Tables holds one refresh cycle's conversion tables. Two bases are enough
// to derive any tracked pair: direct USD/EUR legs use their own table, and
// everything else crosses through USD.
type Tables struct {
	USD       map[string]float64
	EUR       map[string]float64
	FetchedAt time.Time
}

// TableFetcher is the client surface table fetching needs.
type TableFetcher interface {
	LatestTable(ctx context.Context, base string) (map[string]float64, error)
}

// FetchTables pulls both base tables from the API.
func FetchTables(ctx context.Context, c TableFetcher, now time.Time) (Tables, error) {
	usd, err := c.LatestTable(ctx, "USD")
	if err != nil {
		return Tables{}, fmt.Errorf("fetch USD table: %w", err)
	}
	eur, err := c.LatestTable(ctx, "EUR")
	if err != nil {
		return Tables{}, fmt.Errorf("fetch EUR table: %w", err)
	}
	return Tables{USD: usd, EUR: eur, FetchedAt: now}, nil
}

// DeriveRate computes the mid rate for base/quote from the tables.
// Unknown currency codes yield model.ErrDataUnavailable.
func DeriveRate(t Tables, base, quote string) (float64, error) {
	if base == quote {
		return 0, fmt.Errorf("identical base and quote %s", base)
	}

	switch {
	case base == "USD":
		if r, ok := t.USD[quote]; ok && r > 0 {
			return r, nil
		}
	case quote == "USD":
		if r, ok := t.USD[base]; ok && r > 0 {
			return 1 / r, nil
		}
	case base == "EUR":
		if r, ok := t.EUR[quote]; ok && r > 0 {
			return r, nil
		}
	case quote == "EUR":
		if r, ok := t.EUR[base]; ok && r > 0 {
			return 1 / r, nil
		}
	default:
		// Cross through USD: base/quote = (USD/quote) / (USD/base).
		bq, okB := t.USD[base]
		qq, okQ := t.USD[quote]
		if okB && okQ && bq > 0 && qq > 0 {
			return qq / bq, nil
		}
	}
	return 0, model.ErrDataUnavailable
}

// Liquidity classes for the spread model. Majors quote the tightest spread,
// G10 crosses a middle one, everything else a full pip.
var (
	majorPairs = map[string]bool{
		"EUR/USD": true, "GBP/USD": true, "USD/JPY": true, "USD/CHF": true,
		"AUD/USD": true, "USD/CAD": true, "NZD/USD": true,
	}
	g10 = map[string]bool{
		"USD": true, "EUR": true, "JPY": true, "GBP": true, "CHF": true,
		"AUD": true, "NZD": true, "CAD": true, "SEK": true, "NOK": true,
	}
)

// spreadPips returns the fixed bid/ask spread in pips for a pair.
func spreadPips(base, quote string) float64 {
	pair := model.PairSymbol(base, quote)
	switch {
	case majorPairs[pair]:
		return 0.2
	case g10[base] && g10[quote]:
		return 0.5
	default:
		return 1.0
	}
}

// pipSize is 0.01 for JPY-quoted pairs, 0.0001 otherwise.
func pipSize(quote string) float64 {
	if strings.EqualFold(quote, "JPY") {
		return 0.01
	}
	return 0.0001
}

// Quote builds a full Rate from a mid rate, applying the deterministic
// half-spread to each side.
func Quote(base, quote string, mid float64, ts time.Time, source string) model.Rate {
	half := spreadPips(base, quote) * pipSize(quote) / 2
	return model.Rate{
		Pair:      model.PairSymbol(base, quote),
		Rate:      mid,
		Bid:       mid - half,
		Ask:       mid + half,
		Timestamp: ts,
		Source:    source,
	}
}
