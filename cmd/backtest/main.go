// cmd/backtest runs the Bollinger strategy over a CSV price series without
// touching the live feed. Useful for validating strategy changes against a
// known dataset.
//
// Usage:
//
//	go run ./cmd/backtest --csv=data/eurusd.csv --pair=EUR/USD --balance=10000
//
// The CSV has two columns: timestamp (RFC3339, 2006-01-02, or unix seconds)
// and close price. A header row is skipped automatically.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"fxdesk/internal/analysis"
	"fxdesk/internal/model"
	"fxdesk/internal/rates"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	csvPath := flag.String("csv", "", "Path to CSV price series (timestamp,close)")
	pair := flag.String("pair", "EUR/USD", "Currency pair label for the report")
	days := flag.Int("days", 0, "Limit to the most recent N days (0=all)")
	balance := flag.Float64("balance", 10000, "Initial account balance")
	period := flag.Int("period", 0, "Bollinger period (0=default 20)")
	stddev := flag.Float64("stddev", 0, "Bollinger band width in standard deviations (0=default 2)")
	minStrength := flag.Int("min-strength", 0, "Minimum signal strength to trade (0=default 70)")
	fraction := flag.Float64("fraction", 0, "Balance fraction committed per BUY (0=default 0.1)")
	flag.Parse()

	if *csvPath == "" {
		log.Fatal("[backtest] --csv is required")
	}

	series, err := loadSeries(*csvPath)
	if err != nil {
		log.Fatalf("[backtest] load %s: %v", *csvPath, err)
	}
	log.Printf("[backtest] loaded %d price points from %s", len(series), *csvPath)

	provider := rates.NewStatic(map[string][]model.PricePoint{*pair: series})
	svc := analysis.New(provider, nil)
	ctx := context.Background()

	spanDays := *days
	if spanDays <= 0 {
		// Cover the whole series.
		first, last := series[0].Timestamp, series[len(series)-1].Timestamp
		spanDays = int(last.Sub(first).Hours()/24) + 1
	}

	res, err := svc.Analyze(ctx, *pair, analysis.Options{
		Days: spanDays, Period: *period, NumStdDev: *stddev,
	})
	if err != nil {
		log.Fatalf("[backtest] analyze failed: %v", err)
	}

	report, err := svc.Backtest(ctx, *pair, analysis.BacktestOptions{
		Days:                 spanDays,
		InitialBalance:       *balance,
		Period:               *period,
		NumStdDev:            *stddev,
		MinStrength:          *minStrength,
		PositionSizeFraction: *fraction,
	})
	if err != nil {
		log.Fatalf("[backtest] simulation failed: %v", err)
	}

	for _, tr := range report.Trades {
		fmt.Printf("  [%s] %-4s %.5f  qty=%.2f  balance=%.2f\n",
			tr.Date.Format("2006-01-02"), tr.Type, tr.Price, tr.Quantity, tr.BalanceAfter)
	}

	cur := "n/a"
	if res.CurrentSignal != nil {
		cur = fmt.Sprintf("%s (strength %d, confidence %d)",
			res.CurrentSignal.Type, res.CurrentSignal.Strength, res.CurrentSignal.Confidence)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║              BACKTEST COMPLETE               ║")
	fmt.Println("╠══════════════════════════════════════════════╣")
	fmt.Printf("║  Pair:            %-26s ║\n", report.Pair)
	fmt.Printf("║  Trend:           %-26s ║\n", res.Analysis.Trend)
	fmt.Printf("║  Current signal:  %-26s ║\n", cur)
	fmt.Printf("║  Trades:          %-26d ║\n", report.TotalTrades)
	fmt.Printf("║  Win rate:        %-25.1f%% ║\n", report.WinRatePct)
	fmt.Printf("║  Final balance:   %-26.2f ║\n", report.FinalBalance)
	fmt.Printf("║  Return:          %-25.2f%% ║\n", report.TotalReturnPct)
	fmt.Printf("║  Max drawdown:    %-25.2f%% ║\n", report.MaxDrawdownPct)
	fmt.Println("╚══════════════════════════════════════════════╝")
}

// loadSeries reads (timestamp, close) rows from a CSV file.
func loadSeries(path string) ([]model.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var series []model.PricePoint
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) < 2 {
			continue
		}

		closePx, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("line %d: bad close %q", line, rec[1])
		}
		ts, err := parseTimestamp(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad timestamp %q", line, rec[0])
		}
		series = append(series, model.PricePoint{Timestamp: ts, Close: closePx})
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("no price rows found")
	}
	return series, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil && unix > 0 {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized format")
}
