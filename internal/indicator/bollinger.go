// Package indicator provides technical indicator calculations over price
// series. Calculations are pure: the same series and parameters always
// produce the same output.
package indicator

import (
	"math"

	"fxdesk/internal/model"
)

// Default Bollinger parameters (20-period, 2 standard deviations).
const (
	DefaultPeriod    = 20
	DefaultNumStdDev = 2.0
)

// Bollinger computes Bollinger Bands: a rolling mean (middle band) offset
// up and down by a multiple of the rolling population standard deviation.
type Bollinger struct {
	Period    int
	NumStdDev float64
}

// NewBollinger creates a calculator, substituting defaults for
// non-positive parameters.
func NewBollinger(period int, numStdDev float64) *Bollinger {
	if period <= 0 {
		period = DefaultPeriod
	}
	if numStdDev <= 0 {
		numStdDev = DefaultNumStdDev
	}
	return &Bollinger{Period: period, NumStdDev: numStdDev}
}

// Compute returns one BandPoint per series index i >= Period-1, aligned to
// the input by BandPoint.Index. Indices before the look-back window produce
// no output. Returns model.ErrInsufficientData when the series is shorter
// than Period.
//
// Uses rolling sums (O(n) total) rather than rescanning each window.
func (b *Bollinger) Compute(series []model.PricePoint) ([]model.BandPoint, error) {
	if len(series) < b.Period {
		return nil, model.ErrInsufficientData
	}

	n := float64(b.Period)
	bands := make([]model.BandPoint, 0, len(series)-b.Period+1)

	var sum, sumSq float64
	for i, p := range series {
		sum += p.Close
		sumSq += p.Close * p.Close
		if i >= b.Period {
			old := series[i-b.Period].Close
			sum -= old
			sumSq -= old * old
		}
		if i < b.Period-1 {
			continue
		}

		mean := sum / n
		// Population variance; clamp tiny negatives from float cancellation.
		variance := sumSq/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		sd := math.Sqrt(variance)

		bands = append(bands, model.BandPoint{
			Index:  i,
			Middle: mean,
			Upper:  mean + b.NumStdDev*sd,
			Lower:  mean - b.NumStdDev*sd,
			StdDev: sd,
		})
	}
	return bands, nil
}
