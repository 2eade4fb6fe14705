package model

// BandPoint holds Bollinger band values for one index of a price series.
// Bands exist only once a full look-back window is available, so a band
// sequence is shorter than (or equal to) its price series; Index ties each
// band back to the series position it was computed at.
type BandPoint struct {
	Index  int     `json:"index"`
	Middle float64 `json:"middle"`
	Upper  float64 `json:"upper"`
	Lower  float64 `json:"lower"`
	StdDev float64 `json:"std_dev"`
}

// Width returns the absolute band width (upper - lower).
func (b *BandPoint) Width() float64 {
	return b.Upper - b.Lower
}

// RelWidth returns the band width relative to the middle band.
// Returns 0 when the middle band is zero.
func (b *BandPoint) RelWidth() float64 {
	if b.Middle == 0 {
		return 0
	}
	return (b.Upper - b.Lower) / b.Middle
}
