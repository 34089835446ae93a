package marketdata

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// SeriesStats summarizes the cached bar history of one symbol.
type SeriesStats struct {
	Symbol       string  `json:"symbol"`
	Bars         int     `json:"bars"`
	MeanClose    float64 `json:"mean_close"`
	StdDevClose  float64 `json:"std_dev_close"`
	ReturnStdDev float64 `json:"return_std_dev"`
}

// Stats computes summary statistics over the finalized bars of a symbol.
func (f *PriceFeed) Stats(symbol string) (*SeriesStats, error) {
	bars, err := f.Bars(symbol, 0)
	if err != nil {
		return nil, err
	}

	if len(bars) == 0 {
		return &SeriesStats{Symbol: symbol}, nil
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	mean, err := stats.Mean(closes)
	if err != nil {
		return nil, fmt.Errorf("stats: mean: %w", err)
	}

	stdDev, err := stats.StandardDeviation(closes)
	if err != nil {
		return nil, fmt.Errorf("stats: stddev: %w", err)
	}

	result := &SeriesStats{
		Symbol:      symbol,
		Bars:        len(bars),
		MeanClose:   mean,
		StdDevClose: stdDev,
	}

	if len(closes) > 1 {
		returns := make([]float64, len(closes)-1)
		for i := 1; i < len(closes); i++ {
			returns[i-1] = closes[i] - closes[i-1]
		}

		returnStdDev, err := stats.StandardDeviation(returns)
		if err != nil {
			return nil, fmt.Errorf("stats: return stddev: %w", err)
		}

		result.ReturnStdDev = returnStdDev
	}

	return result, nil
}
