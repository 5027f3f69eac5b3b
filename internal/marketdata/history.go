package marketdata

import (
	"gonum.org/v1/gonum/stat"
)

// History windows, in calendar days, and the minimum number of closes each
// derived metric needs.
const (
	Range6Month = 182
	Range1Year  = 365
	Range3Year  = 3 * 365

	minPointsMovingAverage = 30
	minPoints6Month        = 30
	minPoints1Year         = 100
	minPoints3Year         = 10

	movingAverageWindow = 50
)

// movingAverage50 is the mean of the last 50 closes, or of all of them when
// fewer are available. nil below minPointsMovingAverage.
func movingAverage50(closes []float64) *float64 {
	if len(closes) < minPointsMovingAverage {
		return nil
	}
	window := closes
	if len(window) > movingAverageWindow {
		window = window[len(window)-movingAverageWindow:]
	}
	return floatPtr(stat.Mean(window, nil))
}

// percentChange is (last - first) / first * 100 over the series.
func percentChange(closes []float64, minPoints int) *float64 {
	if len(closes) < minPoints || len(closes) == 0 {
		return nil
	}
	first, last := closes[0], closes[len(closes)-1]
	if first <= 0 {
		return nil
	}
	return floatPtr((last - first) / first * 100)
}

// cleanCloses drops the zero/negative placeholders the upstream emits for
// missing bars.
func cleanCloses(closes []float64) []float64 {
	out := closes[:0:0]
	for _, c := range closes {
		if c > 0 {
			out = append(out, c)
		}
	}
	return out
}
