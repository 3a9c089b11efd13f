package features

import "math"

// Series helpers operate on one ticker's date-ordered column.
// NaN marks an undefined value; a window containing NaN is undefined.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func window(x []float64, i, w int) ([]float64, bool) {
	if w <= 0 || i+1 < w {
		return nil, false
	}
	win := x[i+1-w : i+1]
	for _, v := range win {
		if math.IsNaN(v) {
			return nil, false
		}
	}
	return win, true
}

// rollingMean is the w-window arithmetic mean
func rollingMean(x []float64, w int) []float64 {
	out := nanSeries(len(x))
	for i := range x {
		win, ok := window(x, i, w)
		if !ok {
			continue
		}
		out[i] = mean(win)
	}
	return out
}

// rollingStd is the w-window sample standard deviation (n-1 denominator)
func rollingStd(x []float64, w int) []float64 {
	out := nanSeries(len(x))
	if w < 2 {
		return out
	}
	for i := range x {
		win, ok := window(x, i, w)
		if !ok {
			continue
		}
		m := mean(win)
		var ss float64
		for _, v := range win {
			d := v - m
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(w-1))
	}
	return out
}

func rollingMin(x []float64, w int) []float64 {
	out := nanSeries(len(x))
	for i := range x {
		win, ok := window(x, i, w)
		if !ok {
			continue
		}
		m := win[0]
		for _, v := range win[1:] {
			if v < m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

func rollingMax(x []float64, w int) []float64 {
	out := nanSeries(len(x))
	for i := range x {
		win, ok := window(x, i, w)
		if !ok {
			continue
		}
		m := win[0]
		for _, v := range win[1:] {
			if v > m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

func mean(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// diff is x[i] - x[i-1]; the first element is undefined
func diff(x []float64) []float64 {
	out := nanSeries(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}

// pctChange is (x[i] - x[i-lag]) / x[i-lag]
func pctChange(x []float64, lag int) []float64 {
	out := nanSeries(len(x))
	for i := lag; i < len(x); i++ {
		out[i] = (x[i] - x[i-lag]) / x[i-lag]
	}
	return out
}

// ema is the recursive exponential mean with alpha = 2/(span+1) and no bias adjustment:
// ema[0] = x[0], ema[i] = alpha*x[i] + (1-alpha)*ema[i-1].
// Undefined observations keep the previous value and age its weight,
// so the next defined observation gets a proportionally larger share.
func ema(x []float64, span int) []float64 {
	out := nanSeries(len(x))
	if len(x) == 0 {
		return out
	}

	alpha := 2.0 / (float64(span) + 1.0)
	decay := 1 - alpha
	weighted := x[0]
	oldWeight := 1.0
	out[0] = weighted

	for i := 1; i < len(x); i++ {
		cur := x[i]
		observed := !math.IsNaN(cur)
		if !math.IsNaN(weighted) {
			oldWeight *= decay
			if observed {
				if weighted != cur {
					weighted = (oldWeight*weighted + alpha*cur) / (oldWeight + alpha)
				}
				oldWeight = 1
			}
		} else if observed {
			weighted = cur
		}
		out[i] = weighted
	}
	return out
}

// rsi is the simple-mean relative strength index over w periods.
// An undefined price change counts as no change.
func rsi(close []float64, w int) []float64 {
	delta := diff(close)
	gain := make([]float64, len(close))
	loss := make([]float64, len(close))
	for i, d := range delta {
		if d > 0 {
			gain[i] = d
		} else if d < 0 {
			loss[i] = -d
		}
	}

	avgGain := rollingMean(gain, w)
	avgLoss := rollingMean(loss, w)

	out := nanSeries(len(close))
	for i := range close {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(g) || math.IsNaN(l):
		case l == 0 && g == 0:
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
