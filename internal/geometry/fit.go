package geometry

import "math"

// LineFit is an ordinary least-squares fit y = Slope*x + Intercept.
type LineFit struct {
	Slope     float64
	Intercept float64
	// R2 is the coefficient of determination. It is 1 when the y values have
	// no variance and the fit is exact.
	R2     float64
	Points int
}

// fitLine fits y against x. ok is false when fewer than two points are given
// or all x are equal.
func fitLine(xs, ys []float64) (LineFit, bool) {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return LineFit{Points: n}, false
	}

	xbar, ybar := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-xbar, ys[i]-ybar
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx <= 0 {
		return LineFit{Points: n}, false
	}

	slope := sxy / sxx
	fit := LineFit{
		Slope:     slope,
		Intercept: ybar - slope*xbar,
		R2:        1.0,
		Points:    n,
	}
	if syy > 0 {
		var ssRes float64
		for i := range xs {
			r := ys[i] - (fit.Intercept + slope*xs[i])
			ssRes += r * r
		}
		fit.R2 = math.Max(0, 1-ssRes/syy)
	}
	return fit, true
}

func mean(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
