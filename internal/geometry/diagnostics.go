package geometry

// PlateauEstimate returns the mean of p0 over the tail t in (fitTMax, len(p0)],
// where p0[t-1] = P0(t). On a finite component the return probability levels
// off near 1/comp_size; a tail well above that suggests trapping. ok is false
// when the tail is empty.
func PlateauEstimate(p0 []float64, fitTMax int) (float64, bool) {
	from := max(fitTMax, 0)
	if from >= len(p0) {
		return 0, false
	}
	tail := p0[from:]
	return mean(tail), true
}

// Downsample returns [t, P0(t)] pairs at t = 1, 2, 4, 8, ... and at the last
// t, for compact reporting of the return-probability curve.
func Downsample(p0 []float64) [][2]float64 {
	if len(p0) == 0 {
		return nil
	}
	var out [][2]float64
	last := 0
	for t := 1; t <= len(p0); t *= 2 {
		out = append(out, [2]float64{float64(t), p0[t-1]})
		last = t
	}
	if last != len(p0) {
		out = append(out, [2]float64{float64(len(p0)), p0[len(p0)-1]})
	}
	return out
}
