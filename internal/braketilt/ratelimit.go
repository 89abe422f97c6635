package braketilt

import "math"

// rateLimit moves value toward target by at most step, without overshoot.
func rateLimit(value, target, step float64) float64 {
	if math.Abs(target-value) < step {
		return target
	}
	if target > value {
		return value + step
	}
	return value - step
}

// sign treats zero as positive.
func sign(x float64) int {
	if x < 0 {
		return -1
	}
	return 1
}
