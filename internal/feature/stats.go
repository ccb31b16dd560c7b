package feature

import "math"

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// severityOf maps a feature value onto [0,1] relative to twice its dynamic
// threshold. A non-positive threshold means any positive value saturates.
func severityOf(value, dynamicThreshold float64) float64 {
	if dynamicThreshold <= 0 {
		if value > 0 {
			return 1.0
		}
		return 0
	}
	return math.Min(value/(2*dynamicThreshold), 1.0)
}
