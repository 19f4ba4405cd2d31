package features

import "math"

// Rolling helpers use trailing windows. Positions before the first full
// window are NaN, and a window containing NaN yields NaN.

func rollingMean(values []float64, window int) []float64 {
	result := nanSlice(len(values))

	for i := window - 1; i < len(values); i++ {
		var sum float64

		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}

		result[i] = sum / float64(window)
	}

	return result
}

// rollingStd is the sample standard deviation (n-1 denominator) over the
// trailing window.
func rollingStd(values []float64, window int) []float64 {
	result := nanSlice(len(values))
	means := rollingMean(values, window)

	for i := window - 1; i < len(values); i++ {
		var squaredDiffSum float64

		for j := i - window + 1; j <= i; j++ {
			diff := values[j] - means[i]
			squaredDiffSum += diff * diff
		}

		result[i] = math.Sqrt(squaredDiffSum / float64(window-1))
	}

	return result
}

func rollingMin(values []float64, window int) []float64 {
	result := nanSlice(len(values))

	for i := window - 1; i < len(values); i++ {
		low := math.Inf(1)

		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				low = math.NaN()

				break
			}

			if values[j] < low {
				low = values[j]
			}
		}

		result[i] = low
	}

	return result
}

func rollingMax(values []float64, window int) []float64 {
	result := nanSlice(len(values))

	for i := window - 1; i < len(values); i++ {
		high := math.Inf(-1)

		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				high = math.NaN()

				break
			}

			if values[j] > high {
				high = values[j]
			}
		}

		result[i] = high
	}

	return result
}

func nanSlice(n int) []float64 {
	result := make([]float64, n)
	for i := range result {
		result[i] = math.NaN()
	}

	return result
}
