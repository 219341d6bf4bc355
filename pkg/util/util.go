package util

import (
	"math"
)

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func ReverseG[T any](arr []T) {
	for i, j := 0, len(arr)-1; i < j; i, j = i+1, j-1 {
		arr[i], arr[j] = arr[j], arr[i]
	}
}

// LogSumExp log(sum(exp(x))) yang stabil buat nilai log-probability kecil. Elemen -Inf diabaikan.
func LogSumExp(xs []float64) float64 {
	maxV := math.Inf(-1)
	for _, x := range xs {
		if x > maxV {
			maxV = x
		}
	}
	if math.IsInf(maxV, -1) {
		return maxV
	}
	sum := 0.0
	for _, x := range xs {
		if math.IsInf(x, -1) {
			continue
		}
		sum += math.Exp(x - maxV)
	}
	return maxV + math.Log(sum)
}
