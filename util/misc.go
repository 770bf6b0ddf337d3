package util

func CopyIntSlice(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}

func CopyFloatSlice(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}

func CopyBoolSlice(s []bool) []bool {
	out := make([]bool, len(s))
	copy(out, s)
	return out
}
