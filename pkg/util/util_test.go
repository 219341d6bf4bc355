package util_test

import (
	"math"
	"testing"

	"lintang/mapmatchx/pkg/util"

	"github.com/stretchr/testify/assert"
)

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, -24.49, util.RoundFloat(-24.4912, 2))
	assert.Equal(t, 3.0, util.RoundFloat(2.9999, 2))
}

func TestReverseG(t *testing.T) {
	arr := []int{1, 2, 3, 4}
	util.ReverseG(arr)
	assert.Equal(t, []int{4, 3, 2, 1}, arr)
}

func TestLogSumExp(t *testing.T) {
	got := util.LogSumExp([]float64{math.Log(0.25), math.Log(0.75), math.Inf(-1)})
	assert.InDelta(t, 0, got, 1e-12)
	assert.True(t, math.IsInf(util.LogSumExp([]float64{math.Inf(-1)}), -1))
}
