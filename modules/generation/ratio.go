package generation

import (
	"math"
	"strconv"
	"strings"
)

// DefaultRatio - 비율이 없거나 잘못된 경우
const DefaultRatio = "9:16"

// tieEpsilon - 부동소수 오차 안의 차이는 동률
const tieEpsilon = 1e-9

type ratio struct {
	label string
	value float64
}

// SupportedRatios - 지원 비율 (목록 순서가 동률 우선순위)
var SupportedRatios = []string{"1:1", "4:3", "3:4", "16:9", "9:16", "21:9"}

var supported = func() []ratio {
	out := make([]ratio, 0, len(SupportedRatios))
	for _, s := range SupportedRatios {
		w, h, _ := parseRatio(s)
		out = append(out, ratio{label: s, value: w / h})
	}
	return out
}()

// NormalizeRatio - 가장 가까운 지원 비율 반환 ("w:h", "w/h", "wxh")
func NormalizeRatio(s string) string {
	w, h, ok := parseRatio(s)
	if !ok {
		return DefaultRatio
	}
	target := w / h

	best := supported[0]
	bestDiff := math.Abs(target - best.value)
	for _, r := range supported[1:] {
		// 동률이면 앞선 항목 유지
		if d := math.Abs(target - r.value); d < bestDiff-tieEpsilon {
			best, bestDiff = r, d
		}
	}
	return best.label
}

func parseRatio(s string) (float64, float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, 0, false
	}
	var sep string
	for _, candidate := range []string{":", "/", "x"} {
		if strings.Count(s, candidate) == 1 {
			sep = candidate
			break
		}
	}
	if sep == "" {
		return 0, 0, false
	}
	parts := strings.Split(s, sep)
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if w <= 0 || h <= 0 || math.IsInf(w, 0) || math.IsInf(h, 0) || math.IsNaN(w) || math.IsNaN(h) {
		return 0, 0, false
	}
	return w, h, true
}
