package generation

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRatio_SupportedAreIdentity(t *testing.T) {
	for _, r := range SupportedRatios {
		t.Run(r, func(t *testing.T) {
			assert.Equal(t, r, NormalizeRatio(r))
		})
	}
}

func TestNormalizeRatio_MalformedDefaults(t *testing.T) {
	inputs := []string{"", "   ", "square", "16", "16:", ":9", "0:1", "1:0", "-4:3", "a:b", "1:2:3", "NaN:1", "Inf:1"}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, DefaultRatio, NormalizeRatio(in))
		})
	}
}

func TestNormalizeRatio_Nearest(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2:3", "3:4"},
		{"3:2", "4:3"},
		{"1920x1080", "16:9"},
		{"1080/1920", "9:16"},
		{" 5 : 4 ", "4:3"},
		{"1.1:1", "1:1"},
		{"3:1", "21:9"},
		{"1:3", "9:16"},
		{"100:99", "1:1"},
		{"7:6", "1:1"},
		{"37:18", "16:9"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRatio(tt.in))
		})
	}
}

// exactDiff - |w/h - a/b| 를 분수 (num/den) 로
func exactDiff(w, h, a, b int) (num, den int) {
	num = w*b - a*h
	if num < 0 {
		num = -num
	}
	return num, h * b
}

func TestNormalizeRatio_MinimizesDifference(t *testing.T) {
	type frac struct{ a, b int }
	fracs := make([]frac, 0, len(SupportedRatios))
	for _, s := range SupportedRatios {
		parts := strings.Split(s, ":")
		a, _ := strconv.Atoi(parts[0])
		b, _ := strconv.Atoi(parts[1])
		fracs = append(fracs, frac{a, b})
	}

	for w := 1; w <= 40; w++ {
		for h := 1; h <= 40; h++ {
			// 정수 교차곱으로 정확한 최솟값, 동률이면 앞선 항목
			best := 0
			bn, bd := exactDiff(w, h, fracs[0].a, fracs[0].b)
			for i, f := range fracs[1:] {
				n, d := exactDiff(w, h, f.a, f.b)
				if n*bd < bn*d {
					best, bn, bd = i+1, n, d
				}
			}

			in := strconv.Itoa(w) + ":" + strconv.Itoa(h)
			assert.Equal(t, SupportedRatios[best], NormalizeRatio(in), "input %s", in)
		}
	}
}
