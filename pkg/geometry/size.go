package geometry

import (
	"math"
	"strconv"
	"strings"
)

// ParseSizeToken converts a hail size token into inches. Fractions ("3/8"),
// decimals ("1.25") and the open-ended "3+" (treated as 4) are accepted. An
// empty token is 0. Anything else is read as the longest numeric prefix and
// yields NaN when there is none.
func ParseSizeToken(s string) float64 {
	if s == "" {
		return 0
	}
	if strings.Contains(s, "+") {
		return 4
	}
	if num, den, ok := strings.Cut(s, "/"); ok && den != "" {
		return leadingInt(num) / leadingInt(den)
	}
	return leadingFloat(s)
}

// leadingInt parses an optionally signed integer prefix after leading
// whitespace. NaN when no digits are present.
func leadingInt(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// leadingFloat parses the longest decimal prefix after leading whitespace.
func leadingFloat(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r")
	for end := len(s); end > 0; end-- {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			if math.IsInf(v, 0) && !strings.Contains(strings.ToLower(s[:end]), "inf") {
				continue
			}
			if math.IsNaN(v) {
				continue
			}
			return v
		}
	}
	return math.NaN()
}
