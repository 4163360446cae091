// Package itr buckets intent-to-return satisfaction scores.
package itr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bucket values.
const (
	Detractor = 0
	Passive   = 8
	Promoter  = 10
)

// Bucket maps a numeric score to 0 (<=7), 8 (exactly 8) or 10 (>=9).
// Non-numeric or missing input, and values strictly between 7 and 8 or
// 8 and 9, yield false.
func Bucket(value any) (int, bool) {
	v, ok := toFloat(value)
	if !ok {
		return 0, false
	}

	switch {
	case v <= 7:
		return Detractor, true
	case v == 8:
		return Passive, true
	case v >= 9:
		return Promoter, true
	}
	return 0, false
}

func toFloat(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case nil:
		return 0, false
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case float32:
		f = float64(v)
	case float64:
		f = v
	default:
		s := strings.TrimSpace(fmt.Sprint(v))
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
