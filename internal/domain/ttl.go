package domain

import (
	"math"
	"time"
)

const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

// TTLSeconds переводит секунды в time.Duration. Значения за пределами
// диапазона Duration насыщаются, а не переполняются.
func TTLSeconds(n int64) time.Duration {
	switch {
	case n > maxTTLSeconds:
		return time.Duration(math.MaxInt64)
	case n < -maxTTLSeconds:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(n) * time.Second
}
