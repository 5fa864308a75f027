package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLSeconds(t *testing.T) {
	assert.Equal(t, time.Duration(0), TTLSeconds(0))
	assert.Equal(t, time.Hour, TTLSeconds(3600))
	assert.Equal(t, -time.Minute, TTLSeconds(-60))
	assert.Equal(t, time.Duration(math.MaxInt64), TTLSeconds(99999999999))
	assert.Equal(t, time.Duration(math.MaxInt64), TTLSeconds(math.MaxInt64))
	assert.Equal(t, time.Duration(math.MinInt64), TTLSeconds(math.MinInt64))
	assert.Greater(t, TTLSeconds(maxTTLSeconds), time.Duration(0))
}
