package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The package TestMain points the cache at an unreachable address, so every
// tier increment fails and Allow takes its fail-open path.
func TestAllowFailOpenKeepsResetAhead(t *testing.T) {
	rl := NewRateLimiter(testConfig())

	before := time.Now()
	result, rej := rl.Allow("facebook", "203.0.113.9")

	require.Nil(t, rej)
	require.NotNil(t, result)
	assert.Equal(t, 60, result.Limit)
	assert.Equal(t, 60, result.Remaining)
	assert.True(t, result.ResetAt.After(before), "reset header must never point into the past")
}
