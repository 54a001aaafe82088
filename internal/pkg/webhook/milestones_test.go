package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var ladder = []int64{50, 100, 500, 1000}

func TestCrossedMilestones(t *testing.T) {
	assert.Equal(t, []int64{50}, CrossedMilestones(ladder, 49, 50))
	assert.Equal(t, []int64{50, 100}, CrossedMilestones(ladder, 10, 120))
	assert.Equal(t, []int64{50, 100, 500, 1000}, CrossedMilestones(ladder, 0, 5000))

	// Staying above a milestone never re-fires it.
	assert.Nil(t, CrossedMilestones(ladder, 120, 130))
	assert.Nil(t, CrossedMilestones(ladder, 100, 100))

	// Regressions fire nothing.
	assert.Nil(t, CrossedMilestones(ladder, 600, 400))
	assert.Nil(t, CrossedMilestones(ladder, 50, 50))
}

func TestIsViral(t *testing.T) {
	// 150 engagements over 1000 impressions is 15%.
	assert.True(t, IsViral(150, 1000, 10, 1000))

	// Below the rate threshold.
	assert.False(t, IsViral(50, 1000, 10, 1000))

	// Exactly at the threshold does not fire.
	assert.False(t, IsViral(100, 1000, 10, 1000))

	// Below the volume floor nothing is viral, whatever the rate.
	assert.False(t, IsViral(900, 999, 10, 1000))
	assert.False(t, IsViral(10, 0, 10, 0))
}
