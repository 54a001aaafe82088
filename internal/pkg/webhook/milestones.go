package webhook

// CrossedMilestones returns the milestones from the ladder that total has
// crossed since previous. A crossing is the transition from below to
// at-or-above a threshold; totals that merely stay above a milestone never
// re-fire it.
func CrossedMilestones(ladder []int64, previous, total int64) []int64 {
	if total <= previous {
		return nil
	}
	var crossed []int64
	for _, milestone := range ladder {
		if previous < milestone && total >= milestone {
			crossed = append(crossed, milestone)
		}
	}
	return crossed
}

// IsViral reports whether the engagement rate over the audience volume
// exceeds the platform's threshold pair. Rate is in percent.
func IsViral(totalEngagement, volume int64, ratePercent float64, minVolume int64) bool {
	if volume < minVolume || volume == 0 {
		return false
	}
	rate := float64(totalEngagement) / float64(volume) * 100
	return rate > ratePercent
}
