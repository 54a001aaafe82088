package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookProcessingJobPayloadRoundTrip(t *testing.T) {
	payload := WebhookProcessingJobPayload{EventID: 42, Platform: "facebook"}

	m := payload.ToMap()
	assert.Equal(t, uint(42), m["event_id"])
	assert.Equal(t, "facebook", m["platform"])

	restored, err := WebhookProcessingJobPayloadFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

func TestJobStatusTransitions(t *testing.T) {
	job := &Job{
		ID:         "job-1",
		Type:       JobTypeWebhookProcessing,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}

func TestJobFailureAndRetry(t *testing.T) {
	job := &Job{
		ID:         "job-2",
		Type:       JobTypeWebhookProcessing,
		Status:     JobStatusPending,
		MaxRetries: 2,
	}

	job.MarkAsFailed("upstream timeout")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "upstream timeout", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)
	// A retrying job is not eligible for another pickup until it fails again.
	assert.False(t, job.IsRetryable())

	job.MarkAsFailed("upstream timeout")
	assert.Equal(t, 2, job.RetryCount)
	assert.False(t, job.IsRetryable(), "retry budget of %d is spent", job.MaxRetries)
}

func TestCompletionClearsError(t *testing.T) {
	job := &Job{ID: "job-3", Status: JobStatusPending, MaxRetries: 3}
	job.MarkAsFailed("transient")
	job.MarkAsCompleted()
	assert.Empty(t, job.ErrorMsg)
	assert.Equal(t, JobStatusCompleted, job.Status)
}
