package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	calls    atomic.Int32
	errs     []error // attempt별 반환값, 소진 후 nil
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	n := int(j.calls.Add(1)) - 1
	if n < len(j.errs) {
		return j.errs[n]
	}
	return nil
}

func newTestScheduler(retries int) *Scheduler {
	return New(logger.Nop(), WithRetry(retries, time.Millisecond))
}

func TestScheduler_AddAndRemoveJob(t *testing.T) {
	s := newTestScheduler(0)

	require.NoError(t, s.AddJob(&stubJob{name: "b", schedule: "0 0 3 * * *"}))
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@daily"}))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	err := s.AddJob(&stubJob{name: "a", schedule: "@daily"})
	assert.Error(t, err, "duplicate name")

	err = s.AddJob(&stubJob{name: "bad", schedule: "not a cron"})
	assert.Error(t, err)

	require.NoError(t, s.RemoveJob("b"))
	assert.Equal(t, []string{"a"}, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("b"))
}

func TestScheduler_RetriesTransientErrors(t *testing.T) {
	s := newTestScheduler(3)
	job := &stubJob{name: "flaky", schedule: "@daily", errs: []error{
		errors.New("connection reset"),
		fmt.Errorf("load: %w", contracts.ErrInputMissing),
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, result.Error)
}

func TestScheduler_TerminalErrorNotRetried(t *testing.T) {
	s := newTestScheduler(3)
	job := &stubJob{name: "bad_data", schedule: "@daily", errs: []error{
		fmt.Errorf("fit: %w", contracts.ErrInsufficientSamples),
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("bad_data")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Contains(t, result.Error, "insufficient")

	stats := s.GetJobStats()["bad_data"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestScheduler_GivesUpAfterMaxRetries(t *testing.T) {
	s := newTestScheduler(2)
	boom := errors.New("boom")
	job := &stubJob{name: "down", schedule: "@daily", errs: []error{boom, boom, boom, boom}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("down")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), job.calls.Load())
}

func TestScheduler_RunJobAsync(t *testing.T) {
	s := newTestScheduler(0)
	job := &stubJob{name: "async", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("async"))
	assert.Error(t, s.RunJob("missing"))

	s.Start()
	s.Stop()

	assert.Equal(t, int32(1), job.calls.Load())
	history, err := s.GetJobHistory("async")
	require.NoError(t, err)
	assert.Equal(t, 1.0, history.GetSuccessRate())
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("timeout"), true},
		{contracts.ErrInputMissing, true},
		{contracts.ErrSchemaInconsistency, false},
		{fmt.Errorf("wrap: %w", contracts.ErrDataCoverage), false},
		{contracts.ErrInvalidShape, false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Retryable(tt.err), tt.err.Error())
	}
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))

	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{JobName: fmt.Sprint(i), Success: i%2 == 0})
	}

	assert.Len(t, h.Results, maxHistory)
	latest := h.GetLatestResults(2)
	assert.Equal(t, fmt.Sprint(maxHistory+4), latest[0].JobName)
	assert.Equal(t, fmt.Sprint(maxHistory+3), latest[1].JobName)
	assert.Len(t, h.GetFailedResults(), maxHistory/2)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-12)
}
