package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

type testJob struct {
	name     string
	schedule string
	fn       func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

func (j *testJob) Name() string     { return j.name }
func (j *testJob) Schedule() string { return j.schedule }

func (j *testJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	if j.fn != nil {
		return j.fn(ctx)
	}
	return nil
}

func (j *testJob) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func newScheduler() *Scheduler {
	return New(logger.NewWriter(io.Discard, "error")).WithRetry(2, time.Millisecond)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestAddJobDuplicate(t *testing.T) {
	s := newScheduler()
	job := &testJob{name: "etl", schedule: "@daily"}

	require.NoError(t, s.AddJob(job))
	err := s.AddJob(job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAddJobBadSchedule(t *testing.T) {
	s := newScheduler()
	err := s.AddJob(&testJob{name: "etl", schedule: "not a cron expression"})
	require.Error(t, err)
}

func TestTriggerJobRecordsHistory(t *testing.T) {
	s := newScheduler()
	job := &testJob{name: "etl", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.TriggerJob("etl"))
	waitFor(t, func() bool { return job.callCount() == 1 })
	waitFor(t, func() bool { return s.Stats()["etl"].TotalRuns == 1 })

	stats := s.Stats()["etl"]
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 0, stats.FailureCount)
	assert.NotNil(t, stats.LastSuccess)
}

func TestTriggerJobUnknown(t *testing.T) {
	s := newScheduler()
	require.Error(t, s.TriggerJob("nope"))
}

func TestJobRetriesThenSucceeds(t *testing.T) {
	var attempts int
	var mu sync.Mutex
	job := &testJob{name: "flaky", schedule: "@daily", fn: func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}}

	s := newScheduler()
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.TriggerJob("flaky"))

	waitFor(t, func() bool { return s.Stats()["flaky"].TotalRuns == 1 })
	stats := s.Stats()["flaky"]
	assert.Equal(t, 1, stats.SuccessCount, "retries within one run count as one success")
	assert.Equal(t, 3, job.callCount())
}

func TestJobFailsAfterRetries(t *testing.T) {
	job := &testJob{name: "broken", schedule: "@daily", fn: func(context.Context) error {
		return errors.New("permanent")
	}}

	s := newScheduler()
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.TriggerJob("broken"))

	waitFor(t, func() bool { return s.Stats()["broken"].TotalRuns == 1 })
	stats := s.Stats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 3, job.callCount(), "initial attempt plus two retries")
	assert.NotNil(t, stats.LastFailure)
}

func TestSingleActiveRunPerJob(t *testing.T) {
	release := make(chan struct{})
	job := &testJob{name: "slow", schedule: "@daily", fn: func(context.Context) error {
		<-release
		return nil
	}}

	s := newScheduler()
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.TriggerJob("slow"))
	waitFor(t, func() bool { return job.callCount() == 1 })

	// A second trigger while the first run is active must be dropped.
	require.NoError(t, s.TriggerJob("slow"))
	time.Sleep(50 * time.Millisecond)
	close(release)

	waitFor(t, func() bool { return s.Stats()["slow"].TotalRuns == 1 })
	assert.Equal(t, 1, job.callCount())
}

func TestJobHistoryLimit(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+20; i++ {
		h.AddResult(JobResult{JobName: "etl", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
}

func TestJobNames(t *testing.T) {
	s := newScheduler()
	require.NoError(t, s.AddJob(&testJob{name: "a", schedule: "@daily"}))
	require.NoError(t, s.AddJob(&testJob{name: "b", schedule: "@hourly"}))
	assert.ElementsMatch(t, []string{"a", "b"}, s.JobNames())
}
