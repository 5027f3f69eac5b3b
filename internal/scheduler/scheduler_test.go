package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/logger"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/marketdata"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_RunsJobOnSchedule(t *testing.T) {
	s := New(logger.Nop())
	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(logger.Nop())
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
}

func TestScheduler_RunNowReturnsJobError(t *testing.T) {
	s := New(logger.Nop())
	boom := errors.New("boom")
	assert.ErrorIs(t, s.RunNow(&countingJob{err: boom}), boom)
}

type fakePurger struct{ calls int }

func (p *fakePurger) PurgeExpired() int {
	p.calls++
	return 3
}

func TestCachePurgeJob(t *testing.T) {
	p := &fakePurger{}
	job := NewCachePurgeJob(p, logger.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "cache_purge", job.Name())
}

type staticSymbols []string

func (s staticSymbols) DistinctSymbols(context.Context) ([]string, error) { return s, nil }

type recordingLoader struct{ got []string }

func (l *recordingLoader) GetQuotes(_ context.Context, symbols []string) (map[string]marketdata.Quote, map[string]error) {
	l.got = symbols
	return map[string]marketdata.Quote{}, map[string]error{}
}

func TestQuoteWarmJob(t *testing.T) {
	loader := &recordingLoader{}
	job := NewQuoteWarmJob(staticSymbols{"AAPL", "MSFT"}, loader, time.Second, logger.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, []string{"AAPL", "MSFT"}, loader.got)
}

func TestQuoteWarmJob_NoSymbols(t *testing.T) {
	loader := &recordingLoader{}
	job := NewQuoteWarmJob(staticSymbols{}, loader, time.Second, logger.Nop())

	require.NoError(t, job.Run())
	assert.Nil(t, loader.got)
}
