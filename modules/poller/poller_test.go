package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/model"
	"tryon-canvas-server/modules/common/retry"
)

type step struct {
	job *model.Job
	err error
}

type scriptedFetcher struct {
	steps []step
	calls int
}

func (f *scriptedFetcher) GetPrediction(ctx context.Context, id string) (*model.Job, error) {
	i := f.calls
	f.calls++
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	s := f.steps[i]
	if s.job != nil {
		job := *s.job
		job.ID = id
		return &job, s.err
	}
	return nil, s.err
}

func newTestPoller(f JobFetcher, maxAttempts int) (*Poller, *[]time.Duration) {
	waits := &[]time.Duration{}
	p := New(f, Options{
		MaxAttempts: maxAttempts,
		Interval:    2 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		},
	})
	return p, waits
}

func status(s model.JobStatus) step { return step{job: &model.Job{Status: s}} }

func TestPollUntilDone_ImmediateSuccessNoSleep(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{job: &model.Job{Status: model.JobSucceeded, Output: []string{"https://x/out.png"}}}}}
	p, waits := newTestPoller(f, 60)

	job, err := p.PollUntilDone(context.Background(), "job_1")
	require.NoError(t, err)

	assert.Equal(t, model.JobSucceeded, job.Status)
	assert.Equal(t, "https://x/out.png", job.FirstOutput())
	assert.Equal(t, 1, f.calls)
	assert.Empty(t, *waits)
}

func TestPollUntilDone_WaitsWhileProcessing(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		status(model.JobStarting),
		status(model.JobProcessing),
		{err: errors.New("connection reset by peer")},
		status(model.JobSucceeded),
	}}
	p, waits := newTestPoller(f, 60)

	job, err := p.PollUntilDone(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, model.JobSucceeded, job.Status)
	assert.Equal(t, 4, f.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, *waits)
}

func TestPollUntilDone_SensitiveIsImmediate(t *testing.T) {
	for _, msg := range []string{
		"Output was flagged as sensitive (E005)",
		"FLAGGED AS SENSITIVE",
		"error code e005",
	} {
		t.Run(msg, func(t *testing.T) {
			f := &scriptedFetcher{steps: []step{
				status(model.JobProcessing),
				{job: &model.Job{Status: model.JobFailed, Error: msg}},
				status(model.JobSucceeded),
			}}
			p, _ := newTestPoller(f, 60)

			_, err := p.PollUntilDone(context.Background(), "job_1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrSensitiveContent))
			assert.False(t, errors.Is(err, apperror.ErrProviderFailed))
			assert.Equal(t, 2, f.calls, "must not keep polling after a sensitive failure")
		})
	}
}

func TestPollUntilDone_FailedAndCanceled(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{job: &model.Job{Status: model.JobFailed, Error: "CUDA out of memory"}}}}
	p, _ := newTestPoller(f, 60)
	_, err := p.PollUntilDone(context.Background(), "job_1")
	assert.True(t, errors.Is(err, apperror.ErrProviderFailed))

	f = &scriptedFetcher{steps: []step{status(model.JobCanceled)}}
	p, _ = newTestPoller(f, 60)
	_, err = p.PollUntilDone(context.Background(), "job_1")
	assert.True(t, errors.Is(err, apperror.ErrProviderCanceled))
}

func TestPollUntilDone_Timeout(t *testing.T) {
	t.Run("still processing", func(t *testing.T) {
		f := &scriptedFetcher{steps: []step{status(model.JobProcessing)}}
		p, waits := newTestPoller(f, 5)

		_, err := p.PollUntilDone(context.Background(), "job_1")
		assert.True(t, errors.Is(err, apperror.ErrPollTimeout))
		assert.Equal(t, 5, f.calls)
		assert.Len(t, *waits, 4)
	})

	t.Run("transport errors share the budget", func(t *testing.T) {
		netErr := errors.New("dial tcp: lookup api.replicate.com: no such host")
		f := &scriptedFetcher{steps: []step{{err: netErr}}}
		p, _ := newTestPoller(f, 3)

		_, err := p.PollUntilDone(context.Background(), "job_1")
		assert.True(t, errors.Is(err, apperror.ErrPollTimeout))
		assert.True(t, retry.IsNetworkError(err))
		assert.Equal(t, 3, f.calls)
	})
}

func TestPollUntilDone_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &scriptedFetcher{steps: []step{status(model.JobProcessing)}}
	p := New(f, Options{MaxAttempts: 10, Interval: time.Hour})
	cancel()

	_, err := p.PollUntilDone(ctx, "job_1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.calls)
}
