package faceswap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/model"
)

type fakeJobs struct {
	errs  []error
	calls int
	input map[string]interface{}
}

func (f *fakeJobs) CreatePrediction(ctx context.Context, ref string, input map[string]interface{}) (*model.Job, error) {
	i := f.calls
	f.calls++
	f.input = input
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return &model.Job{ID: "swap_job", Status: model.JobStarting}, nil
}

type pollResult struct {
	job *model.Job
	err error
}

type fakeWaiter struct {
	results []pollResult
	calls   int
}

func (f *fakeWaiter) PollUntilDone(ctx context.Context, jobID string) (*model.Job, error) {
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i].job, f.results[i].err
}

func succeeded(url string) pollResult {
	return pollResult{job: &model.Job{Status: model.JobSucceeded, Output: []string{url}}}
}

func newTestStage(jobs JobCreator, waiter JobWaiter) (*Stage, *[]time.Duration) {
	waits := &[]time.Duration{}
	s := New(jobs, waiter, Options{
		Model:      "cdingram/face-swap",
		MaxRetries: 3,
		RetryWait:  3 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		},
	})
	return s, waits
}

func TestApply_Success(t *testing.T) {
	jobs := &fakeJobs{}
	s, waits := newTestStage(jobs, &fakeWaiter{results: []pollResult{succeeded("https://x/swapped.png")}})

	out := s.Apply(context.Background(), "https://x/face.png", "https://x/base.png")

	assert.NoError(t, out.Err)
	assert.True(t, out.Swapped)
	assert.Equal(t, "https://x/swapped.png", out.URL)
	assert.Equal(t, "https://x/face.png", jobs.input["swap_image"])
	assert.Equal(t, "https://x/base.png", jobs.input["input_image"])
	assert.Empty(t, *waits)
}

func TestApply_NetworkExhaustionFallsBack(t *testing.T) {
	netErr := errors.New("read tcp 10.0.0.1:443: connection reset by peer")
	waiter := &fakeWaiter{results: []pollResult{{err: netErr}}}
	jobs := &fakeJobs{}
	s, waits := newTestStage(jobs, waiter)

	var out Outcome
	require.NotPanics(t, func() {
		out = s.Apply(context.Background(), "https://x/face.png", "https://x/base.png")
	})

	assert.Equal(t, "https://x/base.png", out.URL)
	assert.False(t, out.Swapped)
	require.Error(t, out.Err)
	assert.True(t, errors.Is(out.Err, apperror.ErrFaceSwapExhausted))
	assert.Equal(t, 3, jobs.calls)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, *waits)
}

func TestAttempt_SubmissionFailuresExhaust(t *testing.T) {
	boom := errors.New("replicate API error: 500")
	jobs := &fakeJobs{errs: []error{boom, boom, boom}}
	waiter := &fakeWaiter{results: []pollResult{succeeded("unused")}}
	s, _ := newTestStage(jobs, waiter)

	_, err := s.Attempt(context.Background(), "f", "b")
	assert.True(t, errors.Is(err, apperror.ErrFaceSwapExhausted))
	assert.Equal(t, 0, waiter.calls)
}

func TestAttempt_RecoversAfterRetry(t *testing.T) {
	jobs := &fakeJobs{errs: []error{errors.New("dial tcp: i/o timeout")}}
	waiter := &fakeWaiter{results: []pollResult{succeeded("https://x/swapped.png")}}
	s, waits := newTestStage(jobs, waiter)

	url, err := s.Attempt(context.Background(), "f", "b")
	require.NoError(t, err)
	assert.Equal(t, "https://x/swapped.png", url)
	assert.Equal(t, 2, jobs.calls)
	assert.Len(t, *waits, 1)
}

func TestAttempt_SensitiveIsTerminal(t *testing.T) {
	sensitive := apperror.New(apperror.ErrSensitiveContent, "flagged")
	waiter := &fakeWaiter{results: []pollResult{{err: sensitive}}}
	jobs := &fakeJobs{}
	s, waits := newTestStage(jobs, waiter)

	_, err := s.Attempt(context.Background(), "f", "b")
	assert.True(t, errors.Is(err, apperror.ErrSensitiveContent))
	assert.Equal(t, 1, jobs.calls)
	assert.Empty(t, *waits)
}

func TestAttempt_NonNetworkFailureRaisedAtLastAttempt(t *testing.T) {
	failed := apperror.New(apperror.ErrProviderFailed, "face not detected")
	waiter := &fakeWaiter{results: []pollResult{{err: failed}}}
	jobs := &fakeJobs{}
	s, _ := newTestStage(jobs, waiter)

	_, err := s.Attempt(context.Background(), "f", "b")
	assert.True(t, errors.Is(err, apperror.ErrProviderFailed))
	assert.False(t, errors.Is(err, apperror.ErrFaceSwapExhausted))
	assert.Equal(t, 3, jobs.calls)
}

func TestApply_NoFaceSkipsSwap(t *testing.T) {
	jobs := &fakeJobs{}
	s, _ := newTestStage(jobs, &fakeWaiter{results: []pollResult{succeeded("x")}})

	out := s.Apply(context.Background(), "", "https://x/base.png")
	assert.Equal(t, Outcome{URL: "https://x/base.png"}, out)
	assert.Equal(t, 0, jobs.calls)
}
