package faceswap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/model"
	"tryon-canvas-server/modules/common/retry"
)

// 기본 재시도 설정
const (
	DefaultMaxRetries = 3
	DefaultRetryWait  = 3 * time.Second
)

// JobCreator - 페이스스왑 Job 제출
type JobCreator interface {
	CreatePrediction(ctx context.Context, ref string, input map[string]interface{}) (*model.Job, error)
}

// JobWaiter - Job 완료 대기 (poller.Poller)
type JobWaiter interface {
	PollUntilDone(ctx context.Context, jobID string) (*model.Job, error)
}

// Options - 페이스스왑 설정
type Options struct {
	// Model - Replicate 모델 ("owner/name" 또는 "owner/name:version")
	Model      string
	MaxRetries int
	RetryWait  time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error
}

// Stage - 생성 결과에 참조 얼굴을 합성
type Stage struct {
	jobs       JobCreator
	waiter     JobWaiter
	model      string
	maxRetries int
	retryWait  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// Outcome - Apply 결과 (실패해도 URL 은 항상 채워짐)
type Outcome struct {
	URL     string
	Swapped bool
	Err     error
}

// New - Stage 생성
func New(jobs JobCreator, waiter JobWaiter, opts Options) *Stage {
	s := &Stage{
		jobs:       jobs,
		waiter:     waiter,
		model:      opts.Model,
		maxRetries: opts.MaxRetries,
		retryWait:  opts.RetryWait,
		sleep:      opts.Sleep,
	}
	if s.maxRetries <= 0 {
		s.maxRetries = DefaultMaxRetries
	}
	if s.retryWait <= 0 {
		s.retryWait = DefaultRetryWait
	}
	if s.sleep == nil {
		s.sleep = retry.SleepContext
	}
	return s
}

// Attempt - 페이스스왑 실행 후 결과 URL 반환
// 제출 실패 / 네트워크 에러는 재시도 후 소진 시 ErrFaceSwapExhausted
// 민감 콘텐츠는 즉시 중단, 그 외 실패는 재시도 후 마지막 에러 반환
func (s *Stage) Attempt(ctx context.Context, faceURL, baseURL string) (string, error) {
	var output string
	err := retry.Do(ctx, retry.Policy{
		Name:     "FaceSwap",
		Attempts: s.maxRetries,
		Backoff:  retry.Fixed(s.retryWait),
		Sleep:    s.sleep,
	}, func(ctx context.Context, attempt int) error {
		log.Printf("🔄 [FaceSwap] Attempt %d/%d", attempt, s.maxRetries)

		job, err := s.jobs.CreatePrediction(ctx, s.model, map[string]interface{}{
			"swap_image":  faceURL,
			"input_image": baseURL,
		})
		if err != nil {
			return retry.Retryable(apperror.Wrap(apperror.ErrJobSubmissionFailed, err, "failed to submit face swap job"))
		}
		if job == nil || job.ID == "" {
			return retry.Retryable(apperror.New(apperror.ErrJobSubmissionFailed, "face swap response did not contain a job id"))
		}

		result, err := s.waiter.PollUntilDone(ctx, job.ID)
		if err != nil {
			if errors.Is(err, apperror.ErrSensitiveContent) {
				return retry.Terminal(err)
			}
			return retry.Retryable(err)
		}
		if result.FirstOutput() == "" {
			return retry.Retryable(apperror.New(apperror.ErrProviderFailed, "face swap succeeded without output"))
		}
		output = result.FirstOutput()
		return nil
	})
	if err == nil {
		return output, nil
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		last := exhausted.Last
		if errors.Is(last, apperror.ErrJobSubmissionFailed) || retry.IsNetworkError(last) {
			return "", apperror.Wrap(apperror.ErrFaceSwapExhausted, last,
				fmt.Sprintf("face swap failed after %d attempts", exhausted.Attempts))
		}
		return "", last
	}
	return "", err
}

// Apply - 실패해도 에러를 올리지 않고 원본 URL 과 에러를 함께 반환
func (s *Stage) Apply(ctx context.Context, faceURL, baseURL string) Outcome {
	if faceURL == "" {
		return Outcome{URL: baseURL}
	}

	url, err := s.Attempt(ctx, faceURL, baseURL)
	if err != nil {
		log.Printf("⚠️  [FaceSwap] Falling back to original output: %v", err)
		return Outcome{URL: baseURL, Err: err}
	}

	log.Printf("✅ [FaceSwap] Face swap completed")
	return Outcome{URL: url, Swapped: true}
}
