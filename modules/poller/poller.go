package poller

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/model"
	"tryon-canvas-server/modules/common/retry"
)

// 기본값: 60회 x 2초
const (
	DefaultMaxAttempts = 60
	DefaultInterval    = 2 * time.Second
)

// sensitiveSignatures - 콘텐츠 검열로 실패한 Job 의 에러 문구
var sensitiveSignatures = []string{
	"flagged as sensitive",
	"e005",
}

// JobFetcher - Job 상태 조회
type JobFetcher interface {
	GetPrediction(ctx context.Context, id string) (*model.Job, error)
}

// Options - 폴링 설정
type Options struct {
	MaxAttempts int
	Interval    time.Duration
	// Sleep - 테스트에서 대기를 대체
	Sleep func(ctx context.Context, d time.Duration) error
}

// Poller - Job 이 종료 상태가 될 때까지 조회
type Poller struct {
	jobs        JobFetcher
	maxAttempts int
	interval    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// New - Poller 생성
func New(jobs JobFetcher, opts Options) *Poller {
	p := &Poller{
		jobs:        jobs,
		maxAttempts: opts.MaxAttempts,
		interval:    opts.Interval,
		sleep:       opts.Sleep,
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = DefaultMaxAttempts
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.sleep == nil {
		p.sleep = retry.SleepContext
	}
	return p
}

// IsSensitive - 검열 실패 문구 포함 여부 (대소문자 무시)
func IsSensitive(message string) bool {
	lower := strings.ToLower(message)
	for _, sig := range sensitiveSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// PollUntilDone - succeeded 면 Job 반환, failed/canceled/시간초과는 에러
// 조회 실패도 같은 시도 횟수를 소모
func (p *Poller) PollUntilDone(ctx context.Context, jobID string) (*model.Job, error) {
	log.Printf("⏳ [Poller] Waiting for job %s (max %d attempts, every %s)", jobID, p.maxAttempts, p.interval)

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		job, err := p.jobs.GetPrediction(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			log.Printf("⚠️  [Poller] Attempt %d/%d: failed to get status: %v", attempt, p.maxAttempts, err)
		} else {
			switch job.Status {
			case model.JobSucceeded:
				log.Printf("✅ [Poller] Job %s succeeded (attempt %d)", jobID, attempt)
				return job, nil
			case model.JobFailed:
				if IsSensitive(job.Error) {
					log.Printf("🚫 [Poller] Job %s flagged as sensitive content: %s", jobID, job.Error)
					return job, apperror.Wrap(apperror.ErrSensitiveContent, fmt.Errorf("%s", job.Error),
						"The image was flagged as sensitive content. Please try a different image or prompt.")
				}
				log.Printf("❌ [Poller] Job %s failed: %s", jobID, job.Error)
				return job, apperror.Wrap(apperror.ErrProviderFailed, fmt.Errorf("%s", job.Error), "image generation failed")
			case model.JobCanceled:
				log.Printf("❌ [Poller] Job %s canceled", jobID)
				return job, apperror.New(apperror.ErrProviderCanceled, "image generation was canceled")
			case model.JobStarting, model.JobProcessing:
				// 계속 대기
			default:
				log.Printf("⚠️  [Poller] Unknown status for job %s: %s", jobID, job.Status)
			}
			lastErr = nil
		}

		if attempt == p.maxAttempts {
			break
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, apperror.Wrap(apperror.ErrPollTimeout, lastErr,
			fmt.Sprintf("timeout waiting for job %s after %d attempts", jobID, p.maxAttempts))
	}
	return nil, apperror.New(apperror.ErrPollTimeout,
		fmt.Sprintf("timeout waiting for job %s after %d attempts", jobID, p.maxAttempts))
}
