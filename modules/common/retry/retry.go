package retry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// RetryableError - 재시도 가능한 실패
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// TerminalError - 재시도하면 안 되는 실패
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string { return e.Err.Error() }
func (e *TerminalError) Unwrap() error { return e.Err }

// Retryable - err 를 재시도 가능으로 표시
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Terminal - err 를 재시도 불가로 표시
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

// IsRetryable - RetryableError 태그 여부
func IsRetryable(err error) bool {
	var r *RetryableError
	return errors.As(err, &r)
}

// IsTerminal - TerminalError 태그 여부
func IsTerminal(err error) bool {
	var t *TerminalError
	return errors.As(err, &t)
}

// untag - 태그를 벗긴 원래 에러
func untag(err error) error {
	var r *RetryableError
	if errors.As(err, &r) {
		return r.Err
	}
	var t *TerminalError
	if errors.As(err, &t) {
		return t.Err
	}
	return err
}

// ExhaustedError - 시도 횟수 소진
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("exhausted %d attempts, last error: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Backoff - attempt 번째 실패 후 대기 시간 (attempt 는 1부터)
type Backoff func(attempt int) time.Duration

// Exponential - base, base*2, base*4 ...
func Exponential(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// Fixed - 매번 같은 대기
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Policy - 재시도 정책
type Policy struct {
	Name     string
	Attempts int
	Backoff  Backoff
	// RetryUntagged - 태그 없는 에러도 재시도할지 여부
	RetryUntagged bool
	// Sleep - 테스트에서 대기를 대체
	Sleep func(ctx context.Context, d time.Duration) error
}

// SleepContext - ctx 취소를 존중하는 sleep
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do - 제한된 횟수만큼 재시도하며 fn 실행
// Terminal 이면 즉시 원래 에러 반환, 소진 시 *ExhaustedError 반환
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	name := p.Name
	if name == "" {
		name = "Retry"
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				log.Printf("✅ [%s] Succeeded on attempt %d/%d", name, attempt, attempts)
			}
			return nil
		}

		if IsTerminal(err) {
			log.Printf("❌ [%s] Terminal error on attempt %d/%d: %v", name, attempt, attempts, err)
			return untag(err)
		}
		if !IsRetryable(err) && !p.RetryUntagged {
			return err
		}

		lastErr = untag(err)
		log.Printf("⚠️  [%s] Attempt %d/%d failed: %v", name, attempt, attempts, lastErr)

		if attempt == attempts {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		log.Printf("   ⏳ Waiting %s before retry...", wait)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	return &ExhaustedError{Attempts: attempts, Last: lastErr}
}
