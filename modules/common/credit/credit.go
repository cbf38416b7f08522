package credit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/config"
)

// 트랜잭션 타입
const (
	TxDeduct = "DEDUCT"
	TxRefund = "REFUND"
)

// Store - 잔액 조회 + 조건부 갱신 (database.Client 가 구현)
type Store interface {
	FetchBalance(ctx context.Context, userID string) (int, error)
	CompareAndSwapBalance(ctx context.Context, userID string, previous, next int) (bool, error)
}

// TransactionRecorder - 크레딧 이력 기록 (선택)
type TransactionRecorder interface {
	RecordCreditTransaction(ctx context.Context, userID, txType string, amount, balanceAfter int) error
}

// Reporter - refund 실패 같은 조용한 에러 보고 (sentry)
type Reporter interface {
	Report(err error)
}

// Options - 충돌 정책
type Options struct {
	ConflictPolicy  string // config.ConflictPolicyFail | config.ConflictPolicyRetry
	ConflictRetries int
}

// Ledger - 사용자 크레딧 차감 / 환불
type Ledger struct {
	store    Store
	recorder TransactionRecorder
	reporter Reporter
	opts     Options
}

// NewLedger - Ledger 생성 (recorder / reporter 는 nil 가능)
func NewLedger(store Store, recorder TransactionRecorder, reporter Reporter, opts Options) *Ledger {
	if opts.ConflictPolicy == "" {
		opts.ConflictPolicy = config.ConflictPolicyFail
	}
	if opts.ConflictRetries < 1 {
		opts.ConflictRetries = 3
	}
	return &Ledger{store: store, recorder: recorder, reporter: reporter, opts: opts}
}

// IsAnonymous - 비회원 여부 (sentinel 또는 prefix)
func IsAnonymous(userID string) bool {
	id := strings.ToLower(strings.TrimSpace(userID))
	switch id {
	case "", "anonymous", "guest", "null", "undefined":
		return true
	}
	return strings.HasPrefix(id, "anon_") || strings.HasPrefix(id, "guest_")
}

// Balance - 현재 잔액 (비회원이면 0, anonymous=true)
func (l *Ledger) Balance(ctx context.Context, userID string) (int, bool, error) {
	if IsAnonymous(userID) {
		return 0, true, nil
	}
	balance, err := l.store.FetchBalance(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	return balance, false, nil
}

// Debit - cost 만큼 차감하고 새 잔액 반환
func (l *Ledger) Debit(ctx context.Context, userID string, cost int) (int, error) {
	if IsAnonymous(userID) {
		log.Printf("👤 [Credit] Anonymous user - skipping debit")
		return 0, nil
	}
	if cost <= 0 {
		return 0, fmt.Errorf("invalid credit cost: %d", cost)
	}

	attempts := 1
	if l.opts.ConflictPolicy == config.ConflictPolicyRetry {
		attempts = l.opts.ConflictRetries
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		current, err := l.store.FetchBalance(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to read balance: %w", err)
		}

		if current < cost {
			log.Printf("❌ [Credit] Insufficient credit: user=%s, balance=%d, cost=%d", userID, current, cost)
			return current, apperror.Wrap(apperror.ErrInsufficientCredit,
				fmt.Errorf("balance %d, cost %d", current, cost), "Not enough credit to generate an image.")
		}

		next := current - cost
		ok, err := l.store.CompareAndSwapBalance(ctx, userID, current, next)
		if err != nil {
			return 0, fmt.Errorf("failed to deduct credits: %w", err)
		}
		if ok {
			log.Printf("💰 [Credit] Debited: user=%s, %d → %d (-%d)", userID, current, next, cost)
			l.record(ctx, userID, TxDeduct, -cost, next)
			return next, nil
		}

		log.Printf("⚠️  [Credit] Balance changed during debit (attempt %d/%d): user=%s", attempt, attempts, userID)
	}

	return 0, apperror.New(apperror.ErrCreditConflict, "Credit balance changed during the request. Please try again.")
}

// Refund - cost 만큼 되돌림 (best-effort, 실패는 로그 + report)
// 반환 잔액은 실패 시 -1
func (l *Ledger) Refund(ctx context.Context, userID string, cost int) (int, error) {
	if IsAnonymous(userID) {
		return 0, nil
	}

	// refund 는 정확히 한 번 반영되어야 하므로 충돌 정책과 무관하게 재시도
	for attempt := 1; attempt <= l.opts.ConflictRetries; attempt++ {
		current, err := l.store.FetchBalance(ctx, userID)
		if err != nil {
			return -1, l.refundFailed(userID, cost, fmt.Errorf("failed to read balance: %w", err))
		}

		next := current + cost
		ok, err := l.store.CompareAndSwapBalance(ctx, userID, current, next)
		if err != nil {
			return -1, l.refundFailed(userID, cost, fmt.Errorf("failed to update balance: %w", err))
		}
		if ok {
			log.Printf("↩️  [Credit] Refunded: user=%s, %d → %d (+%d)", userID, current, next, cost)
			l.record(ctx, userID, TxRefund, cost, next)
			return next, nil
		}
		log.Printf("⚠️  [Credit] Balance changed during refund (attempt %d/%d): user=%s", attempt, l.opts.ConflictRetries, userID)
	}

	return -1, l.refundFailed(userID, cost, errors.New("balance kept changing"))
}

func (l *Ledger) refundFailed(userID string, cost int, err error) error {
	err = fmt.Errorf("refund of %d credits for user %s failed: %w", cost, userID, err)
	log.Printf("❌ [Credit] %v", err)
	if l.reporter != nil {
		l.reporter.Report(err)
	}
	return err
}

func (l *Ledger) record(ctx context.Context, userID, txType string, amount, balanceAfter int) {
	if l.recorder == nil {
		return
	}
	if err := l.recorder.RecordCreditTransaction(ctx, userID, txType, amount, balanceAfter); err != nil {
		log.Printf("⚠️  [Credit] Failed to record %s transaction for %s: %v", txType, userID, err)
	}
}
