package report

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"tryon-canvas-server/modules/common/config"
)

// Init - SENTRY_DSN 이 있으면 Sentry 초기화, 반환값은 종료 시 호출할 flush
func Init(cfg *config.Config) (enabled bool, flush func()) {
	if cfg.SentryDSN == "" {
		log.Printf("⚠️  SENTRY_DSN not set - error reporting disabled")
		return false, func() {}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Env,
		Release:          "tryon-canvas-server@1.0.0",
		AttachStacktrace: true,
		TracesSampleRate: 0.1,
	})
	if err != nil {
		log.Printf("❌ sentry.Init: %v", err)
		return false, func() {}
	}

	log.Printf("✅ Sentry initialized (env: %s)", cfg.Env)
	return true, func() { sentry.Flush(2 * time.Second) }
}

// Sentry - credit.Reporter / tryon.Reporter 구현
type Sentry struct{}

// Report - 에러를 Sentry 로 전송 (미초기화 상태면 no-op)
func (Sentry) Report(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// ReportWithTags - 태그를 붙여 전송
func (Sentry) ReportWithTags(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
