package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// 네트워크 계열 에러 문자열 시그니처
var networkSignatures = []string{
	"connection reset",
	"econnreset",
	"connection refused",
	"no such host",
	"enotfound",
	"eai_again",
	"dns",
	"timeout",
	"timed out",
	"etimedout",
	"max retries exceeded",
	"network unreachable",
	"network is unreachable",
	"enetunreach",
	"broken pipe",
	"unexpected eof",
}

// IsNetworkError - 재시도할 만한 네트워크 계열 에러인지 확인
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range networkSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// IsRateLimit - 429 Rate Limit 에러인지 확인
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota")
}
