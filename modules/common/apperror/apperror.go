package apperror

import (
	"errors"
	"net/http"
)

// 에러 종류 - errors.Is 로 분기
var (
	ErrValidation           = errors.New("validation error")
	ErrInsufficientCredit   = errors.New("insufficient credit")
	ErrCreditConflict       = errors.New("credit balance changed concurrently")
	ErrGuestLimitReached    = errors.New("guest generation limit reached")
	ErrNotFound             = errors.New("not found")
	ErrAllImagesUnavailable = errors.New("all images unavailable")
	ErrJobSubmissionFailed  = errors.New("job submission failed")
	ErrProviderFailed       = errors.New("provider failed")
	ErrProviderCanceled     = errors.New("provider canceled")
	ErrPollTimeout          = errors.New("poll timeout")
	ErrSensitiveContent     = errors.New("sensitive content")
	ErrFaceSwapExhausted    = errors.New("face swap exhausted")
)

// Error codes (클라이언트 분기용)
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInsufficientCredit = "INSUFFICIENT_CREDIT"
	CodeCreditConflict     = "CREDIT_CONFLICT"
	CodeGuestLimitReached  = "GUEST_LIMIT_REACHED"
	CodeNotFound           = "NOT_FOUND"
	CodeImagesUnavailable  = "IMAGES_UNAVAILABLE"
	CodeSubmissionFailed   = "JOB_SUBMISSION_FAILED"
	CodeProviderFailed     = "PROVIDER_FAILED"
	CodeProviderCanceled   = "PROVIDER_CANCELED"
	CodePollTimeout        = "POLL_TIMEOUT"
	CodeSensitiveContent   = "SENSITIVE_CONTENT"
	CodeFaceSwapExhausted  = "FACE_SWAP_EXHAUSTED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error - 종류(Kind) + 사용자 메시지 + 원인
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap - Kind 와 원인 둘 다 errors.Is 대상
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New - 새 에러 생성
func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap - 원인 에러를 감싸서 Kind 부여
func Wrap(kind error, err error, message string) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation - 400 에러 단축 생성
func Validation(message string) error {
	return New(ErrValidation, message)
}

// Message - 사용자에게 보여줄 메시지
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	switch {
	case errors.Is(err, ErrSensitiveContent):
		return "The request was flagged as sensitive content. Please try different images or prompt."
	case errors.Is(err, ErrInsufficientCredit):
		return "Not enough credit to generate an image."
	case errors.Is(err, ErrGuestLimitReached):
		return "Guest generation limit reached. Please sign in to continue."
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

type mapping struct {
	kind   error
	code   string
	status int
}

var mappings = []mapping{
	{ErrValidation, CodeValidation, http.StatusBadRequest},
	{ErrInsufficientCredit, CodeInsufficientCredit, http.StatusPaymentRequired},
	{ErrCreditConflict, CodeCreditConflict, http.StatusConflict},
	{ErrGuestLimitReached, CodeGuestLimitReached, http.StatusTooManyRequests},
	{ErrNotFound, CodeNotFound, http.StatusNotFound},
	// sensitive content 는 클라이언트 UX 를 위해 200 + success:false
	{ErrSensitiveContent, CodeSensitiveContent, http.StatusOK},
	{ErrAllImagesUnavailable, CodeImagesUnavailable, http.StatusInternalServerError},
	{ErrJobSubmissionFailed, CodeSubmissionFailed, http.StatusInternalServerError},
	{ErrProviderFailed, CodeProviderFailed, http.StatusInternalServerError},
	{ErrProviderCanceled, CodeProviderCanceled, http.StatusInternalServerError},
	{ErrPollTimeout, CodePollTimeout, http.StatusInternalServerError},
	{ErrFaceSwapExhausted, CodeFaceSwapExhausted, http.StatusInternalServerError},
}

// Code - 머신 판독용 에러 코드
func Code(err error) string {
	for _, m := range mappings {
		if errors.Is(err, m.kind) {
			return m.code
		}
	}
	return CodeInternal
}

// HTTPStatus - 에러 종류별 HTTP 상태 코드
func HTTPStatus(err error) int {
	for _, m := range mappings {
		if errors.Is(err, m.kind) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
