package model

import (
	"encoding/json"
	"time"
)

// ReferenceImage - 요청에 포함된 참조 이미지
type ReferenceImage struct {
	URI  string `json:"uri"`
	Tag  string `json:"tag,omitempty"`
	Data string `json:"data,omitempty"` // base64 인라인 바이트 (선택)
}

// HasSource - URI 또는 인라인 데이터가 있는지
func (r ReferenceImage) HasSource() bool {
	return r.URI != "" || r.Data != ""
}

// CompositeImage - 합성된 이미지와 storage URL
type CompositeImage struct {
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Sources int    `json:"sources"` // 실제로 합성에 사용된 이미지 수
}

// JobStatus - 외부 Job 상태
type JobStatus string

const (
	JobStarting   JobStatus = "starting"
	JobProcessing JobStatus = "processing"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
	JobCanceled   JobStatus = "canceled"
)

// Terminal - succeeded | failed | canceled
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCanceled
}

// Job - 외부 provider 가 관리하는 비동기 작업 (조회만 함)
type Job struct {
	ID       string    `json:"id"`
	Provider string    `json:"provider"`
	Status   JobStatus `json:"status"`
	Output   []string  `json:"output,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// FirstOutput - 첫번째 결과 URL
func (j *Job) FirstOutput() string {
	if j == nil || len(j.Output) == 0 {
		return ""
	}
	return j.Output[0]
}

// CreditAccount - 사용자 크레딧 잔액
type CreditAccount struct {
	UserID  string `json:"user_id"`
	Balance int    `json:"credit"`
}

// GenerationRecord - generation_results 테이블 구조 (append-only)
type GenerationRecord struct {
	ID                    int64           `json:"id,omitempty"`
	UserID                string          `json:"user_id"`
	Prompt                string          `json:"prompt"`
	EnhancedPrompt        string          `json:"enhanced_prompt"`
	ResultImageURL        string          `json:"result_image_url"`
	ReferenceImages       []string        `json:"reference_images"`
	Settings              json.RawMessage `json:"settings,omitempty"`
	AspectRatio           string          `json:"aspect_ratio"`
	ProviderJobID         string          `json:"provider_job_id"`
	ProcessingTimeSeconds float64         `json:"processing_time_seconds"`
	FaceSwapError         *string         `json:"face_swap_error"`
	CreatedAt             *time.Time      `json:"created_at,omitempty"`
	UpdatedAt             *time.Time      `json:"updated_at,omitempty"`
}

// Explore - reference_explores 테이블 구조
type Explore struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	ImageURL  string          `json:"image_url"`
	Prompt    string          `json:"prompt"`
	Settings  json.RawMessage `json:"settings,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Username  string          `json:"username"`
	AvatarURL string          `json:"avatar_url"`
}

// Profile - profiles 테이블 (username / avatar)
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}
