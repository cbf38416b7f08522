package tryon

import (
	"encoding/json"
	"strings"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/model"
)

// GenerateRequest - POST /generate 요청 body
type GenerateRequest struct {
	PromptText      string                 `json:"promptText" validate:"max=4000"`
	ReferenceImages []model.ReferenceImage `json:"referenceImages" validate:"required,min=1,max=10"`
	Settings        map[string]interface{} `json:"settings"`
	UserID          string                 `json:"userId" validate:"max=128"`
	SessionID       string                 `json:"sessionId,omitempty" validate:"max=128"`
	Ratio           string                 `json:"ratio,omitempty" validate:"max=32"`
	AspectRatio     string                 `json:"aspectRatio,omitempty" validate:"max=32"`

	LocationImage  string `json:"locationImage,omitempty"`
	PoseImage      string `json:"poseImage,omitempty"`
	HairStyleImage string `json:"hairStyleImage,omitempty"`

	IsMultipleImages   bool `json:"isMultipleImages,omitempty"`
	IsMultipleProducts bool `json:"isMultipleProducts,omitempty"`
}

// Request - 검증이 끝난 파이프라인 입력 (이후 변경하지 않음)
type Request struct {
	PromptText  string
	References  model.ReferenceSet
	Settings    model.Settings
	AspectRatio string
	UserID      string
	// SessionID - 비회원 사용 횟수 키 (없으면 UserID)
	SessionID string

	LocationImage  model.ReferenceImage
	PoseImage      model.ReferenceImage
	HairStyleImage model.ReferenceImage

	IsMultipleImages   bool
	IsMultipleProducts bool
}

// ToRequest - body 를 파이프라인 입력으로 변환
func (g *GenerateRequest) ToRequest() (*Request, error) {
	refs, err := model.NewReferenceSet(g.ReferenceImages)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrValidation, err, err.Error())
	}

	ratio := g.Ratio
	if ratio == "" {
		ratio = g.AspectRatio
	}
	session := strings.TrimSpace(g.SessionID)
	if session == "" {
		session = strings.TrimSpace(g.UserID)
	}

	return &Request{
		PromptText:         g.PromptText,
		References:         refs,
		Settings:           model.SettingsFromMap(g.Settings),
		AspectRatio:        ratio,
		UserID:             strings.TrimSpace(g.UserID),
		SessionID:          session,
		LocationImage:      referenceFromString(g.LocationImage),
		PoseImage:          referenceFromString(g.PoseImage),
		HairStyleImage:     referenceFromString(g.HairStyleImage),
		IsMultipleImages:   g.IsMultipleImages,
		IsMultipleProducts: g.IsMultipleProducts,
	}, nil
}

// referenceFromString - URL / data URI 는 URI 로, 나머지는 인라인 base64 로 취급
func referenceFromString(s string) model.ReferenceImage {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.ReferenceImage{}
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "data:") {
		return model.ReferenceImage{URI: s}
	}
	return model.ReferenceImage{Data: s}
}

// Result - 파이프라인 결과 (실패 시에도 CurrentCredit 은 채워짐)
type Result struct {
	ImageURL              string  `json:"imageUrl"`
	OriginalPrompt        string  `json:"originalPrompt"`
	EnhancedPrompt        string  `json:"enhancedPrompt"`
	CurrentCredit         int     `json:"currentCredit"`
	FaceSwapError         *string `json:"faceSwapError,omitempty"`
	JobID                 string  `json:"jobId,omitempty"`
	RunID                 string  `json:"runId,omitempty"`
	ProcessingTimeSeconds float64 `json:"processingTimeSeconds"`

	// creditKnown - CurrentCredit 이 실제 잔액인지 (차감 전 실패면 false)
	creditKnown bool
}

// GenerateResponse - 응답 body
type GenerateResponse struct {
	Success       bool    `json:"success"`
	Result        *Result `json:"result,omitempty"`
	Error         string  `json:"error,omitempty"`
	ErrorType     string  `json:"error_type,omitempty"`
	Message       string  `json:"message,omitempty"`
	CurrentCredit *int    `json:"currentCredit,omitempty"`
}

// CreditResponse - GET /credit/{userId}
type CreditResponse struct {
	Credit      int  `json:"credit"`
	IsAnonymous bool `json:"isAnonymous"`
}

func settingsJSON(s model.Settings) json.RawMessage {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return data
}
