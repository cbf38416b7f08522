package prompt

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"tryon-canvas-server/modules/common/model"
	"tryon-canvas-server/modules/common/retry"
	"tryon-canvas-server/modules/common/utils"
)

// MaxAttempts - 언어 모델 호출 최대 시도 횟수
const MaxAttempts = 3

// InlineImage - 모델에 직접 첨부하는 이미지
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// Model - 생성형 언어 모델 (Gemini)
type Model interface {
	Generate(ctx context.Context, instruction string, images []InlineImage) (string, error)
}

// ImageSource - 참조 이미지 바이트 읽기
type ImageSource interface {
	FetchReference(ctx context.Context, ref model.ReferenceImage) ([]byte, error)
}

// Synthesizer - 사용자 프롬프트 + 설정 + 참조 이미지로 생성 프롬프트 작성
type Synthesizer struct {
	model    Model
	source   ImageSource
	advisory ContentAdvisory
	backoff  retry.Backoff
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewSynthesizer - advisory 가 nil 이면 LexicalAdvisory 사용
func NewSynthesizer(m Model, source ImageSource, advisory ContentAdvisory) *Synthesizer {
	if advisory == nil {
		advisory = NewLexicalAdvisory()
	}
	return &Synthesizer{
		model:    m,
		source:   source,
		advisory: advisory,
		backoff:  retry.Exponential(time.Second),
		sleep:    retry.SleepContext,
	}
}

var errEmptyResponse = errors.New("empty response from language model")

// Synthesize - 실패해도 에러 없이 원래 prompt 반환
func (s *Synthesizer) Synthesize(ctx context.Context, userPrompt string, images Images, settings model.Settings, multiProduct bool) string {
	instruction := BuildInstruction(userPrompt, images, settings, multiProduct)
	inline := s.loadImages(ctx, images)

	log.Printf("📝 [Prompt] Synthesizing prompt (%d images, %d settings, multiProduct=%v)",
		len(inline), len(settings.Entries()), multiProduct)

	var result string
	err := retry.Do(ctx, retry.Policy{
		Name:          "Prompt",
		Attempts:      MaxAttempts,
		Backoff:       s.backoff,
		RetryUntagged: true,
		Sleep:         s.sleep,
	}, func(ctx context.Context, attempt int) error {
		text, err := s.model.Generate(ctx, instruction, inline)
		if err != nil {
			return retry.Retryable(err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return retry.Retryable(errEmptyResponse)
		}
		result = text
		return nil
	})
	if err != nil {
		log.Printf("⚠️  [Prompt] Falling back to original prompt: %v", err)
		return userPrompt
	}

	logAdvisory(s.advisory, result)
	log.Printf("✅ [Prompt] Synthesized prompt: %s", truncate(result, 120))
	return result
}

// loadImages - 첨부 이미지 다운로드 (실패한 이미지는 생략)
func (s *Synthesizer) loadImages(ctx context.Context, images Images) []InlineImage {
	if s.source == nil {
		return nil
	}
	var out []InlineImage
	for _, a := range images.attachments() {
		data, err := s.source.FetchReference(ctx, a.image)
		if err != nil {
			log.Printf("⚠️  [Prompt] Skipping %s image: %v", a.role, err)
			continue
		}
		out = append(out, InlineImage{MIMEType: utils.DetectMIMEType(data), Data: data})
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
