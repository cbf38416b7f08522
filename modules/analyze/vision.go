package analyze

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// analysisPrompt - 의류 분석 지시문 (JSON 배열 응답)
const analysisPrompt = `Identify every clothing item and accessory worn in this image.
Return ONLY a JSON array. Each element must be an object with two fields:
"type": the garment category in lowercase (e.g. "top", "bottom", "outer", "dress", "shoes", "bag", "accessory"),
"query": a short shopping search query describing the item's color, material and cut, without brand names.
Example: [{"type":"top","query":"white oversized cotton t-shirt"}]`

// Vision - 이미지 → 분석 텍스트
type Vision interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (string, error)
}

// GeminiVision - Gemini 비전 모델
type GeminiVision struct {
	client *genai.Client
	model  string
}

// NewGeminiVision - API 키로 클라이언트 생성
func NewGeminiVision(ctx context.Context, apiKey, model string) (*GeminiVision, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini vision client: %w", err)
	}
	log.Printf("✅ Gemini vision client initialized (model: %s)", model)
	return &GeminiVision{client: client, model: model}, nil
}

// Close - 클라이언트 종료
func (g *GeminiVision) Close() error {
	return g.client.Close()
}

// Analyze - 이미지 분석 (JSON 응답)
func (g *GeminiVision) Analyze(ctx context.Context, image []byte, mimeType string) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.2)

	log.Printf("📤 [Analyze] Sending %d bytes (%s) to %s", len(image), mimeType, g.model)
	resp, err := m.GenerateContent(ctx, genai.Blob{MIMEType: mimeType, Data: image}, genai.Text(analysisPrompt))
	if err != nil {
		return "", fmt.Errorf("Gemini vision call failed: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text in Gemini vision response")
	}
	return sb.String(), nil
}
