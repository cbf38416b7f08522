package prompt

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultTemperature float32 = 0.7

// GeminiModel - google.golang.org/genai 기반 Model 구현
type GeminiModel struct {
	client *genai.Client
	name   string
}

// NewGeminiModel - Gemini 클라이언트 생성
func NewGeminiModel(ctx context.Context, apiKey, modelName string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiModel{client: client, name: modelName}, nil
}

// Generate - 이미지 + 지시문으로 텍스트 생성
func (g *GeminiModel) Generate(ctx context.Context, instruction string, images []InlineImage) (string, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(instruction))

	result, err := g.client.Models.GenerateContent(ctx, g.name, []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(defaultTemperature),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: "You write prompts for an image-generation model. Reply with the prompt only."},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked the prompt: %s %s", result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage)
	}

	return result.Text(), nil
}
