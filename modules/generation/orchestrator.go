package generation

import (
	"context"
	"log"
	"strings"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/model"
)

// JobCreator - 비동기 이미지 생성 Job API
type JobCreator interface {
	CreatePrediction(ctx context.Context, ref string, input map[string]interface{}) (*model.Job, error)
}

// Orchestrator - 프롬프트 + 이미지를 이미지 생성 provider 에 제출
type Orchestrator struct {
	jobs         JobCreator
	model        string
	outputFormat string
}

// NewOrchestrator - modelRef 는 "owner/name" 또는 버전
func NewOrchestrator(jobs JobCreator, modelRef string) *Orchestrator {
	return &Orchestrator{jobs: jobs, model: modelRef, outputFormat: "png"}
}

// Submit - Job 제출 후 Job ID 반환 (재시도 없음)
func (o *Orchestrator) Submit(ctx context.Context, prompt string, images []string, aspectRatio string) (string, error) {
	ratio := NormalizeRatio(aspectRatio)
	input := map[string]interface{}{
		"prompt":        prompt,
		"aspect_ratio":  ratio,
		"output_format": o.outputFormat,
	}

	urls := make([]string, 0, len(images))
	for _, u := range images {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	switch len(urls) {
	case 0:
	case 1:
		input["input_image"] = urls[0]
	default:
		input["input_image"] = urls[0]
		input["input_images"] = urls
	}

	log.Printf("🎨 [Generation] Submitting job (model: %s, ratio: %s -> %s, images: %d)", o.model, aspectRatio, ratio, len(urls))

	job, err := o.jobs.CreatePrediction(ctx, o.model, input)
	if err != nil {
		return "", apperror.Wrap(apperror.ErrJobSubmissionFailed, err, "failed to submit generation job")
	}
	if job == nil || job.ID == "" {
		return "", apperror.New(apperror.ErrJobSubmissionFailed, "provider response did not contain a job id")
	}

	log.Printf("✅ [Generation] Job submitted: %s", job.ID)
	return job.ID, nil
}
