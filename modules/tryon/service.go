package tryon

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/credit"
	"tryon-canvas-server/modules/common/model"
	guest "tryon-canvas-server/modules/common/redis"
	"tryon-canvas-server/modules/common/utils"
	"tryon-canvas-server/modules/compositor"
	"tryon-canvas-server/modules/faceswap"
	"tryon-canvas-server/modules/progress"
	"tryon-canvas-server/modules/prompt"
)

// refundTimeout - 요청 context 와 분리된 환불 제한 시간
const refundTimeout = 15 * time.Second

// Ledger - 크레딧 차감 / 환불 (credit.Ledger)
type Ledger interface {
	Debit(ctx context.Context, userID string, cost int) (int, error)
	Refund(ctx context.Context, userID string, cost int) (int, error)
	Balance(ctx context.Context, userID string) (int, bool, error)
}

// Compositor - 이미지 합성 (compositor.Compositor)
type Compositor interface {
	Compose(ctx context.Context, refs []model.ReferenceImage, mode compositor.Mode) (*model.CompositeImage, error)
}

// Synthesizer - 생성 프롬프트 작성 (prompt.Synthesizer)
type Synthesizer interface {
	Synthesize(ctx context.Context, userPrompt string, images prompt.Images, settings model.Settings, multiProduct bool) string
}

// Submitter - 생성 Job 제출 (generation.Orchestrator)
type Submitter interface {
	Submit(ctx context.Context, prompt string, images []string, aspectRatio string) (string, error)
}

// Waiter - Job 완료 대기 (poller.Poller)
type Waiter interface {
	PollUntilDone(ctx context.Context, jobID string) (*model.Job, error)
}

// FaceSwapper - 페이스스왑 (faceswap.Stage)
type FaceSwapper interface {
	Apply(ctx context.Context, faceURL, baseURL string) faceswap.Outcome
}

// Rehoster - 결과 이미지 재업로드 (StorageRehoster)
type Rehoster interface {
	Rehost(ctx context.Context, url string) (string, error)
}

// RecordStore - 결과 저장 (database.Client)
type RecordStore interface {
	InsertGenerationRecord(ctx context.Context, rec *model.GenerationRecord) (*model.GenerationRecord, error)
}

// GuestGate - 비회원 생성 횟수 제한 (redis.GuestLimiter)
type GuestGate interface {
	Check(ctx context.Context, sessionID string) (*guest.GuestUsage, bool, error)
	Increment(ctx context.Context, sessionID string) (*guest.GuestUsage, error)
}

// Publisher - 진행 상황 push (progress.Hub)
type Publisher interface {
	Publish(userID string, event progress.Event)
}

// Reporter - 5xx 에러 보고 (report.Sentry)
type Reporter interface {
	ReportWithTags(err error, tags map[string]string)
}

// Deps - 파이프라인 협력자 (Rehoster / Guest / Progress / Reporter 는 nil 가능)
type Deps struct {
	Ledger      Ledger
	Compositor  Compositor
	Synthesizer Synthesizer
	Submitter   Submitter
	Waiter      Waiter
	FaceSwap    FaceSwapper
	Records     RecordStore
	Rehoster    Rehoster
	Guest       GuestGate
	Progress    Publisher
	Reporter    Reporter
}

// Options - 비용 설정
type Options struct {
	// Cost - Flat 요청 비용
	Cost int
	// LegacyCost - 3-role 요청 비용
	LegacyCost int
}

// Service - try-on 생성 파이프라인
type Service struct {
	deps Deps
	opts Options
}

// NewService - Service 생성
func NewService(deps Deps, opts Options) *Service {
	if opts.Cost <= 0 {
		opts.Cost = 20
	}
	if opts.LegacyCost <= 0 {
		opts.LegacyCost = 10
	}
	return &Service{deps: deps, opts: opts}
}

// CostFor - 요청 형태별 비용
func (s *Service) CostFor(refs model.ReferenceSet) int {
	if refs.Kind == model.KindThreeRole {
		return s.opts.LegacyCost
	}
	return s.opts.Cost
}

// Balance - GET /credit/{userId}
func (s *Service) Balance(ctx context.Context, userID string) (int, bool, error) {
	return s.deps.Ledger.Balance(ctx, userID)
}

// run - 한 번의 파이프라인 실행 상태
type run struct {
	id        string
	req       *Request
	cost      int
	anonymous bool
	start     time.Time
}

// Generate - 차감 → 합성 → 프롬프트 → 제출 → 폴링 → 페이스스왑 → 재업로드 → 저장
// 차감 이후 실패하면 환불하고 원래 에러 반환, result.CurrentCredit 은 환불 후 잔액
func (s *Service) Generate(ctx context.Context, req *Request) (result *Result, err error) {
	r := &run{
		id:        uuid.New().String()[:8],
		req:       req,
		cost:      s.CostFor(req.References),
		anonymous: credit.IsAnonymous(req.UserID),
		start:     time.Now(),
	}
	result = &Result{OriginalPrompt: req.PromptText, RunID: r.id}

	log.Printf("🚀 [TryOn:%s] Starting generation: user=%s, kind=%s, images=%d, cost=%d",
		r.id, displayUser(req.UserID), kindName(req.References), len(req.References.Images()), r.cost)

	// 0. 비회원 사용 제한
	if r.anonymous {
		if err := s.checkGuest(ctx, r); err != nil {
			s.fail(r, result, err)
			return result, err
		}
	}

	// 1. 크레딧 차감
	balance, err := s.deps.Ledger.Debit(ctx, req.UserID, r.cost)
	if err != nil {
		// 잔액 부족일 때만 잔액이 유효
		if errors.Is(err, apperror.ErrInsufficientCredit) {
			result.CurrentCredit = balance
			result.creditKnown = true
		}
		s.fail(r, result, err)
		return result, err
	}
	result.CurrentCredit = balance
	result.creditKnown = true
	s.publish(r, progress.Event{Type: progress.EventDebited, CurrentCredit: intPtr(balance)})

	persisted := false
	defer func() {
		// 차감 이후 panic 도 실패로 처리해 환불
		if p := recover(); p != nil {
			log.Printf("❌ [TryOn:%s] Panic during generation: %v\n%s", r.id, p, debug.Stack())
			err = fmt.Errorf("generation panicked: %v", p)
		}
		if err == nil {
			return
		}
		// 저장 단계에 도달했으면 환불하지 않음
		if !persisted && !r.anonymous {
			result.CurrentCredit = s.refund(ctx, r, balance)
		}
		s.fail(r, result, err)
	}()

	// 2. 합성
	images, submitURLs, err := s.prepareImages(ctx, r)
	if err != nil {
		return result, err
	}
	s.publish(r, progress.Event{Type: progress.EventComposited, ImageURL: images.Composite.URI})

	// 3. 프롬프트 합성 (실패 시 원래 prompt)
	multiProduct := req.IsMultipleProducts || (req.References.Kind == model.KindFlat && len(req.References.Flat) > 2)
	enhanced := s.deps.Synthesizer.Synthesize(ctx, req.PromptText, images, req.Settings, multiProduct)
	result.EnhancedPrompt = enhanced
	s.publish(r, progress.Event{Type: progress.EventPromptReady})

	// 4. Job 제출
	jobID, err := s.deps.Submitter.Submit(ctx, enhanced, submitURLs, req.AspectRatio)
	if err != nil {
		return result, err
	}
	result.JobID = jobID
	s.publish(r, progress.Event{Type: progress.EventSubmitted, JobID: jobID})

	// 5. 폴링
	job, err := s.deps.Waiter.PollUntilDone(ctx, jobID)
	if err != nil {
		return result, err
	}
	output := job.FirstOutput()
	if output == "" {
		return result, apperror.New(apperror.ErrProviderFailed, "image generation finished without an output image")
	}
	s.publish(r, progress.Event{Type: progress.EventGenerated, ImageURL: output})

	// 6. 페이스스왑 (3-role 만, 실패해도 계속)
	if req.References.Kind == model.KindThreeRole && s.deps.FaceSwap != nil {
		outcome := s.deps.FaceSwap.Apply(ctx, submissionURI(req.References.ThreeRole.Face), output)
		output = outcome.URL
		if outcome.Err != nil {
			msg := fmt.Sprintf("Face swap failed, returning the original result: %s", apperror.Message(outcome.Err))
			result.FaceSwapError = &msg
		}
		s.publish(r, progress.Event{Type: progress.EventFaceSwapped, ImageURL: output, Error: derefString(result.FaceSwapError)})
	}

	// 7. 결과 재업로드 (실패 시 provider URL 유지)
	result.ImageURL = output
	if s.deps.Rehoster != nil {
		if hosted, herr := s.deps.Rehoster.Rehost(ctx, output); herr != nil {
			log.Printf("⚠️  [TryOn:%s] Re-hosting failed, using provider URL: %v", r.id, herr)
		} else {
			result.ImageURL = hosted
		}
	}

	// 8. 저장
	result.ProcessingTimeSeconds = time.Since(r.start).Seconds()
	persisted = true
	s.persist(ctx, r, result)

	if r.anonymous {
		s.countGuest(ctx, r)
	}

	s.publish(r, progress.Event{Type: progress.EventCompleted, ImageURL: result.ImageURL, CurrentCredit: intPtr(result.CurrentCredit)})
	log.Printf("✅ [TryOn:%s] Completed in %.1fs: %s", r.id, result.ProcessingTimeSeconds, result.ImageURL)
	return result, nil
}

// prepareImages - 합성 이미지 생성 후 프롬프트용 이미지와 제출용 URL 반환
func (s *Service) prepareImages(ctx context.Context, r *run) (prompt.Images, []string, error) {
	req := r.req
	images := prompt.Images{
		Location:  req.LocationImage,
		Pose:      req.PoseImage,
		HairStyle: req.HairStyleImage,
	}

	switch {
	case req.References.Kind == model.KindThreeRole:
		tr := req.References.ThreeRole
		composite, err := s.deps.Compositor.Compose(ctx, []model.ReferenceImage{tr.Face, tr.Model, tr.Product}, compositor.SideBySide)
		if err != nil {
			return images, nil, err
		}
		images.Composite = model.ReferenceImage{URI: composite.URL}
		images.CompositeLayout = "left to right: face reference, pose/body reference, garment reference"
		images.Model, images.Product, images.Face = tr.Model, tr.Product, tr.Face
		return images, []string{composite.URL}, nil

	case len(req.References.Flat) >= 2:
		flat := req.References.Flat
		stackInputs := flat
		layout := "top to bottom: pose/body reference, then the garment references"

		// 상품이 여러 개면 상품끼리 먼저 가로로 합성
		if req.IsMultipleProducts && len(flat) >= 3 {
			products, err := s.deps.Compositor.Compose(ctx, flat[1:], compositor.Products)
			if err != nil {
				return images, nil, err
			}
			stackInputs = []model.ReferenceImage{flat[0], {URI: products.URL}}
			layout = "top: pose/body reference, bottom: all garment references side by side"
		}

		composite, err := s.deps.Compositor.Compose(ctx, stackInputs, compositor.Stacked)
		if err != nil {
			return images, nil, err
		}
		images.Composite = model.ReferenceImage{URI: composite.URL}
		images.CompositeLayout = layout
		images.Model, images.Product = flat[0], flat[1]
		return images, []string{composite.URL}, nil

	default:
		single := req.References.Flat[0]
		images.Product = single
		return images, []string{submissionURI(single)}, nil
	}
}

func (s *Service) checkGuest(ctx context.Context, r *run) error {
	if s.deps.Guest == nil || r.req.SessionID == "" {
		return nil
	}
	usage, limitReached, err := s.deps.Guest.Check(ctx, r.req.SessionID)
	if err != nil {
		// Redis 장애는 생성을 막지 않음
		log.Printf("⚠️  [TryOn:%s] Guest limit check failed: %v", r.id, err)
		return nil
	}
	if limitReached {
		log.Printf("🚫 [TryOn:%s] Guest limit reached: %d/%d", r.id, usage.UsedCount, usage.MaxCount)
		return apperror.New(apperror.ErrGuestLimitReached,
			fmt.Sprintf("Guest users can generate up to %d images. Please sign in to continue.", usage.MaxCount))
	}
	return nil
}

func (s *Service) countGuest(ctx context.Context, r *run) {
	if s.deps.Guest == nil || r.req.SessionID == "" {
		return
	}
	if _, err := s.deps.Guest.Increment(ctx, r.req.SessionID); err != nil {
		log.Printf("⚠️  [TryOn:%s] Failed to record guest usage: %v", r.id, err)
	}
}

// refund - 요청 context 취소와 무관하게 환불, 새 잔액 반환 (실패 시 차감 후 잔액 유지)
func (s *Service) refund(ctx context.Context, r *run, debitedBalance int) int {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()

	balance, err := s.deps.Ledger.Refund(refundCtx, r.req.UserID, r.cost)
	if err != nil {
		log.Printf("❌ [TryOn:%s] Refund failed: %v", r.id, err)
		return debitedBalance
	}
	log.Printf("↩️  [TryOn:%s] Refunded %d credits (balance: %d)", r.id, r.cost, balance)
	return balance
}

func (s *Service) persist(ctx context.Context, r *run, result *Result) {
	if s.deps.Records == nil {
		return
	}
	rec := &model.GenerationRecord{
		UserID:                r.req.UserID,
		Prompt:                r.req.PromptText,
		EnhancedPrompt:        result.EnhancedPrompt,
		ResultImageURL:        result.ImageURL,
		ReferenceImages:       r.req.References.URIs(),
		Settings:              settingsJSON(r.req.Settings),
		AspectRatio:           r.req.AspectRatio,
		ProviderJobID:         result.JobID,
		ProcessingTimeSeconds: result.ProcessingTimeSeconds,
		FaceSwapError:         result.FaceSwapError,
	}
	if _, err := s.deps.Records.InsertGenerationRecord(context.WithoutCancel(ctx), rec); err != nil {
		log.Printf("⚠️  [TryOn:%s] Failed to save generation record: %v", r.id, err)
		s.report(r, fmt.Errorf("save generation record: %w", err))
	}
}

func (s *Service) fail(r *run, result *Result, err error) {
	log.Printf("❌ [TryOn:%s] Generation failed (%s): %v", r.id, apperror.Code(err), err)
	s.publish(r, progress.Event{
		Type:          progress.EventFailed,
		Error:         apperror.Code(err),
		Message:       apperror.Message(err),
		CurrentCredit: intPtr(result.CurrentCredit),
	})
	if apperror.HTTPStatus(err) >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		s.report(r, err)
	}
}

func (s *Service) report(r *run, err error) {
	if s.deps.Reporter == nil {
		return
	}
	s.deps.Reporter.ReportWithTags(err, map[string]string{
		"component":  "tryon",
		"run_id":     r.id,
		"error_code": apperror.Code(err),
	})
}

func (s *Service) publish(r *run, event progress.Event) {
	if s.deps.Progress == nil || r.anonymous {
		return
	}
	event.RunID = r.id
	s.deps.Progress.Publish(r.req.UserID, event)
}

// submissionURI - provider 에 넘길 URI (인라인 데이터는 data URI 로)
func submissionURI(ref model.ReferenceImage) string {
	if ref.URI != "" {
		return ref.URI
	}
	data, err := utils.DecodeBase64Image(ref.Data)
	if err != nil {
		return ""
	}
	return "data:" + utils.DetectMIMEType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func kindName(refs model.ReferenceSet) string {
	if refs.Kind == model.KindThreeRole {
		return "threeRole"
	}
	return "flat"
}

func displayUser(id string) string {
	if credit.IsAnonymous(id) {
		return "anonymous"
	}
	return id
}

func intPtr(v int) *int { return &v }

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
