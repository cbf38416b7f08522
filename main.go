package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"tryon-canvas-server/modules/analyze"
	"tryon-canvas-server/modules/common/config"
	"tryon-canvas-server/modules/common/credit"
	"tryon-canvas-server/modules/common/database"
	guest "tryon-canvas-server/modules/common/redis"
	"tryon-canvas-server/modules/common/report"
	"tryon-canvas-server/modules/common/storage"
	"tryon-canvas-server/modules/common/utils"
	"tryon-canvas-server/modules/compositor"
	"tryon-canvas-server/modules/explore"
	"tryon-canvas-server/modules/faceswap"
	"tryon-canvas-server/modules/generation"
	"tryon-canvas-server/modules/poller"
	"tryon-canvas-server/modules/progress"
	"tryon-canvas-server/modules/prompt"
	"tryon-canvas-server/modules/reference"
	"tryon-canvas-server/modules/replicate"
	"tryon-canvas-server/modules/results"
	"tryon-canvas-server/modules/tryon"
)

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "tryon-canvas-server",
	})
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	_, flush := report.Init(cfg)
	defer flush()

	ctx := context.Background()

	// 외부 클라이언트
	db, err := database.NewClient(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to create Supabase client: %v", err)
	}
	store := storage.NewClient(cfg, nil)
	fetcher := utils.NewFetcher(nil)

	promptModel, err := prompt.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiPromptModel)
	if err != nil {
		log.Fatalf("❌ Failed to create Gemini prompt model: %v", err)
	}
	vision, err := analyze.NewGeminiVision(ctx, cfg.GeminiAPIKey, cfg.GeminiVisionModel)
	if err != nil {
		log.Fatalf("❌ Failed to create Gemini vision model: %v", err)
	}
	defer vision.Close()

	jobs := replicate.NewClient(replicate.Options{
		BaseURL:  cfg.ReplicateBaseURL,
		APIToken: cfg.ReplicateAPIToken,
		RPS:      cfg.ReplicateRPS,
	})

	rdb := guest.Connect(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	// 파이프라인 구성
	reporter := report.Sentry{}
	ledger := credit.NewLedger(db, db, reporter, credit.Options{
		ConflictPolicy:  cfg.CreditConflictPolicy,
		ConflictRetries: cfg.CreditConflictRetries,
	})
	waiter := poller.New(jobs, poller.Options{
		MaxAttempts: cfg.PollMaxAttempts,
		Interval:    cfg.PollInterval,
	})
	hub := progress.NewHub(cfg.AllowedOrigins)

	service := tryon.NewService(tryon.Deps{
		Ledger:      ledger,
		Compositor:  compositor.New(fetcher, store, ""),
		Synthesizer: prompt.NewSynthesizer(promptModel, fetcher, prompt.NewLexicalAdvisory()),
		Submitter:   generation.NewOrchestrator(jobs, cfg.ReplicateGenerationModel),
		Waiter:      waiter,
		FaceSwap: faceswap.New(jobs, waiter, faceswap.Options{
			Model:      cfg.ReplicateFaceSwapVersion,
			MaxRetries: cfg.FaceSwapMaxRetries,
			RetryWait:  cfg.FaceSwapRetryWait,
		}),
		Records:  db,
		Rehoster: tryon.NewStorageRehoster(fetcher, store),
		Guest:    guest.NewGuestLimiter(rdb, cfg.GuestMaxGenerations),
		Progress: hub,
		Reporter: reporter,
	}, tryon.Options{
		Cost:       cfg.GenerationCost,
		LegacyCost: cfg.LegacyGenerationCost,
	})

	// 라우터 설정
	r := mux.NewRouter()
	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")

	tryon.NewHandler(service).RegisterRoutes(r)
	results.NewHandler(db).RegisterRoutes(r)
	explore.NewHandler(explore.NewService(db)).RegisterRoutes(r)
	reference.NewHandler(reference.NewLoader(cfg.ReferenceDataDir)).RegisterRoutes(r)
	analyze.NewHandler(vision, fetcher).RegisterRoutes(r)
	progress.NewHandler(hub).RegisterRoutes(r)

	// Sentry + CORS 미들웨어
	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(sentryHandler.Handle(r)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 TryOn Canvas Server starting on port %s", cfg.Port)
	log.Printf("🎨 Generate: http://localhost:%s/generate", cfg.Port)
	log.Printf("📡 Progress WebSocket: ws://localhost:%s/ws/progress/{userId}", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 종료 시그널 대기
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server shutdown failed: %v", err)
	}
	log.Printf("✅ Server stopped")
}
