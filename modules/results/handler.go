package results

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"tryon-canvas-server/modules/common/credit"
	"tryon-canvas-server/modules/common/fallback"
	"tryon-canvas-server/modules/common/model"
	"tryon-canvas-server/modules/common/response"
)

// 페이지네이션 기본값
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Store - generation_results 조회
type Store interface {
	ListGenerationRecords(ctx context.Context, userID string, page, limit int) ([]model.GenerationRecord, int64, error)
}

// ListResponse - 결과 목록 응답
type ListResponse struct {
	Success bool                     `json:"success"`
	Data    []model.GenerationRecord `json:"data"`
	Page    int                      `json:"page"`
	Limit   int                      `json:"limit"`
	Total   int64                    `json:"total"`
}

// Handler - 생성 결과 조회 핸들러
type Handler struct {
	store Store
}

// NewHandler - 핸들러 생성
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes - 결과 조회 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/results/{userId}", h.HandleList).Methods("GET")
	r.HandleFunc("/results", h.HandleList).Methods("GET")
	log.Println("✅ Results routes registered: /results, /results/{userId}")
}

// HandleList - GET /results/{userId}, GET /results?userId=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		userID = r.URL.Query().Get("userId")
	}
	page, limit := fallback.Page(r.URL.Query().Get("page"), r.URL.Query().Get("limit"), DefaultLimit, MaxLimit)

	// userId 가 없으면 전체 목록, 비회원 id 면 저장된 결과가 없음
	if userID != "" && credit.IsAnonymous(userID) {
		response.JSON(w, http.StatusOK, ListResponse{
			Success: true,
			Data:    []model.GenerationRecord{},
			Page:    page,
			Limit:   limit,
		})
		return
	}

	records, total, err := h.store.ListGenerationRecords(r.Context(), userID, page, limit)
	if err != nil {
		log.Printf("❌ [Results] Failed to list results for %s: %v", userID, err)
		response.Error(w, err)
		return
	}
	if records == nil {
		records = []model.GenerationRecord{}
	}

	log.Printf("📋 [Results] user=%q page=%d limit=%d -> %d/%d", userID, page, limit, len(records), total)
	response.JSON(w, http.StatusOK, ListResponse{
		Success: true,
		Data:    records,
		Page:    page,
		Limit:   limit,
		Total:   total,
	})
}
