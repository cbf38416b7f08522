package explore

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/fallback"
	"tryon-canvas-server/modules/common/response"
)

// 페이지네이션 기본값
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListResponse - explore 목록 응답
type ListResponse struct {
	Success bool   `json:"success"`
	Data    []Item `json:"data"`
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	Total   int64  `json:"total"`
}

// ItemResponse - explore 단건 응답
type ItemResponse struct {
	Success bool  `json:"success"`
	Data    *Item `json:"data"`
}

// Handler - explore HTTP 핸들러
type Handler struct {
	service *Service
}

// NewHandler - 핸들러 생성
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - explore 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/explores", h.HandleList).Methods("GET")
	r.HandleFunc("/explores/{id}", h.HandleGet).Methods("GET")
	log.Println("✅ Explore routes registered: /explores, /explores/{id}")
}

// HandleList - GET /explores
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit := fallback.Page(r.URL.Query().Get("page"), r.URL.Query().Get("limit"), DefaultLimit, MaxLimit)

	items, total, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		log.Printf("❌ [Explore] Failed to list explores: %v", err)
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ListResponse{
		Success: true,
		Data:    items,
		Page:    page,
		Limit:   limit,
		Total:   total,
	})
}

// HandleGet - GET /explores/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, apperror.Validation("Invalid explore id: "+raw))
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Printf("❌ [Explore] Failed to get explore %d: %v", id, err)
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ItemResponse{Success: true, Data: item})
}
