package reference

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"tryon-canvas-server/modules/common/fallback"
	"tryon-canvas-server/modules/common/response"
)

// 페이지네이션 기본값
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListResponse - fixture 목록 응답
type ListResponse struct {
	Success bool              `json:"success"`
	Data    []json.RawMessage `json:"data"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
	Total   int               `json:"total"`
}

// Handler - 장소 / 포즈 레퍼런스 핸들러
type Handler struct {
	loader *Loader
}

// NewHandler - 핸들러 생성
func NewHandler(loader *Loader) *Handler {
	return &Handler{loader: loader}
}

// RegisterRoutes - 레퍼런스 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/locations/{type:[a-z0-9_-]+}", h.HandleLocations).Methods("GET")
	r.HandleFunc("/poses", h.HandlePoses).Methods("GET")
	log.Println("✅ Reference routes registered: /locations/{type}, /poses")
}

// HandleLocations - GET /locations/{type}
func (h *Handler) HandleLocations(w http.ResponseWriter, r *http.Request) {
	items, err := h.loader.Locations(mux.Vars(r)["type"])
	h.write(w, r, items, err)
}

// HandlePoses - GET /poses
func (h *Handler) HandlePoses(w http.ResponseWriter, r *http.Request) {
	items, err := h.loader.Poses()
	h.write(w, r, items, err)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, items []json.RawMessage, err error) {
	if err != nil {
		log.Printf("❌ [Reference] %s: %v", r.URL.Path, err)
		response.Error(w, err)
		return
	}

	page, limit := fallback.Page(r.URL.Query().Get("page"), r.URL.Query().Get("limit"), DefaultLimit, MaxLimit)
	response.JSON(w, http.StatusOK, ListResponse{
		Success: true,
		Data:    Paginate(items, page, limit),
		Page:    page,
		Limit:   limit,
		Total:   len(items),
	})
}
