package progress

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Handler - progress HTTP 핸들러
type Handler struct {
	hub *Hub
}

// NewHandler - 핸들러 생성
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/progress/{userId}", h.HandleWebSocket).Methods("GET")
	r.HandleFunc("/progress/metrics", h.HandleMetrics).Methods("GET")
}

// HandleWebSocket - GET /ws/progress/{userId}
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	h.hub.serve(w, r, userID)
}

// HandleMetrics - GET /progress/metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	m := h.hub.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"uptime":  time.Since(m.StartTime).String(),
		"metrics": m,
	})
}
