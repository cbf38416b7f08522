package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/gorilla/mux"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/response"
	"tryon-canvas-server/modules/common/utils"
)

// maxImageBytes - 업로드 이미지 상한
const maxImageBytes = 10 << 20

// Fetcher - URL 이미지 다운로드
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// URLRequest - POST /analyze-clothing-url 요청
type URLRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,url"`
}

// Response - 분석 응답
type Response struct {
	Success bool   `json:"success"`
	Items   []Item `json:"items"`
}

// Handler - 의류 분석 핸들러
type Handler struct {
	vision   Vision
	fetcher  Fetcher
	validate *validator.Validate
}

// NewHandler - 핸들러 생성
func NewHandler(vision Vision, fetcher Fetcher) *Handler {
	return &Handler{vision: vision, fetcher: fetcher, validate: validator.New()}
}

// RegisterRoutes - 분석 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/analyze-clothing", h.HandleUpload).Methods("POST")
	r.HandleFunc("/analyze-clothing-url", h.HandleURL).Methods("POST")
	log.Println("✅ Analyze routes registered: /analyze-clothing, /analyze-clothing-url")
}

// HandleUpload - POST /analyze-clothing (multipart "image")
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		response.Error(w, apperror.Wrap(apperror.ErrValidation, err, "Invalid multipart form or image too large (max 10MB)"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.Error(w, apperror.Wrap(apperror.ErrValidation, err, "image file is required"))
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		response.Error(w, apperror.Validation("Image too large (max 10MB)"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(w, apperror.Wrap(apperror.ErrValidation, err, "Failed to read image"))
		return
	}

	log.Printf("🔍 [Analyze] Upload: %s (%d bytes)", header.Filename, len(data))
	h.analyze(r.Context(), w, data)
}

// HandleURL - POST /analyze-clothing-url
func (h *Handler) HandleURL(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		response.Error(w, apperror.Wrap(apperror.ErrValidation, err, "Invalid request format"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.Error(w, apperror.Wrap(apperror.ErrValidation, err, "imageUrl must be a valid URL"))
		return
	}

	data, err := h.fetcher.Fetch(r.Context(), req.ImageURL)
	if err != nil {
		log.Printf("❌ [Analyze] Failed to download %s: %v", req.ImageURL, err)
		response.Error(w, apperror.Wrap(apperror.ErrValidation, err, "Failed to download image"))
		return
	}
	if len(data) > maxImageBytes {
		response.Error(w, apperror.Validation("Image too large (max 10MB)"))
		return
	}

	log.Printf("🔍 [Analyze] URL: %s (%d bytes)", req.ImageURL, len(data))
	h.analyze(r.Context(), w, data)
}

func (h *Handler) analyze(ctx context.Context, w http.ResponseWriter, data []byte) {
	if len(data) == 0 {
		response.Error(w, apperror.Validation("Image is empty"))
		return
	}
	mimeType := utils.DetectMIMEType(data)

	text, err := h.vision.Analyze(ctx, data, mimeType)
	if err != nil {
		log.Printf("❌ [Analyze] Vision failed: %v", err)
		response.Error(w, err)
		return
	}

	items, err := ParseItems(text)
	if err != nil {
		if errors.Is(err, ErrNoItems) {
			log.Printf("⚠️ [Analyze] No items parsed from: %.200s", text)
			response.JSON(w, http.StatusOK, Response{Success: true, Items: []Item{}})
			return
		}
		response.Error(w, err)
		return
	}

	log.Printf("✅ [Analyze] %d items found", len(items))
	response.JSON(w, http.StatusOK, Response{Success: true, Items: items})
}
