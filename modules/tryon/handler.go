package tryon

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator"
	"github.com/gorilla/mux"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/response"
)

// maxBodyBytes - 인라인 base64 이미지 포함 요청 크기 상한
const maxBodyBytes = 60 << 20

// Handler - try-on HTTP 핸들러
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler - 핸들러 생성
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// RegisterRoutes - 라우터에 try-on 엔드포인트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate", h.HandleGenerate).Methods("POST")
	r.HandleFunc("/api/generate", h.HandleGenerate).Methods("POST")
	r.HandleFunc("/credit/{userId}", h.HandleCredit).Methods("GET")
	log.Println("✅ TryOn routes registered: /generate, /api/generate, /credit/{userId}")
}

// HandleGenerate - POST /generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		log.Printf("❌ [TryOn] Invalid request: %v", err)
		response.Error(w, apperror.Wrap(apperror.ErrValidation, err, "Invalid request format"))
		return
	}

	if err := h.validate.Struct(&body); err != nil {
		response.Error(w, apperror.Wrap(apperror.ErrValidation, err, validationMessage(err)))
		return
	}

	req, err := body.ToRequest()
	if err != nil {
		response.Error(w, err)
		return
	}

	log.Printf("🎨 [TryOn] Generate request: user=%s, images=%d, ratio=%s, multiProducts=%v",
		displayUser(req.UserID), len(req.References.Images()), req.AspectRatio, req.IsMultipleProducts)

	// 클라이언트 연결이 끊겨도 파이프라인은 끝까지 진행 (차감/환불 일관성)
	result, err := h.service.Generate(context.WithoutCancel(r.Context()), req)
	if err != nil {
		code := apperror.Code(err)
		resp := GenerateResponse{
			Success:   false,
			Error:     code,
			ErrorType: code,
			Message:   apperror.Message(err),
		}
		if result != nil && result.creditKnown {
			resp.CurrentCredit = intPtr(result.CurrentCredit)
		}
		response.JSON(w, apperror.HTTPStatus(err), resp)
		return
	}

	response.JSON(w, http.StatusOK, GenerateResponse{Success: true, Result: result})
}

// HandleCredit - GET /credit/{userId}
func (h *Handler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	balance, anonymous, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		log.Printf("❌ [TryOn] Failed to get credit for %s: %v", userID, err)
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, CreditResponse{Credit: balance, IsAnonymous: anonymous})
}

// validationMessage - validator 에러를 읽기 쉬운 문장으로
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s item(s)", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
