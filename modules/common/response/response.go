package response

import (
	"encoding/json"
	"log"
	"net/http"

	"tryon-canvas-server/modules/common/apperror"
)

// ErrorBody - 실패 응답 공통 구조
type ErrorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// JSON - status 와 함께 JSON 응답
func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}

// Error - apperror 분류에 따라 상태 코드 / 코드 / 메시지 작성
func Error(w http.ResponseWriter, err error) {
	code := apperror.Code(err)
	JSON(w, apperror.HTTPStatus(err), ErrorBody{
		Success:   false,
		Error:     code,
		ErrorType: code,
		Message:   apperror.Message(err),
	})
}
