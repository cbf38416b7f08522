package tryon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon-canvas-server/modules/common/apperror"
)

func newTestRouter(f *fixture) *mux.Router {
	r := mux.NewRouter()
	NewHandler(f.service).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

const threeRoleBody = `{
	"promptText": "summer look",
	"referenceImages": [
		{"uri": "https://img/face.png", "tag": "image_1"},
		{"uri": "https://img/model.png", "tag": "image_2"},
		{"uri": "https://img/product.png", "tag": "image_3"}
	],
	"settings": {"location": {"value": "beach"}, "age": 30},
	"userId": "user-1",
	"ratio": "9:16"
}`

func TestHandleGenerate_Success(t *testing.T) {
	f := newFixture(100)
	for _, path := range []string{"/generate", "/api/generate"} {
		rec, out := doRequest(t, newTestRouter(f), http.MethodPost, path, threeRoleBody)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, out["success"])
		result := out["result"].(map[string]interface{})
		assert.Equal(t, "https://provider/swapped.png", result["imageUrl"])
		assert.Equal(t, "summer look", result["originalPrompt"])
		assert.NotContains(t, result, "faceSwapError")
	}
	assert.Equal(t, 60, f.store.balance("user-1"))
}

func TestHandleGenerate_Errors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		rec, out := doRequest(t, newTestRouter(newFixture(100)), http.MethodPost, "/generate", `{"promptText":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperror.CodeValidation, out["error"])
	})

	t.Run("no reference images", func(t *testing.T) {
		rec, out := doRequest(t, newTestRouter(newFixture(100)), http.MethodPost, "/generate", `{"promptText":"x","userId":"user-1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperror.CodeValidation, out["error_type"])
		assert.Contains(t, out["message"], "ReferenceImages")
	})

	t.Run("partial tags", func(t *testing.T) {
		body := `{"referenceImages":[{"uri":"a","tag":"image_1"}],"userId":"user-1"}`
		rec, out := doRequest(t, newTestRouter(newFixture(100)), http.MethodPost, "/generate", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, out["message"], "must be provided together")
	})

	t.Run("insufficient credit", func(t *testing.T) {
		rec, out := doRequest(t, newTestRouter(newFixture(10)), http.MethodPost, "/generate", threeRoleBody)
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Equal(t, apperror.CodeInsufficientCredit, out["error"])
		assert.Equal(t, float64(10), out["currentCredit"])
	})

	t.Run("unknown user omits credit", func(t *testing.T) {
		body := strings.Replace(threeRoleBody, `"userId": "user-1"`, `"userId": "user-missing"`, 1)
		rec, out := doRequest(t, newTestRouter(newFixture(100)), http.MethodPost, "/generate", body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apperror.CodeNotFound, out["error"])
		assert.NotContains(t, out, "currentCredit")
	})

	t.Run("sensitive content is not a 5xx", func(t *testing.T) {
		f := newFixture(100)
		f.waiter.err = apperror.New(apperror.ErrSensitiveContent, "The image was flagged as sensitive content.")
		rec, out := doRequest(t, newTestRouter(f), http.MethodPost, "/generate", threeRoleBody)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, apperror.CodeSensitiveContent, out["error"])
		assert.Equal(t, "The image was flagged as sensitive content.", out["message"])
		assert.Equal(t, float64(100), out["currentCredit"])
	})

	t.Run("provider failure", func(t *testing.T) {
		f := newFixture(100)
		f.waiter.err = apperror.New(apperror.ErrProviderFailed, "image generation failed")
		rec, out := doRequest(t, newTestRouter(f), http.MethodPost, "/generate", threeRoleBody)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, apperror.CodeProviderFailed, out["error"])
		assert.Equal(t, float64(100), out["currentCredit"])
	})
}

func TestHandleCredit(t *testing.T) {
	f := newFixture(42)
	r := newTestRouter(f)

	rec, out := doRequest(t, r, http.MethodGet, "/credit/user-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(42), out["credit"])
	assert.Equal(t, false, out["isAnonymous"])

	rec, out = doRequest(t, r, http.MethodGet, "/credit/guest_123", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), out["credit"])
	assert.Equal(t, true, out["isAnonymous"])

	rec, out = doRequest(t, r, http.MethodGet, "/credit/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.CodeNotFound, out["error"])
}
