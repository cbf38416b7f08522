package results

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon-canvas-server/modules/common/model"
)

type fakeStore struct {
	records []model.GenerationRecord
	total   int64
	err     error

	called              bool
	userID              string
	pageSeen, limitSeen int
}

func (s *fakeStore) ListGenerationRecords(ctx context.Context, userID string, page, limit int) ([]model.GenerationRecord, int64, error) {
	s.called = true
	s.userID, s.pageSeen, s.limitSeen = userID, page, limit
	return s.records, s.total, s.err
}

func serve(t *testing.T, store Store, target string) (*httptest.ResponseRecorder, ListResponse) {
	t.Helper()
	r := mux.NewRouter()
	NewHandler(store).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body ListResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandleList_PathUser(t *testing.T) {
	store := &fakeStore{
		records: []model.GenerationRecord{{ID: 2, UserID: "u1"}, {ID: 1, UserID: "u1"}},
		total:   42,
	}
	rec, body := serve(t, store, "/results/u1?page=3&limit=2")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 3, body.Page)
	assert.Equal(t, 2, body.Limit)
	assert.EqualValues(t, 42, body.Total)
	assert.Equal(t, "u1", store.userID)
	assert.Equal(t, 3, store.pageSeen)
}

func TestHandleList_QueryUserAndDefaults(t *testing.T) {
	store := &fakeStore{}
	rec, body := serve(t, store, "/results?userId=u2&page=0&limit=5000")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", store.userID)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, MaxLimit, body.Limit)
	assert.NotNil(t, body.Data)
}

func TestHandleList_AllUsers(t *testing.T) {
	store := &fakeStore{
		records: []model.GenerationRecord{{ID: 9, UserID: "u1"}, {ID: 8, UserID: "u2"}},
		total:   2,
	}
	rec, body := serve(t, store, "/results")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.called)
	assert.Equal(t, "", store.userID)
	assert.Equal(t, 1, store.pageSeen)
	assert.Equal(t, DefaultLimit, store.limitSeen)
	assert.Len(t, body.Data, 2)
	assert.EqualValues(t, 2, body.Total)
}

func TestHandleList_AnonymousSkipsStore(t *testing.T) {
	store := &fakeStore{}
	rec, body := serve(t, store, "/results/guest_abc")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, store.called)
	assert.Empty(t, body.Data)
	assert.Equal(t, DefaultLimit, body.Limit)
}

func TestHandleList_StoreError(t *testing.T) {
	rec, _ := serve(t, &fakeStore{err: errors.New("postgrest down")}, "/results/u1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
