package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(&config.Config{SupabaseURL: srv.URL, SupabaseServiceKey: "service-key"})
	require.NoError(t, err)
	return c
}

func TestPageRange(t *testing.T) {
	from, to := pageRange(1, 20)
	assert.Equal(t, 0, from)
	assert.Equal(t, 19, to)

	from, to = pageRange(3, 10)
	assert.Equal(t, 20, from)
	assert.Equal(t, 29, to)

	from, to = pageRange(0, 0)
	assert.Equal(t, 0, from)
	assert.Equal(t, 19, to)
}

func TestFetchBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/users", r.URL.Path)
		if r.URL.Query().Get("id") == "eq.missing" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"credit":100}]`))
	})

	balance, err := c.FetchBalance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 100, balance)

	_, err = c.FetchBalance(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCompareAndSwapBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("id"))
		if r.URL.Query().Get("credit") == "eq.100" {
			_, _ = w.Write([]byte(`[{"id":"user-1"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	ok, err := c.CompareAndSwapBalance(context.Background(), "user-1", 100, 80)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CompareAndSwapBalance(context.Background(), "user-1", 90, 70)
	require.NoError(t, err)
	assert.False(t, ok, "stale balance matches no row")
}
