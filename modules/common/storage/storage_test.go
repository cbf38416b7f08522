package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon-canvas-server/modules/common/config"
)

func TestUniqueName(t *testing.T) {
	name := UniqueName("composite", ".webp")
	assert.Regexp(t, regexp.MustCompile(`^composite_\d{13}_\d{6}\.webp$`), name)
	assert.NotEqual(t, name, UniqueName("composite", "webp"))
}

func TestUpload(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Key":"generations/a.webp"}`))
	}))
	defer srv.Close()

	cfg := &config.Config{SupabaseURL: srv.URL, SupabaseServiceKey: "svc", SupabaseStorageBucket: "generations"}
	c := NewClient(cfg, srv.Client())

	url, err := c.Upload(context.Background(), "/composites/a.webp", []byte("webp"), "image/webp")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/generations/composites/a.webp", gotPath)
	assert.Equal(t, "Bearer svc", gotAuth)
	assert.Equal(t, "image/webp", gotType)
	assert.Equal(t, []byte("webp"), gotBody)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/generations/composites/a.webp", url)
}

func TestUpload_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Duplicate"}`, http.StatusConflict)
	}))
	defer srv.Close()

	cfg := &config.Config{SupabaseURL: srv.URL, SupabaseStorageBucket: "generations"}
	_, err := NewClient(cfg, srv.Client()).Upload(context.Background(), "a.webp", []byte("x"), "image/webp")
	assert.ErrorContains(t, err, "status 409")
}

func TestUploadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "composite.webp")
	require.NoError(t, os.WriteFile(local, []byte("data"), 0o600))

	cfg := &config.Config{SupabaseURL: srv.URL, SupabaseStorageBucket: "b"}
	c := NewClient(cfg, srv.Client())

	_, err := c.UploadFile(context.Background(), "x.webp", local, "image/webp")
	require.NoError(t, err)

	_, err = c.UploadFile(context.Background(), "x.webp", filepath.Join(t.TempDir(), "missing"), "image/webp")
	assert.Error(t, err)
}
