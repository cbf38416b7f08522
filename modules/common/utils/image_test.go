package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon-canvas-server/modules/common/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeBase64Image(t *testing.T) {
	raw := pngBytes(t, 2, 2)
	enc := base64.StdEncoding.EncodeToString(raw)

	t.Run("data uri", func(t *testing.T) {
		got, err := DecodeBase64Image("data:image/png;base64," + enc)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("plain base64", func(t *testing.T) {
		got, err := DecodeBase64Image(enc)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("malformed uri", func(t *testing.T) {
		_, err := DecodeBase64Image("data:image/png;base64")
		assert.Error(t, err)
	})
}

func TestFetcher(t *testing.T) {
	raw := pngBytes(t, 3, 5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())

	t.Run("http", func(t *testing.T) {
		got, err := f.Fetch(context.Background(), srv.URL+"/ok.png")
		require.NoError(t, err)
		img, format, err := DecodeImage(got)
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, 3, img.Bounds().Dx())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/missing.png")
		assert.ErrorContains(t, err, "status 404")
	})

	t.Run("inline data wins over uri", func(t *testing.T) {
		ref := model.ReferenceImage{URI: srv.URL + "/missing.png", Data: base64.StdEncoding.EncodeToString(raw)}
		got, err := f.FetchReference(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("empty uri", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), " ")
		assert.Error(t, err)
	})
}

func TestDetectMIMEType(t *testing.T) {
	assert.Equal(t, "image/png", DetectMIMEType(pngBytes(t, 1, 1)))
	assert.Equal(t, "image/webp", DetectMIMEType([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "image/jpeg", DetectMIMEType([]byte("not an image")))
}
