package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItems(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Item
	}{
		{
			name: "strict array",
			in:   `[{"type":"Top","query":"white linen shirt"},{"type":"bottom","query":"black slacks"}]`,
			want: []Item{{"top", "white linen shirt"}, {"bottom", "black slacks"}},
		},
		{
			name: "wrapped items",
			in:   `{"items":[{"type":"shoes","query":"white sneakers"}]}`,
			want: []Item{{"shoes", "white sneakers"}},
		},
		{
			name: "array inside prose",
			in:   "Here you go:\n```json\n[{\"type\":\"outer\",\"query\":\"camel trench coat\"}]\n```",
			want: []Item{{"outer", "camel trench coat"}},
		},
		{
			name: "loose objects",
			in:   `1. {"type":"bag","query":"tan tote"} 2. {"type":"hat","query":"navy cap"} 3. {broken}`,
			want: []Item{{"bag", "tan tote"}, {"hat", "navy cap"}},
		},
		{
			name: "empty query dropped, missing type defaulted",
			in:   `[{"type":"top","query":""},{"query":"silver necklace"}]`,
			want: []Item{{"item", "silver necklace"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseItems(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, items)
		})
	}

	_, err := ParseItems("I cannot see any clothing.")
	assert.True(t, errors.Is(err, ErrNoItems))
}

type fakeVision struct {
	text     string
	err      error
	gotBytes int
	gotMIME  string
}

func (v *fakeVision) Analyze(ctx context.Context, image []byte, mimeType string) (string, error) {
	v.gotBytes = len(image)
	v.gotMIME = mimeType
	return v.text, v.err
}

type fakeFetcher map[string][]byte

func (f fakeFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if d, ok := f[uri]; ok {
		return d, nil
	}
	return nil, errors.New("status 404")
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func newRouter(v Vision, f Fetcher) *mux.Router {
	r := mux.NewRouter()
	NewHandler(v, f).RegisterRoutes(r)
	return r
}

func TestHandleUpload(t *testing.T) {
	vision := &fakeVision{text: `[{"type":"top","query":"red knit sweater"}]`}
	img := pngBytes(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "look.png")
	require.NoError(t, err)
	_, err = fw.Write(img)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze-clothing", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newRouter(vision, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []Item{{"top", "red knit sweater"}}, resp.Items)
	assert.Equal(t, len(img), vision.gotBytes)
	assert.Equal(t, "image/png", vision.gotMIME)
}

func TestHandleUpload_MissingFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze-clothing", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newRouter(&fakeVision{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleURL(t *testing.T) {
	img := pngBytes(t)
	fetcher := fakeFetcher{"https://cdn.example.com/look.png": img}

	t.Run("success", func(t *testing.T) {
		vision := &fakeVision{text: `{"items":[{"type":"dress","query":"floral midi dress"}]}`}
		rec := httptest.NewRecorder()
		newRouter(vision, fetcher).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze-clothing-url",
			strings.NewReader(`{"imageUrl":"https://cdn.example.com/look.png"}`)))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []Item{{"dress", "floral midi dress"}}, resp.Items)
	})

	t.Run("invalid url", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(&fakeVision{}, fetcher).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze-clothing-url",
			strings.NewReader(`{"imageUrl":"not a url"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("download failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(&fakeVision{}, fetcher).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze-clothing-url",
			strings.NewReader(`{"imageUrl":"https://cdn.example.com/missing.png"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unparseable answer yields empty list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(&fakeVision{text: "nothing here"}, fetcher).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze-clothing-url",
			strings.NewReader(`{"imageUrl":"https://cdn.example.com/look.png"}`)))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotNil(t, resp.Items)
		assert.Empty(t, resp.Items)
	})

	t.Run("vision failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(&fakeVision{err: errors.New("quota exceeded")}, fetcher).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze-clothing-url",
			strings.NewReader(`{"imageUrl":"https://cdn.example.com/look.png"}`)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
