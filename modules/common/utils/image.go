package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // GIF 디코더 등록
	_ "image/jpeg" // JPEG 디코더 등록
	_ "image/png"  // PNG 디코더 등록
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"tryon-canvas-server/modules/common/model"
)

// MaxImageBytes - 다운로드 허용 최대 크기
const MaxImageBytes = 20 << 20

// Fetcher - 이미지를 HTTP / data URI / 인라인 base64 에서 읽어옴
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher - 기본 타임아웃 Fetcher
func NewFetcher(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Fetcher{HTTPClient: httpClient}
}

// FetchReference - 참조 이미지 바이트 읽기 (인라인 데이터 우선)
func (f *Fetcher) FetchReference(ctx context.Context, ref model.ReferenceImage) ([]byte, error) {
	if ref.Data != "" {
		return DecodeBase64Image(ref.Data)
	}
	return f.Fetch(ctx, ref.URI)
}

// Fetch - URL 또는 data URI 에서 이미지 바이트 읽기
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("empty image uri")
	}
	if strings.HasPrefix(uri, "data:") {
		return DecodeBase64Image(uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to download image: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}

	log.Printf("📥 Image downloaded: %d bytes (%s)", len(data), truncate(uri, 80))
	return data, nil
}

// DecodeBase64Image - "data:image/png;base64,..." 또는 순수 base64 디코딩
func DecodeBase64Image(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data uri")
		}
		s = s[idx+1:]
	}
	s = strings.TrimSpace(s)
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// URL-safe / padding 없는 인코딩 대응
		if alt, altErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); altErr == nil {
			return alt, nil
		}
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return data, nil
}

// DecodeImage - WebP, PNG, JPEG, GIF 자동 감지
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// DetectMIMEType - 바이트에서 MIME 타입 추정
func DetectMIMEType(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}
	mime := http.DetectContentType(data)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}

// EncodeWebP - image.Image 를 WebP 로 인코딩
func EncodeWebP(img image.Image, quality float32) ([]byte, error) {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}
	return buf.Bytes(), nil
}

// ConvertToWebP - 임의 포맷 바이너리를 WebP 로 변환
func ConvertToWebP(data []byte, quality float32) ([]byte, error) {
	img, format, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	webpData, err := EncodeWebP(img, quality)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ %s converted to WebP: %d bytes → %d bytes", strings.ToUpper(format), len(data), len(webpData))
	return webpData, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
