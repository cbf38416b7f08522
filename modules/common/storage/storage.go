package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"tryon-canvas-server/modules/common/config"
)

// Client - Supabase Storage REST 클라이언트
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewClient - Storage 클라이언트 생성
func NewClient(cfg *config.Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// UniqueName - <prefix>_<unix ms>_<random>.<ext>
func UniqueName(prefix, ext string) string {
	timestamp := time.Now().UnixNano() / int64(time.Millisecond)
	randomID := rand.Intn(999999)
	return fmt.Sprintf("%s_%d_%06d.%s", prefix, timestamp, randomID, strings.TrimPrefix(ext, "."))
}

// Upload - 바이트를 Storage 에 업로드하고 public URL 반환
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	path = strings.TrimLeft(path, "/")
	log.Printf("📤 Uploading to storage: %s (%d bytes)", path, len(data))

	// Supabase Storage API URL
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.cfg.SupabaseURL, c.cfg.SupabaseStorageBucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("❌ Upload failed - Status: %d, Body: %s", resp.StatusCode, string(body))
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	publicURL := c.cfg.PublicObjectURL(path)
	log.Printf("✅ Uploaded: %s", publicURL)
	return publicURL, nil
}

// UploadFile - 로컬 파일을 Storage 에 업로드
func (c *Client) UploadFile(ctx context.Context, path, localPath, contentType string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	return c.Upload(ctx, path, data, contentType)
}
