package tryon

import (
	"context"
	"fmt"
	"log"
	"strings"

	"tryon-canvas-server/modules/common/storage"
	"tryon-canvas-server/modules/common/utils"
)

// resultQuality - 재업로드 WebP 품질
const resultQuality = 90

// Downloader - URL 에서 바이트 읽기 (utils.Fetcher)
type Downloader interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Uploader - storage 업로드 (storage.Client)
type Uploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// StorageRehoster - provider 결과 이미지를 자체 storage 로 옮김 (provider URL 은 만료됨)
type StorageRehoster struct {
	downloader Downloader
	uploader   Uploader
	convert    func(data []byte) ([]byte, error)
}

// NewStorageRehoster - 결과를 WebP 로 변환해 업로드
func NewStorageRehoster(d Downloader, u Uploader) *StorageRehoster {
	return &StorageRehoster{
		downloader: d,
		uploader:   u,
		convert: func(data []byte) ([]byte, error) {
			return utils.ConvertToWebP(data, resultQuality)
		},
	}
}

// Rehost - 업로드된 public URL 반환
func (r *StorageRehoster) Rehost(ctx context.Context, url string) (string, error) {
	data, err := r.downloader.Fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to download result: %w", err)
	}

	contentType, ext := "image/webp", "webp"
	converted, err := r.convert(data)
	if err != nil {
		// 변환 실패 시 원본 그대로 업로드
		log.Printf("⚠️  [Rehost] WebP conversion failed, uploading original: %v", err)
		contentType = utils.DetectMIMEType(data)
		ext = strings.TrimPrefix(contentType, "image/")
		converted = data
	}

	path := storage.UniqueName("results/generated", ext)
	publicURL, err := r.uploader.Upload(ctx, path, converted, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload result: %w", err)
	}

	log.Printf("✅ [Rehost] Result stored: %s (%d → %d bytes)", path, len(data), len(converted))
	return publicURL, nil
}
