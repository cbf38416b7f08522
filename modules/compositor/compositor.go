package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/model"
	"tryon-canvas-server/modules/common/storage"
	"tryon-canvas-server/modules/common/utils"
)

// Mode - 합성 방식
type Mode int

const (
	// SideBySide - 좌→우, 가장 큰 높이에 맞춤 (3-role 고정 이미지)
	SideBySide Mode = iota
	// Products - 좌→우, 가장 작은 높이에 맞춤 (상품 여러 개)
	Products
	// Stacked - 위→아래, 가장 큰 너비 캔버스에 가운데 정렬
	Stacked
)

func (m Mode) String() string {
	switch m {
	case SideBySide:
		return "sideBySide"
	case Products:
		return "products"
	case Stacked:
		return "stacked"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// WebPQuality - 합성 이미지 인코딩 품질
const WebPQuality = 90

// maxParallelDownloads - 다운로드 fan-out 상한
const maxParallelDownloads = 3

// ImageSource - 이미지 바이트 읽기 (utils.Fetcher)
type ImageSource interface {
	FetchReference(ctx context.Context, ref model.ReferenceImage) ([]byte, error)
}

// FileUploader - 로컬 파일 업로드 (storage.Client)
type FileUploader interface {
	UploadFile(ctx context.Context, path, localPath, contentType string) (string, error)
}

// Compositor - 여러 이미지를 하나로 합성 후 storage 업로드
type Compositor struct {
	source   ImageSource
	uploader FileUploader
	tempDir  string
	encode   func(img image.Image) ([]byte, error)
}

// New - Compositor 생성 (tempDir 이 비면 os.TempDir)
func New(source ImageSource, uploader FileUploader, tempDir string) *Compositor {
	return &Compositor{
		source:   source,
		uploader: uploader,
		tempDir:  tempDir,
		encode: func(img image.Image) ([]byte, error) {
			return utils.EncodeWebP(img, WebPQuality)
		},
	}
}

// Compose - 이미지 다운로드 → 합성 → WebP → 업로드, public URL 반환
func (c *Compositor) Compose(ctx context.Context, refs []model.ReferenceImage, mode Mode) (*model.CompositeImage, error) {
	log.Printf("🧩 [Compositor] Composing %d images (%s)", len(refs), mode)

	images := c.download(ctx, refs)
	if len(images) == 0 {
		return nil, apperror.New(apperror.ErrAllImagesUnavailable, "None of the reference images could be loaded.")
	}

	canvas := Layout(images, mode)
	bounds := canvas.Bounds()
	log.Printf("✅ [Compositor] Layout done: %dx%d from %d/%d images", bounds.Dx(), bounds.Dy(), len(images), len(refs))

	webpData, err := c.encode(canvas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode composite: %w", err)
	}

	url, err := c.upload(ctx, webpData)
	if err != nil {
		return nil, err
	}

	return &model.CompositeImage{
		URL:     url,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Sources: len(images),
	}, nil
}

// download - 병렬 다운로드 + 디코딩, 실패한 이미지는 건너뜀 (순서 유지)
func (c *Compositor) download(ctx context.Context, refs []model.ReferenceImage) []image.Image {
	decoded := make([]image.Image, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)

	for i, ref := range refs {
		g.Go(func() error {
			data, err := c.source.FetchReference(gctx, ref)
			if err != nil {
				log.Printf("⚠️  [Compositor] Skipping image %d: %v", i, err)
				return nil
			}
			img, format, err := utils.DecodeImage(data)
			if err != nil {
				log.Printf("⚠️  [Compositor] Skipping image %d: %v", i, err)
				return nil
			}
			log.Printf("🔍 [Compositor] Decoded image %d (%s, %dx%d)", i, format, img.Bounds().Dx(), img.Bounds().Dy())
			decoded[i] = img
			return nil
		})
	}
	_ = g.Wait()

	out := make([]image.Image, 0, len(decoded))
	for _, img := range decoded {
		if img != nil {
			out = append(out, img)
		}
	}
	return out
}

// upload - 임시 파일에 쓰고 업로드, 결과와 무관하게 임시 파일 삭제
func (c *Compositor) upload(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp(c.tempDir, "composite-*.webp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️  [Compositor] Failed to remove temp file %s: %v", tmpPath, err)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	objectPath := "composites/" + storage.UniqueName("composite", "webp")
	url, err := c.uploader.UploadFile(ctx, objectPath, tmpPath, "image/webp")
	if err != nil {
		return "", fmt.Errorf("failed to upload composite: %w", err)
	}
	return url, nil
}

// Layout - 디코딩된 이미지를 mode 에 따라 배치 (흰 배경, 간격 없음)
func Layout(images []image.Image, mode Mode) image.Image {
	if mode == Stacked {
		return stack(images)
	}
	return sideBySide(images, TargetHeight(images, mode))
}

// TargetHeight - Products 면 최소 높이, 그 외 최대 높이
func TargetHeight(images []image.Image, mode Mode) int {
	target := 0
	for i, img := range images {
		h := img.Bounds().Dy()
		switch {
		case i == 0:
			target = h
		case mode == Products && h < target:
			target = h
		case mode != Products && h > target:
			target = h
		}
	}
	return target
}

func sideBySide(images []image.Image, height int) image.Image {
	scaled := make([]image.Image, len(images))
	totalWidth := 0
	for i, img := range images {
		if img.Bounds().Dy() == height {
			scaled[i] = img
		} else {
			// 너비 0 → 비율 유지
			scaled[i] = imaging.Resize(img, 0, height, imaging.Lanczos)
		}
		totalWidth += scaled[i].Bounds().Dx()
	}

	canvas := whiteCanvas(totalWidth, height)
	x := 0
	for _, img := range scaled {
		b := img.Bounds()
		draw.Draw(canvas, image.Rect(x, 0, x+b.Dx(), b.Dy()), img, b.Min, draw.Over)
		x += b.Dx()
	}
	return canvas
}

func stack(images []image.Image) image.Image {
	maxWidth, totalHeight := 0, 0
	for _, img := range images {
		b := img.Bounds()
		if b.Dx() > maxWidth {
			maxWidth = b.Dx()
		}
		totalHeight += b.Dy()
	}

	canvas := whiteCanvas(maxWidth, totalHeight)
	y := 0
	for _, img := range images {
		b := img.Bounds()
		x := (maxWidth - b.Dx()) / 2
		draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Over)
		y += b.Dy()
	}
	return canvas
}

func whiteCanvas(w, h int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return canvas
}
