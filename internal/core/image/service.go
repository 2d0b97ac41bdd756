package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	_ "image/jpeg" // 支援 JPEG
	_ "image/png"  // 支援 PNG

	_ "golang.org/x/image/webp" // 支援 WebP

	"recipe-ai/internal/pkg/common"

	"go.uber.org/zap"
)

// ObjectStore 物件儲存
type ObjectStore interface {
	Put(ctx context.Context, localPath, key string) error
}

// Service 圖片上傳服務
type Service struct {
	store        ObjectStore
	maxSizeBytes int64
	tempDir      string
}

// NewService 創建圖片上傳服務
func NewService(store ObjectStore, maxSizeBytes int64) *Service {
	return &Service{
		store:        store,
		maxSizeBytes: maxSizeBytes,
	}
}

// Upload 驗證圖片並上傳，回傳物件 key
func (s *Service) Upload(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSizeBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}
	return s.upload(ctx, data)
}

// UploadDataURL 上傳 data:image/...;base64, 格式的圖片
func (s *Service) UploadDataURL(ctx context.Context, imageData string) (string, error) {
	if !strings.HasPrefix(imageData, "data:image/") {
		return "", common.ErrInvalidImageType
	}

	parts := strings.SplitN(imageData, ",", 2)
	if len(parts) != 2 {
		return "", common.NewValidationError("invalid base64 data format")
	}

	// 粗估解碼後大小，避免先解碼超大內容
	if int64(base64.StdEncoding.DecodedLen(len(parts[1]))) > s.maxSizeBytes+2 {
		return "", common.ErrInvalidImageSize
	}

	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", common.NewValidationError("failed to decode base64 data")
	}
	return s.upload(ctx, decoded)
}

func (s *Service) upload(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", common.NewValidationError("image is empty")
	}
	if int64(len(data)) > s.maxSizeBytes {
		return "", common.ErrInvalidImageSize
	}

	ext, err := detectExtension(data)
	if err != nil {
		return "", err
	}

	key := common.GenerateUUID() + ext

	tmp, err := os.CreateTemp(s.tempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := s.store.Put(ctx, tmp.Name(), key); err != nil {
		return "", common.WrapError(common.ErrStorageUnavailable, err)
	}

	common.LogInfo("圖片已上傳", zap.String("key", key), zap.Int("bytes", len(data)))
	return key, nil
}

// detectExtension 依圖片內容判斷副檔名
func detectExtension(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", common.ErrInvalidImageType
	}

	switch format {
	case "jpeg":
		return ".jpg", nil
	case "png":
		return ".png", nil
	case "webp":
		return ".webp", nil
	default:
		return "", common.ErrInvalidImageType
	}
}
