package recipe

import (
	"context"
	"io"

	"recipe-ai/internal/pkg/common"
)

// IngredientDetector 食材辨識
type IngredientDetector interface {
	Detect(ctx context.Context, imageRef string) (common.IngredientSet, error)
}

// RecipeGenerator 食譜生成
type RecipeGenerator interface {
	Generate(ctx context.Context, req common.RecipeRequest) (*common.RecipeOutput, error)
}

// ImageUploader 圖片上傳
type ImageUploader interface {
	Upload(ctx context.Context, r io.Reader) (string, error)
	UploadDataURL(ctx context.Context, imageData string) (string, error)
}

// Handler 食材辨識、食譜生成與圖片上傳的 HTTP 處理器
type Handler struct {
	detector  IngredientDetector
	generator RecipeGenerator
	uploader  ImageUploader
}

// NewHandler 創建處理器
func NewHandler(detector IngredientDetector, generator RecipeGenerator, uploader ImageUploader) *Handler {
	return &Handler{
		detector:  detector,
		generator: generator,
		uploader:  uploader,
	}
}
