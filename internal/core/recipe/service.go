package recipe

import (
	"context"
	"errors"
	"strings"
	"time"

	"recipe-ai/internal/infrastructure/monitoring"
	"recipe-ai/internal/pkg/common"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// StructuredGenerator 結構化食譜生成，回傳的結果不含圖片
type StructuredGenerator interface {
	GenerateRecipe(ctx context.Context, prompt string) (*common.RecipeOutput, error)
}

// ImageFinder 食譜圖片查詢
type ImageFinder interface {
	FindImage(ctx context.Context, title string, ingredientParts []string) (string, bool)
}

// Service 食譜生成流程
type Service struct {
	prompts    *PromptBuilder
	generator  StructuredGenerator
	images     ImageFinder
	maxRetries uint64
	backoff    time.Duration
}

// Option 服務選項
type Option func(*Service)

// WithRetry 設定生成失敗的重試次數與起始退避時間
func WithRetry(maxRetries uint64, backoff time.Duration) Option {
	return func(s *Service) {
		s.maxRetries = maxRetries
		s.backoff = backoff
	}
}

// NewService 創建食譜生成服務
func NewService(prompts *PromptBuilder, generator StructuredGenerator, images ImageFinder, opts ...Option) *Service {
	s := &Service{
		prompts:   prompts,
		generator: generator,
		images:    images,
		backoff:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.backoff <= 0 {
		s.backoff = time.Millisecond
	}
	return s
}

// Generate 組合提示詞、生成食譜並附上圖片
func (s *Service) Generate(ctx context.Context, req common.RecipeRequest) (*common.RecipeOutput, error) {
	start := time.Now()
	out, err := s.generate(ctx, req)
	monitoring.PipelineRun("generate", err, time.Since(start))
	return out, err
}

func (s *Service) generate(ctx context.Context, req common.RecipeRequest) (*common.RecipeOutput, error) {
	prompt, used := s.prompts.Build(ctx, req)
	common.LogDebug("提示詞已建立",
		zap.Int("ingredients", len(req.Ingredients)),
		zap.Int("examples", used),
	)

	out, err := s.callGenerator(ctx, prompt)
	if err != nil {
		common.LogWarn("食譜生成失敗", zap.Error(err))
		return nil, common.WrapError(common.ErrGenerationFailure, err)
	}
	if out == nil || strings.TrimSpace(out.Title) == "" {
		return nil, common.WrapError(common.ErrGenerationFailure, errors.New("generated recipe has no title"))
	}
	out.Title = strings.TrimSpace(out.Title)
	normalize(out)

	out.ImageURL = nil
	if url, found := s.images.FindImage(ctx, out.Title, out.IngredientParts); found {
		out.ImageURL = &url
	}

	common.LogInfo("食譜生成完成",
		zap.String("title", out.Title),
		zap.Int("examples", used),
		zap.Bool("has_image", out.ImageURL != nil),
	)
	return out, nil
}

// callGenerator 以指數退避重試生成
func (s *Service) callGenerator(ctx context.Context, prompt string) (*common.RecipeOutput, error) {
	var out *common.RecipeOutput
	b := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.backoff))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		res, err := s.generator.GenerateRecipe(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		out = res
		return nil
	})
	return out, err
}

// normalize 將 nil 切片轉為空切片
func normalize(out *common.RecipeOutput) {
	if out.IngredientParts == nil {
		out.IngredientParts = []string{}
	}
	if out.Ingredients == nil {
		out.Ingredients = []string{}
	}
	if out.Instructions == nil {
		out.Instructions = []string{}
	}
}
