package imagelookup

import (
	"context"
	"strings"
	"time"

	"recipe-ai/internal/infrastructure/monitoring"
	"recipe-ai/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultTimeout 單次查詢逾時
const DefaultTimeout = 5 * time.Second

// Searcher 食譜圖片搜尋
type Searcher interface {
	ByName(ctx context.Context, name string) ([]common.ImageMatch, error)
	ByIngredient(ctx context.Context, ingredient string) ([]common.ImageMatch, error)
}

// Service 食譜圖片查詢流程：先查名稱，再依序查食材，取第一個結果
type Service struct {
	searcher Searcher
	timeout  time.Duration
}

// NewService 創建圖片查詢服務
func NewService(searcher Searcher, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{searcher: searcher, timeout: timeout}
}

// FindImage 回傳圖片網址，查不到時 found 為 false
func (s *Service) FindImage(ctx context.Context, title string, ingredientParts []string) (string, bool) {
	if url, ok := s.try(ctx, "name", title, s.searcher.ByName); ok {
		monitoring.ImageLookup("name")
		return url, true
	}

	for _, part := range ingredientParts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if url, ok := s.try(ctx, "ingredient", name, s.searcher.ByIngredient); ok {
			monitoring.ImageLookup("ingredient")
			return url, true
		}
	}

	monitoring.ImageLookup("none")
	common.LogDebug("找不到食譜圖片", zap.String("title", title))
	return "", false
}

// try 以獨立逾時執行一次查詢，錯誤視為沒有結果
func (s *Service) try(ctx context.Context, stage, query string, search func(context.Context, string) ([]common.ImageMatch, error)) (string, bool) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	matches, err := search(callCtx, query)
	if err != nil {
		common.LogWarn("圖片查詢失敗",
			zap.String("stage", stage),
			zap.String("query", query),
			zap.Error(err),
		)
		return "", false
	}

	if len(matches) == 0 || matches[0].ThumbnailURL == "" {
		return "", false
	}
	return matches[0].ThumbnailURL, true
}
