package mealdb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"recipe-ai/internal/infrastructure/config"
	"recipe-ai/internal/infrastructure/monitoring"
	"recipe-ai/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// Cache 回應快取
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// Client TheMealDB 食譜圖片搜尋
type Client struct {
	client *resty.Client
	cache  Cache
}

// Option 客戶端選項
type Option func(*Client)

// WithCache 以快取保存查詢回應
func WithCache(c Cache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// NewClient 創建 TheMealDB 客戶端
func NewClient(cfg config.MealDBConfig, opts ...Option) *Client {
	c := &Client{
		client: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type mealsResponse struct {
	Meals []struct {
		StrMeal      string `json:"strMeal"`
		StrMealThumb string `json:"strMealThumb"`
	} `json:"meals"`
}

// ByName 以食譜名稱搜尋
func (c *Client) ByName(ctx context.Context, name string) ([]common.ImageMatch, error) {
	return c.lookup(ctx, "/search.php", "s", name)
}

// ByIngredient 以主要食材搜尋
func (c *Client) ByIngredient(ctx context.Context, ingredient string) ([]common.ImageMatch, error) {
	return c.lookup(ctx, "/filter.php", "i", ingredient)
}

func (c *Client) lookup(ctx context.Context, path, param, value string) ([]common.ImageMatch, error) {
	key := fmt.Sprintf("mealdb:%s:%s", param, value)
	if c.cache != nil {
		if data, ok := c.cache.Get(ctx, key); ok {
			return decodeMeals(data)
		}
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam(param, value).
		Get(path)
	if err == nil && resp.StatusCode() != http.StatusOK {
		err = fmt.Errorf("TheMealDB returned status %d", resp.StatusCode())
	}
	common.LogCollectorCall("mealdb", path, time.Since(start), err)
	monitoring.CollectorCall("mealdb", path, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("mealdb lookup %s=%q failed: %w", param, value, err)
	}

	matches, err := decodeMeals(resp.Body())
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(ctx, key, resp.Body())
	}
	return matches, nil
}

// decodeMeals 解析回應，meals 為 null 時回傳空結果
func decodeMeals(data []byte) ([]common.ImageMatch, error) {
	var result mealsResponse
	if err := common.ParseJSONBytes(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse TheMealDB response: %w", err)
	}

	matches := make([]common.ImageMatch, 0, len(result.Meals))
	for _, m := range result.Meals {
		matches = append(matches, common.ImageMatch{Title: m.StrMeal, ThumbnailURL: m.StrMealThumb})
	}
	return matches, nil
}
