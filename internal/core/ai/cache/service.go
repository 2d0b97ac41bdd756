package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"recipe-ai/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Embedder 文字向量服務
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache 以 Redis 快取文字向量，Redis 失敗時直接呼叫下層服務
type EmbeddingCache struct {
	client *redis.Client
	next   Embedder
	model  string
	ttl    time.Duration
}

// NewEmbeddingCache 創建向量快取
func NewEmbeddingCache(client *redis.Client, next Embedder, model string, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{
		client: client,
		next:   next,
		model:  model,
		ttl:    ttl,
	}
}

// Embed 先查快取，未命中時計算並寫回
func (s *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.generateKey(text)

	data, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vec []float32
		if uerr := common.ParseJSONBytes(data, &vec); uerr == nil {
			common.LogCacheHit("embedding")
			return vec, nil
		}
		common.LogWarn("向量快取內容無法解析", zap.String("key", key))
	case err == redis.Nil:
		common.LogCacheMiss("embedding")
	default:
		common.LogWarn("向量快取讀取失敗", zap.Error(err))
	}

	vec, err := s.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	payload, err := common.ToJSON(vec)
	if err != nil {
		return vec, nil
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		common.LogWarn("向量快取寫入失敗", zap.Error(err))
	}

	return vec, nil
}

// generateKey 生成快取鍵
func (s *EmbeddingCache) generateKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s:%s", s.model, hex.EncodeToString(hash[:]))
}
