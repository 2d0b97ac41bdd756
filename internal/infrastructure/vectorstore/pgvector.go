package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"recipe-ai/internal/infrastructure/config"
	"recipe-ai/internal/infrastructure/monitoring"
	"recipe-ai/internal/pkg/common"
)

// PGVectorStore 以 Postgres + pgvector 做相似食譜搜尋
type PGVectorStore struct {
	pool  *pgxpool.Pool
	query string
}

// NewPGVectorStore 建立連線池
func NewPGVectorStore(ctx context.Context, cfg config.DatabaseConfig) (*PGVectorStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return &PGVectorStore{pool: pool, query: searchQuery(cfg.Table)}, nil
}

// searchQuery 依餘弦距離排序取前 k 筆，table 可帶 schema (public.recipes)
func searchQuery(table string) string {
	return fmt.Sprintf(`SELECT title, COALESCE(description, ''), COALESCE(ingredients, '[]'::jsonb), COALESCE(instructions, '[]'::jsonb)
FROM %s
ORDER BY embedding <=> $1::vector
LIMIT $2`, pgx.Identifier(strings.Split(table, ".")).Sanitize())
}

// Search 回傳與向量最相近的 topK 筆食譜
func (s *PGVectorStore) Search(ctx context.Context, vec []float32, topK int) ([]common.SimilarRecipe, error) {
	start := time.Now()
	recipes, err := s.search(ctx, vec, topK)
	common.LogCollectorCall("pgvector", "search", time.Since(start), err)
	monitoring.CollectorCall("pgvector", "search", time.Since(start), err)
	return recipes, err
}

func (s *PGVectorStore) search(ctx context.Context, vec []float32, topK int) ([]common.SimilarRecipe, error) {
	rows, err := s.pool.Query(ctx, s.query, pgvector.NewVector(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	defer rows.Close()

	recipes := make([]common.SimilarRecipe, 0, topK)
	for rows.Next() {
		var (
			title, description        string
			ingredients, instructions []byte
		)
		if err := rows.Scan(&title, &description, &ingredients, &instructions); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r, err := decodeRow(title, description, ingredients, instructions)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	return recipes, nil
}

func decodeRow(title, description string, ingredients, instructions []byte) (common.SimilarRecipe, error) {
	r := common.SimilarRecipe{Title: title, Description: description}
	if len(ingredients) > 0 {
		if err := common.ParseJSONBytes(ingredients, &r.Ingredients); err != nil {
			return r, fmt.Errorf("invalid ingredients for %q: %w", title, err)
		}
	}
	if len(instructions) > 0 {
		if err := common.ParseJSONBytes(instructions, &r.Instructions); err != nil {
			return r, fmt.Errorf("invalid instructions for %q: %w", title, err)
		}
	}
	return r, nil
}

// Ping 檢查資料庫連線
func (s *PGVectorStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close 關閉連線池
func (s *PGVectorStore) Close() {
	s.pool.Close()
}
