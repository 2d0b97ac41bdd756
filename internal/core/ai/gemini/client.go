package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-ai/internal/infrastructure/config"
	"recipe-ai/internal/infrastructure/monitoring"
	"recipe-ai/internal/pkg/common"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client Gemini 文字向量與結構化生成
type Client struct {
	client         *genai.Client
	model          string
	temperature    float32
	timeout        time.Duration
	embeddingModel string
	dimension      int
}

// NewClient 創建 Gemini 客戶端，整個程序共用一個連線
func NewClient(ctx context.Context, cfg config.GeminiConfig, emb config.EmbeddingConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		client:         cl,
		model:          cfg.Model,
		temperature:    cfg.Temperature,
		timeout:        cfg.Timeout,
		embeddingModel: emb.Model,
		dimension:      emb.Dimension,
	}, nil
}

// Close 關閉連線
func (c *Client) Close() error {
	return c.client.Close()
}

// Embed 計算文字向量
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	em := c.client.EmbeddingModel(c.embeddingModel)
	em.TaskType = genai.TaskTypeRetrievalQuery

	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err == nil && (resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0) {
		err = errors.New("gemini embed: empty embedding")
	}
	common.LogCollectorCall("gemini", "embed", time.Since(start), err)
	monitoring.CollectorCall("gemini", "embed", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return fitDimension(resp.Embedding.Values, c.dimension), nil
}

// GenerateRecipe 依提示詞生成符合食譜結構的 JSON
func (c *Client) GenerateRecipe(ctx context.Context, prompt string) (*common.RecipeOutput, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	m := c.client.GenerativeModel(c.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(c.temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   recipeSchema(),
	}

	start := time.Now()
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	common.LogCollectorCall("gemini", "generate", time.Since(start), err)
	monitoring.CollectorCall("gemini", "generate", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	txt := firstText(resp)
	if txt == "" {
		return nil, errors.New("gemini generate: empty response")
	}
	return DecodeRecipe(txt)
}

// recipeSchema 食譜輸出結構，不含 image_url
func recipeSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	list := &genai.Schema{Type: genai.TypeArray, Items: str}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":        str,
			"description":  str,
			"cooking_time": str,
			"ingredient_parts": {
				Type:        genai.TypeArray,
				Items:       str,
				Description: "Bare ingredient names used for image lookup",
			},
			"ingredients": {
				Type:        genai.TypeArray,
				Items:       str,
				Description: "Ingredients with quantities",
			},
			"instructions": list,
		},
		Required: []string{"title", "description", "cooking_time", "ingredient_parts", "ingredients", "instructions"},
	}
}

// DecodeRecipe 解析模型輸出的食譜 JSON，忽略模型自行填入的 image_url
func DecodeRecipe(content string) (*common.RecipeOutput, error) {
	var out common.RecipeOutput
	if err := common.ParseJSON(common.ExtractJSONObject(content), &out); err != nil {
		return nil, fmt.Errorf("bad recipe JSON: %w", err)
	}
	out.ImageURL = nil
	return &out, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

// fitDimension 截斷超出設定維度的向量
func fitDimension(values []float32, dim int) []float32 {
	if dim > 0 && len(values) > dim {
		return values[:dim]
	}
	return values
}

func ptrFloat32(v float32) *float32 { return &v }
