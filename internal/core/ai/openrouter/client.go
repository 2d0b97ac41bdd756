package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"recipe-ai/internal/core/ai/gemini"
	"recipe-ai/internal/infrastructure/config"
	"recipe-ai/internal/infrastructure/monitoring"
	"recipe-ai/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// systemPrompt 要求模型只回傳食譜 JSON
const systemPrompt = `You are a recipe generator. Reply with a single JSON object and nothing else, with the keys
"title" (string), "description" (string), "cooking_time" (string), "ingredient_parts" (array of bare ingredient names),
"ingredients" (array of ingredients with quantities) and "instructions" (array of steps).`

// Client OpenRouter 結構化食譜生成
type Client struct {
	client      *resty.Client
	model       string
	maxTokens   int
	temperature float64
}

// Message 消息結構
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat 回應格式
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request 表示 API 請求
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient 創建 OpenRouter 客戶端
func NewClient(cfg config.OpenRouterConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Title", "Recipe AI")

	return &Client{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// GenerateRecipe 依提示詞生成食譜
func (c *Client) GenerateRecipe(ctx context.Context, prompt string) (*common.RecipeOutput, error) {
	req := Request{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      c.maxTokens,
		Temperature:    c.temperature,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	start := time.Now()
	content, err := c.complete(ctx, req)
	common.LogCollectorCall("openrouter", "generate", time.Since(start), err)
	monitoring.CollectorCall("openrouter", "generate", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return gemini.DecodeRecipe(content)
}

func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("OpenRouter API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var result Response
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenRouter response")
	}

	common.LogDebug("OpenRouter 用量",
		zap.String("id", result.ID),
		zap.Int("prompt_tokens", result.Usage.PromptTokens),
		zap.Int("completion_tokens", result.Usage.CompletionTokens),
	)

	return result.Choices[0].Message.Content, nil
}
