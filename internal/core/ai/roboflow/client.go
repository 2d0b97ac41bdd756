package roboflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"recipe-ai/internal/infrastructure/config"
	"recipe-ai/internal/infrastructure/monitoring"
	"recipe-ai/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// Client Roboflow serverless workflow 客戶端
type Client struct {
	client    *resty.Client
	apiKey    string
	workspace string
	useCache  bool
}

// NewClient 創建 Roboflow 客戶端
func NewClient(cfg config.RoboflowConfig) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(cfg.APIURL).
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json"),
		apiKey:    cfg.APIKey,
		workspace: cfg.Workspace,
		useCache:  cfg.UseCache,
	}
}

type imageInput struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type workflowRequest struct {
	APIKey   string                `json:"api_key"`
	Inputs   map[string]imageInput `json:"inputs"`
	UseCache bool                  `json:"use_cache"`
}

type workflowResponse struct {
	Outputs []json.RawMessage `json:"outputs"`
}

// Run 以本地圖片執行 workflow，回傳第一個輸出的原始 JSON
func (c *Client) Run(ctx context.Context, workflowID, imagePath string) (json.RawMessage, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	req := workflowRequest{
		APIKey: c.apiKey,
		Inputs: map[string]imageInput{
			"image": {Type: "base64", Value: base64.StdEncoding.EncodeToString(data)},
		},
		UseCache: c.useCache,
	}

	start := time.Now()
	output, err := c.run(ctx, workflowID, req)
	common.LogCollectorCall("roboflow", workflowID, time.Since(start), err)
	monitoring.CollectorCall("roboflow", workflowID, time.Since(start), err)
	return output, err
}

func (c *Client) run(ctx context.Context, workflowID string, req workflowRequest) (json.RawMessage, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"workspace": c.workspace,
			"workflow":  workflowID,
		}).
		SetBody(req).
		Post("/{workspace}/workflows/{workflow}")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Roboflow: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("Roboflow API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var result workflowResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse Roboflow response: %w", err)
	}
	if len(result.Outputs) == 0 {
		return nil, fmt.Errorf("no outputs in Roboflow response")
	}

	return result.Outputs[0], nil
}
