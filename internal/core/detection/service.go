package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recipe-ai/internal/infrastructure/monitoring"
	"recipe-ai/internal/pkg/common"

	"go.uber.org/zap"
)

// ObjectStore 物件儲存
type ObjectStore interface {
	Get(ctx context.Context, key, localPath string) error
}

// InferenceEngine 影像辨識引擎，回傳 workflow 第一個輸出的原始 JSON
type InferenceEngine interface {
	Run(ctx context.Context, workflowID, imagePath string) (json.RawMessage, error)
}

// Service 食材辨識流程
type Service struct {
	store      ObjectStore
	engine     InferenceEngine
	workflowID string
	threshold  float64
	tempDir    string
}

// Option 服務選項
type Option func(*Service)

// WithThreshold 設定信心門檻
func WithThreshold(threshold float64) Option {
	return func(s *Service) {
		s.threshold = threshold
	}
}

// WithTempDir 設定暫存檔目錄
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}

// NewService 創建食材辨識服務
func NewService(store ObjectStore, engine InferenceEngine, workflowID string, opts ...Option) *Service {
	s := &Service{
		store:      store,
		engine:     engine,
		workflowID: workflowID,
		threshold:  DefaultConfidenceThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detect 下載圖片、執行辨識並回傳通過門檻的食材
func (s *Service) Detect(ctx context.Context, imageRef string) (common.IngredientSet, error) {
	start := time.Now()
	set, err := s.detect(ctx, imageRef)
	monitoring.PipelineRun("detect", err, time.Since(start))
	return set, err
}

func (s *Service) detect(ctx context.Context, imageRef string) (common.IngredientSet, error) {
	tmp, err := os.CreateTemp(s.tempDir, "detect-*"+filepath.Ext(imageRef))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	localPath := tmp.Name()
	tmp.Close()
	defer os.Remove(localPath)

	if err := s.store.Get(ctx, imageRef, localPath); err != nil {
		common.LogWarn("圖片下載失敗", zap.String("image", imageRef), zap.Error(err))
		return nil, common.WrapError(common.ErrStorageUnavailable, err)
	}

	common.LogInfo("開始辨識食材", zap.String("image", imageRef))

	raw, err := s.engine.Run(ctx, s.workflowID, localPath)
	if err != nil {
		common.LogWarn("食材辨識失敗", zap.String("image", imageRef), zap.Error(err))
		return nil, common.WrapError(common.ErrInferenceFailure, err)
	}

	preds := ExtractPredictions(raw)
	set := FilterPredictions(preds, s.threshold)

	common.LogInfo("食材辨識完成",
		zap.String("image", imageRef),
		zap.Int("predictions", len(preds)),
		zap.Int("ingredients", len(set)),
	)
	return set, nil
}

// ExtractPredictions 從 {predictions: {predictions: [...]}} 取出預測
//
// 任一層缺少或型別不符都視為沒有預測；缺少 class 的紀錄略過，缺少 confidence 以 0 計。
func ExtractPredictions(raw json.RawMessage) []common.IngredientPrediction {
	var root map[string]interface{}
	if len(raw) == 0 || common.ParseJSONBytes(raw, &root) != nil {
		return nil
	}

	outer, ok := root["predictions"].(map[string]interface{})
	if !ok {
		return nil
	}
	list, ok := outer["predictions"].([]interface{})
	if !ok {
		return nil
	}

	preds := make([]common.IngredientPrediction, 0, len(list))
	for _, item := range list {
		rec, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, ok := rec["class"].(string)
		if !ok {
			continue
		}
		preds = append(preds, common.IngredientPrediction{
			ClassName:  name,
			Confidence: common.AsFloat(rec["confidence"], 0),
		})
	}
	return preds
}
