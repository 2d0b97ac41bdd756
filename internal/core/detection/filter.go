package detection

import "recipe-ai/internal/pkg/common"

// DefaultConfidenceThreshold 預設信心門檻
const DefaultConfidenceThreshold = 0.7

// FilterPredictions 保留信心值 >= threshold 的預測，同名只取第一次出現
func FilterPredictions(preds []common.IngredientPrediction, threshold float64) common.IngredientSet {
	seen := make(map[string]struct{}, len(preds))
	out := make(common.IngredientSet, 0, len(preds))

	for _, p := range preds {
		if p.Confidence < threshold {
			continue
		}
		if _, dup := seen[p.ClassName]; dup {
			continue
		}
		seen[p.ClassName] = struct{}{}
		out = append(out, p.ClassName)
	}

	return out
}
