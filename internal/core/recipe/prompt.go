package recipe

import (
	"context"
	"fmt"
	"strings"

	"recipe-ai/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultTopK 相似食譜數量
const DefaultTopK = 5

const (
	listsInstruction = `Return two parallel ingredient lists: "ingredient_parts" with bare ingredient names only (for example "chicken breast") and "ingredients" with the same items including quantities (for example "2 chicken breasts").`
	imageInstruction = `The recipe image will be looked up from the recipe title and "ingredient_parts", so use a common, searchable dish name and plain ingredient names.`
)

// Embedder 文字向量服務
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SimilaritySearch 相似食譜搜尋
type SimilaritySearch interface {
	Search(ctx context.Context, vec []float32, topK int) ([]common.SimilarRecipe, error)
}

// PromptBuilder 結合相似食譜組合生成提示詞
type PromptBuilder struct {
	embedder Embedder
	search   SimilaritySearch
	topK     int
}

// NewPromptBuilder 創建提示詞建構器
func NewPromptBuilder(embedder Embedder, search SimilaritySearch, topK int) *PromptBuilder {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &PromptBuilder{embedder: embedder, search: search, topK: topK}
}

// Build 回傳提示詞與實際使用的參考食譜數
func (b *PromptBuilder) Build(ctx context.Context, req common.RecipeRequest) (string, int) {
	examples := b.retrieve(ctx, common.JoinList(req.Ingredients))
	return renderPrompt(req, examples), len(examples)
}

// retrieve 檢索失敗時不帶參考食譜
func (b *PromptBuilder) retrieve(ctx context.Context, query string) []common.SimilarRecipe {
	if b.embedder == nil || b.search == nil {
		return nil
	}

	vec, err := b.embedder.Embed(ctx, query)
	if err != nil {
		common.LogWarn("向量計算失敗，不使用參考食譜", zap.Error(err))
		return nil
	}

	examples, err := b.search.Search(ctx, vec, b.topK)
	if err != nil {
		common.LogWarn("相似食譜搜尋失敗，不使用參考食譜", zap.Error(err))
		return nil
	}
	if len(examples) > b.topK {
		examples = examples[:b.topK]
	}
	return examples
}

func renderPrompt(req common.RecipeRequest, examples []common.SimilarRecipe) string {
	var sb strings.Builder

	sb.WriteString("Generate a recipe")
	if req.MealType != "" {
		sb.WriteString(" for " + req.MealType)
	}
	if req.CookingTime != "" {
		sb.WriteString(" that can be prepared in " + req.CookingTime)
	}
	sb.WriteString(".\n")

	fmt.Fprintf(&sb, "Use the following ingredients: %s.\n", common.JoinList(req.Ingredients))

	if len(req.DietaryPreferences) > 0 {
		fmt.Fprintf(&sb, "Consider these dietary preferences: %s.\n", common.JoinList(req.DietaryPreferences))
	}
	if len(req.Allergies) > 0 {
		fmt.Fprintf(&sb, "Make sure the recipe is safe for someone with these allergies: %s.\n", common.JoinList(req.Allergies))
	}

	sb.WriteString(listsInstruction + "\n")

	fmt.Fprintf(&sb, "Similar recipes for reference (%d):\n", len(examples))
	if len(examples) == 0 {
		sb.WriteString("none\n")
	}
	for _, ex := range examples {
		line, err := common.ToJSON(ex)
		if err != nil {
			continue
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString(imageInstruction)
	return sb.String()
}
