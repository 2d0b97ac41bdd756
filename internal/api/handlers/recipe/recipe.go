package recipe

import (
	"net/http"
	"strings"

	"recipe-ai/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// GenerateResponse 食譜生成結果
type GenerateResponse struct {
	Recipe *common.RecipeOutput `json:"recipe"`
}

// HandleGenerateRecipe 依食材與偏好生成食譜
func (h *Handler) HandleGenerateRecipe(c *gin.Context) {
	var req common.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.NewValidationError("invalid request body"))
		return
	}

	req.Ingredients = compact(req.Ingredients)
	if len(req.Ingredients) == 0 {
		common.WriteError(c, common.NewValidationError("ingredients must not be empty"))
		return
	}
	req.DietaryPreferences = compact(req.DietaryPreferences)
	req.Allergies = compact(req.Allergies)
	req.MealType = strings.TrimSpace(req.MealType)
	req.CookingTime = strings.TrimSpace(req.CookingTime)

	out, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{Recipe: out})
}

// compact 去除空白項目
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
