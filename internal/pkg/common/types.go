package common

// IngredientPrediction 辨識引擎輸出的單一食材預測
type IngredientPrediction struct {
	ClassName  string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// IngredientSet 通過信心門檻且不重複的食材名稱，順序為首次出現的順序
type IngredientSet []string

// RecipeRequest 食譜生成請求
type RecipeRequest struct {
	Ingredients        []string `json:"ingredients"`
	DietaryPreferences []string `json:"dietary_preferences"`
	Allergies          []string `json:"allergies"`
	MealType           string   `json:"meal_type"`
	CookingTime        string   `json:"cooking_time"`
}

// SimilarRecipe 相似度搜尋回傳的參考食譜，只作為提示詞上下文
type SimilarRecipe struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Ingredients  []string `json:"ingredients,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
}

// RecipeOutput 生成的食譜
//
// ImageURL 只會在其餘欄位確定後才設定，查不到圖片時為 nil。
type RecipeOutput struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	CookingTime     string   `json:"cooking_time"`
	IngredientParts []string `json:"ingredient_parts"`
	Ingredients     []string `json:"ingredients"`
	Instructions    []string `json:"instructions"`
	ImageURL        *string  `json:"image_url"`
}

// EmbeddingVector 文字向量
type EmbeddingVector []float32

// ImageMatch 食譜圖片搜尋的單筆結果
type ImageMatch struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}
