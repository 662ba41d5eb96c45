package vision

import (
	"context"

	"github.com/vbonduro/foodscan/internal/domain"
)

// ImageMIMEType is the mime type every image is tagged with upstream.
const ImageMIMEType = "image/jpeg"

// NutritionPrompt is the shared instruction sent by all inference backends.
// Callers depend on the JSON shape it asks for, so it must not drift.
const NutritionPrompt = `You are a nutrition expert. Analyze this food image and provide detailed nutritional information.

Return ONLY a valid JSON object (no markdown, no code blocks) in this exact format:

{
  "foods": [
    {
      "name": "food item name",
      "portion": "estimated portion size",
      "calories": 0,
      "protein": 0,
      "carbs": 0,
      "fat": 0
    }
  ],
  "total_calories": 0,
  "total_protein": 0,
  "total_carbs": 0,
  "total_fat": 0
}

Important:
- List each food item separately
- Provide realistic portion estimates
- All numbers must be integers
- If multiple items, add them to foods array
- Calculate totals correctly`

// Analyzer sends an image plus NutritionPrompt to a hosted model and
// returns the raw text of the first completion.
type Analyzer interface {
	Complete(ctx context.Context, img domain.EncodedImage) (string, error)
}
