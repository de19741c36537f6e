package gemini

import (
	"github.com/google/generative-ai-go/genai"

	"github.com/poiesic/chatforge/ai"
)

// safetyCategories are the harm categories chatforge configures uniformly.
var safetyCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// safetySettings maps a coarse safety level onto Gemini's per-category
// thresholds. Low blocks only high-probability harm, high blocks even
// low-probability harm.
func safetySettings(level ai.SafetyLevel) []*genai.SafetySetting {
	var threshold genai.HarmBlockThreshold
	switch level {
	case ai.SafetyLow:
		threshold = genai.HarmBlockOnlyHigh
	case ai.SafetyHigh:
		threshold = genai.HarmBlockLowAndAbove
	default:
		threshold = genai.HarmBlockMediumAndAbove
	}

	settings := make([]*genai.SafetySetting, len(safetyCategories))
	for i, category := range safetyCategories {
		settings[i] = &genai.SafetySetting{
			Category:  category,
			Threshold: threshold,
		}
	}
	return settings
}
