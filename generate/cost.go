package generate

// List prices in USD per token.
const (
	openAITextInputCost   = 5.0 / 1_000_000
	openAIImageInputCost  = 10.0 / 1_000_000
	openAIImageOutputCost = 40.0 / 1_000_000

	geminiInputCost  = 0.30 / 1_000_000
	geminiOutputCost = 30.0 / 1_000_000
)

func openAICost(textTokens, imageTokens, outputTokens int64) float64 {
	return float64(textTokens)*openAITextInputCost +
		float64(imageTokens)*openAIImageInputCost +
		float64(outputTokens)*openAIImageOutputCost
}

func geminiCost(promptTokens, candidateTokens int64) float64 {
	return float64(promptTokens)*geminiInputCost + float64(candidateTokens)*geminiOutputCost
}
