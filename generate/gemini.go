package generate

import (
	"context"
	"fmt"

	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/models"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const geminiImageModel = "gemini-2.5-flash-image-preview"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider decorates images with Gemini 2.5 Flash Image by sending the prompt and the
// source image as inline data.
type GeminiProvider struct {
	models contentGenerator
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &GeminiProvider{models: client.Models, model: geminiImageModel}, nil
}

func (p *GeminiProvider) Model() models.ImageModel {
	return models.ModelGeminiFlashImage
}

func (p *GeminiProvider) Generate(ctx context.Context, src Source, prompt string) (*Result, error) {
	logger.Log.Info("Calling Gemini image generation", zap.String("model", p.model), zap.String("prompt", prompt))

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: src.MIMEType, Data: src.Data}},
		},
	}}

	resp, err := p.models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	usage := geminiUsage(resp)
	if usage != nil {
		logger.Log.Info("Gemini usage",
			zap.Int64("prompt_tokens", usage.InputTokens),
			zap.Int64("candidates_tokens", usage.OutputTokens),
			zap.Float64("estimated_cost_usd", usage.EstimatedCostUSD),
		)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil, ErrNoImageData
	}
	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return &Result{Data: part.InlineData.Data, MIMEType: mimeType, Usage: usage}, nil
		}
	}

	return nil, ErrNoImageData
}

func geminiUsage(resp *genai.GenerateContentResponse) *Usage {
	if resp.UsageMetadata == nil {
		return nil
	}
	prompt := int64(resp.UsageMetadata.PromptTokenCount)
	candidates := int64(resp.UsageMetadata.CandidatesTokenCount)
	return &Usage{
		InputTokens:      prompt,
		OutputTokens:     candidates,
		EstimatedCostUSD: geminiCost(prompt, candidates),
	}
}
