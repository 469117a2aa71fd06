package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"

	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

type imageEditor interface {
	Edit(ctx context.Context, body openai.ImageEditParams, opts ...option.RequestOption) (*openai.ImagesResponse, error)
}

// OpenAIProvider decorates images with the gpt-image-1 edit endpoint.
type OpenAIProvider struct {
	images imageEditor
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{images: &client.Images}
}

func (p *OpenAIProvider) Model() models.ImageModel {
	return models.ModelOpenAIGPTImage1
}

func (p *OpenAIProvider) Generate(ctx context.Context, src Source, prompt string) (*Result, error) {
	logger.Log.Info("Calling OpenAI image edit endpoint", zap.String("prompt", prompt))

	file := openai.File(bytes.NewReader(src.Data), "image"+extensionFor(src.MIMEType), src.MIMEType)
	resp, err := p.images.Edit(ctx, openai.ImageEditParams{
		Image:   openai.ImageEditParamsImageUnion{OfFile: file},
		Prompt:  prompt,
		Model:   openai.ImageModelGPTImage1,
		N:       openai.Int(1),
		Quality: openai.ImageEditParamsQualityMedium,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image edit: %w", err)
	}

	usage := openAIUsage(resp)
	if usage != nil {
		logger.Log.Info("OpenAI usage",
			zap.Int64("text_input_tokens", usage.TextInputTokens),
			zap.Int64("image_input_tokens", usage.ImageInputTokens),
			zap.Int64("image_output_tokens", usage.OutputTokens),
			zap.Float64("estimated_cost_usd", usage.EstimatedCostUSD),
		)
	} else {
		logger.Log.Warn("No usage info returned by OpenAI; cannot compute token-based cost")
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrNoImageData
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode openai image: %w", err)
	}

	return &Result{Data: data, MIMEType: "image/png", Usage: usage}, nil
}

func openAIUsage(resp *openai.ImagesResponse) *Usage {
	u := resp.Usage
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return nil
	}
	text := u.InputTokensDetails.TextTokens
	image := u.InputTokensDetails.ImageTokens
	return &Usage{
		TextInputTokens:  text,
		ImageInputTokens: image,
		InputTokens:      u.InputTokens,
		OutputTokens:     u.OutputTokens,
		EstimatedCostUSD: openAICost(text, image, u.OutputTokens),
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".png"
}
