package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/krishkalaria12/decor-serve/models"
)

var (
	ErrProviderUnavailable = errors.New("image model is not configured")
	ErrNoImageData         = errors.New("provider response did not include image data")
)

// Source is the image the provider decorates.
type Source struct {
	Data     []byte
	MIMEType string
}

// Usage is the token accounting a provider reported, with the cost estimated from list prices.
type Usage struct {
	TextInputTokens  int64
	ImageInputTokens int64
	InputTokens      int64
	OutputTokens     int64
	EstimatedCostUSD float64
}

type Result struct {
	Data     []byte
	MIMEType string
	Usage    *Usage
}

type Provider interface {
	Model() models.ImageModel
	Generate(ctx context.Context, src Source, prompt string) (*Result, error)
}

type Registry struct {
	providers map[models.ImageModel]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[models.ImageModel]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Model()] = p
}

func (r *Registry) Get(model models.ImageModel) (Provider, error) {
	p, ok := r.providers[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, model)
	}
	return p, nil
}

func (r *Registry) Models() []models.ImageModel {
	out := make([]models.ImageModel, 0, len(r.providers))
	for m := range r.providers {
		out = append(out, m)
	}
	return out
}
