package testhelpers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/krishkalaria12/decor-serve/generate"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/service"
)

// PNG returns a solid w x h PNG.
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 120, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Provider returns a fixed image, or Err when set.
type Provider struct {
	ModelName models.ImageModel
	Output    []byte
	Err       error

	mu      sync.Mutex
	Prompts []string
	Sources []generate.Source
}

func (p *Provider) Model() models.ImageModel {
	return p.ModelName
}

func (p *Provider) Generate(ctx context.Context, src generate.Source, prompt string) (*generate.Result, error) {
	p.mu.Lock()
	p.Prompts = append(p.Prompts, prompt)
	p.Sources = append(p.Sources, src)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	return &generate.Result{
		Data:     p.Output,
		MIMEType: "image/png",
		Usage:    &generate.Usage{InputTokens: 10, OutputTokens: 20, EstimatedCostUSD: 0.01},
	}, nil
}

type Limiter struct {
	Allowed bool
	Err     error
	Keys    []string
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	l.Keys = append(l.Keys, key)
	return l.Allowed, l.Err
}

var ErrQueueClosed = errors.New("queue closed")

// Queue records jobs instead of running them.
type Queue struct {
	mu   sync.Mutex
	Jobs []service.GenerationJob
	Err  error
}

func (q *Queue) Enqueue(ctx context.Context, job service.GenerationJob) error {
	if q.Err != nil {
		return q.Err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Jobs = append(q.Jobs, job)
	return nil
}

func (q *Queue) Last() service.GenerationJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Jobs[len(q.Jobs)-1]
}
