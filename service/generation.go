package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/krishkalaria12/decor-serve/generate"
	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/storage"
	"go.uber.org/zap"
)

// maxSourceBytes caps how much of a stored original is read into memory for a provider call.
const maxSourceBytes = 50 << 20

func (s *ImageService) readSource(ctx context.Context, ref models.ImageRef) (generate.Source, error) {
	rc, err := s.store.Open(ctx, ref.StorageID)
	if err != nil {
		return generate.Source{}, fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxSourceBytes+1))
	if err != nil {
		return generate.Source{}, fmt.Errorf("read source: %w", err)
	}
	if len(data) > maxSourceBytes {
		return generate.Source{}, fmt.Errorf("source image exceeds %d bytes", maxSourceBytes)
	}

	return generate.Source{Data: data, MIMEType: http.DetectContentType(data)}, nil
}

// decorate runs the provider and the resize step and stores the result under a fresh key.
func (s *ImageService) decorate(ctx context.Context, job GenerationJob) (models.ImageRef, *generate.Usage, error) {
	provider, err := s.providers.Get(job.Model)
	if err != nil {
		return models.ImageRef{}, nil, err
	}

	src, err := s.readSource(ctx, job.Source)
	if err != nil {
		return models.ImageRef{}, nil, err
	}

	result, err := provider.Generate(ctx, src, job.Prompt)
	if err != nil {
		return models.ImageRef{}, nil, err
	}

	resized, err := generate.ResizeAndEncode(result.Data)
	if err != nil {
		return models.ImageRef{}, result.Usage, err
	}

	key := storage.DecoratedKey(job.UserID, job.ImageID, generate.OutputExtension)
	if err := s.store.Put(ctx, key, bytes.NewReader(resized), int64(len(resized)), generate.OutputMIMEType); err != nil {
		return models.ImageRef{}, result.Usage, fmt.Errorf("store decorated image: %w", err)
	}

	url, err := s.store.URL(ctx, key)
	if err != nil {
		s.release(context.WithoutCancel(ctx), key)
		return models.ImageRef{}, result.Usage, fmt.Errorf("resolve decorated url: %w", err)
	}

	return models.ImageRef{URL: url, StorageID: key}, result.Usage, nil
}

// ProcessGeneration is run by a worker for each queued job. Failures are logged, leave the
// record generating and release the decorated image it replaced.
func (s *ImageService) ProcessGeneration(ctx context.Context, job GenerationJob) {
	start := s.now()
	log := logger.Log.With(
		zap.String("image_id", job.ImageID.String()),
		zap.String("model", string(job.Model)),
	)
	log.Info("Processing generation job", zap.Duration("queued_for", start.Sub(job.EnqueuedAt)))

	ctx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	decorated, usage, err := s.decorate(ctx, job)

	// finishing and cleanup must not be cut short by the provider deadline
	cleanupCtx, cleanupCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cleanupCancel()

	if err != nil {
		log.Error("Generation failed", zap.Error(err))
		s.releasePrevious(cleanupCtx, job)
		s.observe(job.Model, "failure", start, usage)
		return
	}

	if err := s.FinishGeneration(cleanupCtx, job.ImageID, job.Original, decorated, job.Prompt); err != nil {
		log.Warn("Failed to record generated image, releasing it", zap.Error(err))
		s.release(cleanupCtx, decorated.StorageID)
		s.releasePrevious(cleanupCtx, job)
		s.observe(job.Model, "discarded", start, usage)
		return
	}

	if job.Previous != nil && job.Previous.StorageID != decorated.StorageID {
		s.release(cleanupCtx, job.Previous.StorageID)
	}

	s.observe(job.Model, "success", start, usage)
	log.Info("Generation finished",
		zap.String("storage_id", decorated.StorageID),
		zap.Duration("duration", s.now().Sub(start)),
	)
}

// releasePrevious frees the decorated image a failed regeneration was going to replace. The
// record is generating or gone, so nothing references it any more.
func (s *ImageService) releasePrevious(ctx context.Context, job GenerationJob) {
	if job.Previous == nil {
		return
	}
	s.release(ctx, job.Previous.StorageID)
}

func (s *ImageService) observe(model models.ImageModel, outcome string, start time.Time, usage *generate.Usage) {
	if s.metrics == nil {
		return
	}
	var cost float64
	if usage != nil {
		cost = usage.EstimatedCostUSD
	}
	s.metrics.ObserveGeneration(string(model), outcome, s.now().Sub(start), cost)
}
