// Package worker executes generation jobs claimed from the queue. Each worker
// slot processes one job at a time to completion; the blocking provider call
// is the dominant cost and holding the slot for its duration is intentional.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyboard/internal/db"
	"storyboard/internal/domain"
	"storyboard/internal/geometry"
	"storyboard/internal/infra"
	"storyboard/internal/providers/panel"
	"storyboard/internal/storage"
)

// Deadline for recording a job's terminal state once execution finished.
const recordWriteTimeout = 10 * time.Second

// Options wires a worker's dependencies. All of them are required except
// PollInterval, which defaults to two seconds.
type Options struct {
	Queries      *db.Queries
	Store        *storage.FileStore
	Generator    panel.Generator
	Logger       infra.Logger
	BaseURL      string
	PollInterval time.Duration
}

type Worker struct {
	queries      *db.Queries
	store        *storage.FileStore
	generator    panel.Generator
	logger       infra.Logger
	baseURL      string
	pollInterval time.Duration
}

func New(opts Options) *Worker {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Worker{
		queries:      opts.Queries,
		store:        opts.Store,
		generator:    opts.Generator,
		logger:       opts.Logger,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		pollInterval: interval,
	}
}

// Run claims and executes jobs until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.queries.ClaimNextJob(ctx)
		if err != nil {
			if !errors.Is(err, db.ErrNoJob) {
				w.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.pollInterval):
			}
			continue
		}

		w.Handle(ctx, job)
	}
}

// Handle executes one claimed job and records its terminal state. Every
// execution error is captured as a FAILURE description; nothing propagates out
// to crash the process.
func (w *Worker) Handle(ctx context.Context, job db.Job) {
	w.logger.Info().
		Str("job_id", job.ID.String()).
		Str("kind", string(job.Kind)).
		Str("image_id", job.ImageID).
		Msg("worker: picked job")

	result, err := w.execute(ctx, job)

	// Terminal-state writes run on a detached context: shutdown canceling ctx
	// mid-generation must not leave the row STARTED forever.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordWriteTimeout)
	defer cancel()

	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("worker: job failed")
		if failErr := w.queries.FailJob(recordCtx, job.ID, err.Error()); failErr != nil {
			w.logger.Error().Err(failErr).Str("job_id", job.ID.String()).Msg("worker: record failure failed")
		}
		return
	}
	if err := w.queries.CompleteJob(recordCtx, job.ID, result); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("worker: record success failed")
		return
	}
	w.logger.Info().Str("job_id", job.ID.String()).Str("result", result).Msg("worker: job succeeded")
}

func (w *Worker) execute(ctx context.Context, job db.Job) (string, error) {
	switch job.Kind {
	case domain.JobKindCreate:
		return w.executeCreate(ctx, job)
	case domain.JobKindEdit:
		return w.executeEdit(ctx, job)
	default:
		return "", fmt.Errorf("unsupported job kind %q", job.Kind)
	}
}

// executeCreate runs the first generation for an image: pad the sketch to a
// supported ratio, generate, crop the result back to the sketch's dimensions,
// then persist artifact v1 and a fresh image record.
func (w *Worker) executeCreate(ctx context.Context, job db.Job) (string, error) {
	sketch, err := geometry.Decode(job.Sketch)
	if err != nil {
		return "", fmt.Errorf("decode sketch: %w", err)
	}
	bounds := sketch.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()

	padded, mask, offset := geometry.PadToAspect(sketch)
	paddedPNG, err := geometry.EncodePNG(padded)
	if err != nil {
		return "", fmt.Errorf("encode padded sketch: %w", err)
	}
	maskPNG, err := geometry.EncodePNG(mask)
	if err != nil {
		return "", fmt.Errorf("encode mask: %w", err)
	}

	res, err := w.generator.Create(ctx, panel.CreateRequest{
		Prompt:    job.Prompt,
		SketchPNG: paddedPNG,
		MaskPNG:   maskPNG,
	})
	if err != nil {
		return "", err
	}

	generated, err := geometry.Decode(res.Image)
	if err != nil {
		return "", fmt.Errorf("decode generated panel: %w", err)
	}
	final, err := geometry.EncodePNG(geometry.CropBack(generated, offset, origW, origH))
	if err != nil {
		return "", fmt.Errorf("encode panel: %w", err)
	}

	key, err := w.store.Write(ctx, storage.ArtifactKey(job.ImageID, 1), final)
	if err != nil {
		return "", fmt.Errorf("persist artifact: %w", err)
	}

	// The record is written only now, after artifact persistence succeeded:
	// "record exists" must imply "a generation completed".
	if err := w.queries.UpsertImageRecord(ctx, job.ImageID, 1, res.Handle); err != nil {
		return "", fmt.Errorf("write image record: %w", err)
	}

	w.logger.Info().Str("image_id", job.ImageID).Int("version", 1).Msg("worker: created image")
	return w.artifactURL(key), nil
}

// executeEdit continues a prior conversation and advances the image's version
// by one. Edits on images that never completed a create are permanent
// failures, not retry candidates.
func (w *Worker) executeEdit(ctx context.Context, job db.Job) (string, error) {
	rec, err := w.queries.GetImageRecord(ctx, job.ImageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: no completed generation for %s", domain.ErrUnknownImage, job.ImageID)
		}
		return "", fmt.Errorf("load image record: %w", err)
	}

	res, err := w.generator.Continue(ctx, panel.ContinueRequest{
		Prompt:             job.Prompt,
		ConversationHandle: rec.ConversationHandle,
	})
	if err != nil {
		return "", err
	}

	newVersion := rec.LatestVersion + 1
	key, err := w.store.Write(ctx, storage.ArtifactKey(job.ImageID, newVersion), res.Image)
	if err != nil {
		return "", fmt.Errorf("persist artifact: %w", err)
	}
	if err := w.queries.UpsertImageRecord(ctx, job.ImageID, newVersion, res.Handle); err != nil {
		return "", fmt.Errorf("write image record: %w", err)
	}

	w.logger.Info().Str("image_id", job.ImageID).Int("version", newVersion).Msg("worker: edited image")
	return w.artifactURL(key), nil
}

func (w *Worker) artifactURL(key string) string {
	return w.baseURL + "/" + key
}
