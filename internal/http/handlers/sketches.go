package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storyboard/internal/db"
	"storyboard/internal/domain"
)

// Fetching a completed job's result must not block the status endpoint for
// long; past this deadline the lookup is reported as a retrieval error.
const resultFetchTimeout = time.Second

type editRequest struct {
	ImageID string `json:"image_id"`
	Prompt  string `json:"prompt"`
}

type jobAccepted struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	ImageID string `json:"image_id"`
}

// SketchRefine accepts a multipart sketch upload and enqueues a create job.
// The image id is generated here, before enqueue, so the client knows it ahead
// of completion.
func (a *App) SketchRefine(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "invalid_input", "no file uploaded")
		return
	}
	defer file.Close()

	sketch, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "invalid_input", "failed to read upload")
		return
	}
	if len(sketch) == 0 {
		a.error(w, http.StatusUnprocessableEntity, "invalid_input", "no file uploaded")
		return
	}

	imageID := newImageID()
	jobID, err := a.Q.EnqueueJob(r.Context(), db.EnqueueJobParams{
		Kind:    domain.JobKindCreate,
		ImageID: imageID,
		Prompt:  a.Cfg.FirstRefinePrompt,
		Sketch:  sketch,
	})
	if err != nil {
		a.Log.Error().Err(err).Msg("refine: enqueue failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}

	a.Log.Debug().Str("job_id", jobID.String()).Str("image_id", imageID).Int("bytes", len(sketch)).Msg("refine: enqueued")
	a.json(w, http.StatusOK, jobAccepted{JobID: jobID.String(), Status: string(domain.JobStatusPending), ImageID: imageID})
}

// SketchEdit enqueues an edit job for an image that already completed at least
// one generation. Unknown ids are rejected here, before any job exists; the
// worker re-checks at execution time as well.
func (a *App) SketchEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_input", "invalid payload")
		return
	}
	req.ImageID = strings.TrimSpace(req.ImageID)
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.ImageID == "" || req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "invalid_input", "image_id and prompt are required")
		return
	}

	if _, err := a.Q.GetImageRecord(r.Context(), req.ImageID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "unknown_image", "unknown image_id")
			return
		}
		a.Log.Error().Err(err).Msg("edit: record lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load image record")
		return
	}

	jobID, err := a.Q.EnqueueJob(r.Context(), db.EnqueueJobParams{
		Kind:    domain.JobKindEdit,
		ImageID: req.ImageID,
		Prompt:  req.Prompt,
	})
	if err != nil {
		a.Log.Error().Err(err).Msg("edit: enqueue failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}

	a.json(w, http.StatusOK, jobAccepted{JobID: jobID.String(), Status: string(domain.JobStatusPending), ImageID: req.ImageID})
}

// SketchStatus reports the lifecycle state of one job. Terminal states are
// stable: repeated calls return the same answer.
func (a *App) SketchStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "job_id"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_input", "malformed job_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), resultFetchTimeout)
	defer cancel()

	job, err := a.Q.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The queue backend cannot tell an unknown id apart from a job
			// that has not been recorded yet; report it as pending.
			a.json(w, http.StatusOK, map[string]string{"status": string(domain.JobStatusPending)})
			return
		}
		a.Log.Error().Err(err).Str("job_id", jobID.String()).Msg("status: lookup failed")
		a.error(w, http.StatusInternalServerError, "retrieval", "error fetching job status")
		return
	}

	switch job.Status {
	case domain.JobStatusSuccess:
		if !job.Result.Valid || job.Result.String == "" {
			a.Log.Error().Str("job_id", jobID.String()).Msg("status: successful job has no stored result")
			a.error(w, http.StatusInternalServerError, "retrieval", "error fetching result")
			return
		}
		a.json(w, http.StatusOK, map[string]string{"status": string(job.Status), "url": job.Result.String})
	case domain.JobStatusFailure:
		a.json(w, http.StatusOK, map[string]string{"status": string(job.Status)})
	default:
		a.json(w, http.StatusOK, map[string]string{"status": string(job.Status)})
	}
}

// SketchStatusList reports every known job with its current state. Order is
// unspecified.
func (a *App) SketchStatusList(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Q.ListJobs(r.Context())
	if err != nil {
		a.Log.Error().Err(err).Msg("status: list failed")
		a.error(w, http.StatusInternalServerError, "retrieval", "error listing jobs")
		return
	}

	entries := make([]map[string]string, 0, len(jobs))
	for _, job := range jobs {
		entry := map[string]string{
			"job_id": job.ID.String(),
			"status": string(job.Status),
		}
		switch job.Status {
		case domain.JobStatusSuccess:
			entry["url"] = job.Result.String
		case domain.JobStatusFailure:
			entry["error"] = job.Error.String
		}
		entries = append(entries, entry)
	}
	a.json(w, http.StatusOK, entries)
}

// newImageID produces the client-visible opaque image token.
func newImageID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
