// Package translation runs the two-phase AI translation flow: phase A
// translates an archive and returns a reviewable preview, phase B
// publishes the reviewed result into the catalog on explicit request.
package translation

import (
	"context"
	"time"

	"github.com/arqaam/mangactl/internal/api"
	"github.com/arqaam/mangactl/internal/job"
	"github.com/arqaam/mangactl/internal/logger"
	"github.com/arqaam/mangactl/internal/progress"
)

// TranslationAPI is the slice of the platform client the flow needs.
type TranslationAPI interface {
	SubmitTranslation(ctx context.Context, archivePath string, onTransfer api.TransferProgressFunc) (*api.SubmitResponse, error)
	TranslationStatus(ctx context.Context, jobID string) (api.StatusSnapshot, error)
	TranslationPreview(ctx context.Context, jobID string) (*api.TranslationPreview, error)
	PublishChapter(ctx context.Context, req api.PublishRequest) (*api.PublishOutcome, error)
}

// Flow drives one archive through translation and, separately, through
// publishing. The two phases never chain implicitly: publishing only
// happens through an explicit Publish call.
type Flow struct {
	Client            TranslationAPI
	TranslateInterval time.Duration
	PublishInterval   time.Duration
	MaxWait           time.Duration
	// OnUpdate observes progress of whichever phase is running.
	OnUpdate func(job.Snapshot)
}

// Translate submits the archive and waits for the translation job to
// complete, then fetches the preview with both page sets.
func (f *Flow) Translate(ctx context.Context, archivePath string) (*api.TranslationPreview, error) {
	ctrl := job.NewController(job.Config{
		Model:    progress.TranslationModel,
		Statuses: job.TranslationStatuses,
		Poll:     f.Client.TranslationStatus,
		Interval: f.TranslateInterval,
		MaxWait:  f.MaxWait,
		OnUpdate: f.OnUpdate,
	})

	final, err := ctrl.Run(ctx, func(ctx context.Context, onTransfer api.TransferProgressFunc) (*api.SubmitResponse, error) {
		return f.Client.SubmitTranslation(ctx, archivePath, onTransfer)
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Translation completed, fetching preview", "job_id", final.JobID)
	return f.Client.TranslationPreview(ctx, final.JobID)
}

// Publish persists a completed translation job as a catalog chapter.
// The server either finishes synchronously (2xx) or accepts the work
// (202) and is then polled until published or failed. The returned
// snapshot is terminal in both cases.
func (f *Flow) Publish(ctx context.Context, req api.PublishRequest) (job.Snapshot, error) {
	outcome, err := f.Client.PublishChapter(ctx, req)
	if err != nil {
		return job.Snapshot{Status: job.StatusError, Message: err.Error(), Err: err}, err
	}

	if !outcome.Accepted {
		snap := job.Snapshot{
			JobID:   outcome.JobID,
			Status:  job.StatusSuccess,
			Overall: 100,
			Message: outcome.Message,
		}
		if snap.Message == "" {
			snap.Message = "chapter published"
		}
		if f.OnUpdate != nil {
			f.OnUpdate(snap)
		}
		return snap, nil
	}

	ctrl := job.NewController(job.Config{
		Model:    progress.PublishModel,
		Statuses: job.PublishStatuses,
		Poll:     f.Client.TranslationStatus,
		Interval: f.PublishInterval,
		MaxWait:  f.MaxWait,
		OnUpdate: f.OnUpdate,
	})
	// The submission already happened above; the controller starts
	// from the accepted job id and goes straight to polling.
	return ctrl.Run(ctx, func(ctx context.Context, _ api.TransferProgressFunc) (*api.SubmitResponse, error) {
		return &api.SubmitResponse{
			JobID:      outcome.JobID,
			Status:     "publishing",
			TotalPages: outcome.TotalPages,
		}, nil
	})
}
