package batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arqaam/mangactl/internal/api"
	"github.com/arqaam/mangactl/internal/apperrors"
	"github.com/arqaam/mangactl/internal/job"
	"github.com/arqaam/mangactl/internal/logger"
	"github.com/arqaam/mangactl/internal/progress"
)

// ItemStatus is the lifecycle of one archive inside a batch.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemUploading ItemStatus = "uploading"
	ItemSuccess   ItemStatus = "success"
	ItemError     ItemStatus = "error"
)

// Item is one chapter archive queued for upload.
type Item struct {
	ID     string
	Path   string
	Number string
	Title  string

	// ImageCount is the local page count; Counting is true until the
	// archive has been inspected. A batch never starts while any item
	// is still counting.
	ImageCount int
	Counting   bool

	Status   ItemStatus
	Progress int
	JobID    string
	Err      error
}

// NewItem builds a pending item from an archive path, guessing number
// and title from the filename.
func NewItem(path string) *Item {
	parsed := ParseChapterFilename(path)
	return &Item{
		ID:       uuid.New().String(),
		Path:     path,
		Number:   parsed.Number,
		Title:    parsed.Title,
		Status:   ItemPending,
		Counting: true,
	}
}

// CountImages inspects the archive and records the page count. It must
// run (and finish) before the item enters RunAll.
func (it *Item) CountImages() error {
	images, err := CountArchiveImages(it.Path)
	if err != nil {
		it.Counting = false
		it.Status = ItemError
		it.Err = err
		return err
	}
	it.ImageCount = len(images)
	it.Counting = false
	return nil
}

// UploadAPI is the slice of the platform client the batch needs.
type UploadAPI interface {
	SubmitChapter(ctx context.Context, req api.SubmitChapterRequest, onTransfer api.TransferProgressFunc) (*api.SubmitResponse, error)
	ChapterUploadStatus(ctx context.Context, jobID string) (api.StatusSnapshot, error)
}

// Orchestrator uploads a batch of chapters for one manga, one item at
// a time.
type Orchestrator struct {
	Client      UploadAPI
	MangaID     string
	ReleaseDate string
	Interval    time.Duration
	MaxWait     time.Duration
	// OnUpdate observes item progress. Optional.
	OnUpdate func(*Item, job.Snapshot)
}

// Result aggregates a finished batch.
type Result struct {
	Items     []*Item
	Succeeded int
	Errored   int
}

// Failed returns the items that did not succeed, ready to be re-queued
// as a new batch.
func (r *Result) Failed() []*Item {
	var failed []*Item
	for _, it := range r.Items {
		if it.Status == ItemError {
			failed = append(failed, it)
		}
	}
	return failed
}

// RunAll uploads every item strictly sequentially: an item's job must
// reach a terminal state before the next submission starts. A failed
// item is recorded and skipped over, never aborting the batch; only
// ctx cancellation stops early, leaving the remaining items pending.
func (o *Orchestrator) RunAll(ctx context.Context, items []*Item) (*Result, error) {
	for _, it := range items {
		if it.Counting {
			return nil, apperrors.New(apperrors.KindValidation,
				"batch not ready: still inspecting "+it.Path, nil)
		}
	}

	res := &Result{Items: items}
	for _, it := range items {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if it.Status != ItemPending {
			continue
		}
		o.runItem(ctx, it)
		switch it.Status {
		case ItemSuccess:
			res.Succeeded++
		case ItemError:
			res.Errored++
			logger.Warn("Chapter upload failed", "path", it.Path, "chapter", it.Number, "error", apperrors.PublicMessage(it.Err))
		}
	}
	return res, nil
}

func (o *Orchestrator) runItem(ctx context.Context, it *Item) {
	it.Status = ItemUploading

	ctrl := job.NewController(job.Config{
		Model:    progress.ChapterUploadModel,
		Statuses: job.ChapterUploadStatuses,
		Poll:     o.Client.ChapterUploadStatus,
		Interval: o.Interval,
		MaxWait:  o.MaxWait,
		OnUpdate: func(s job.Snapshot) {
			it.Progress = s.Overall
			it.JobID = s.JobID
			if o.OnUpdate != nil {
				o.OnUpdate(it, s)
			}
		},
	})

	final, err := ctrl.Run(ctx, func(ctx context.Context, onTransfer api.TransferProgressFunc) (*api.SubmitResponse, error) {
		return o.Client.SubmitChapter(ctx, api.SubmitChapterRequest{
			MangaID:     o.MangaID,
			Number:      it.Number,
			Title:       it.Title,
			ReleaseDate: o.ReleaseDate,
			FilePath:    it.Path,
		}, onTransfer)
	})
	if err != nil {
		it.Status = ItemError
		it.Err = err
		return
	}
	it.Status = ItemSuccess
	it.Progress = final.Overall
	it.JobID = final.JobID
}
