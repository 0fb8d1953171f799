package translation

import (
	"context"
	"testing"
	"time"

	"github.com/arqaam/mangactl/internal/api"
	"github.com/arqaam/mangactl/internal/apperrors"
	"github.com/arqaam/mangactl/internal/job"
)

type fakeAPI struct {
	statuses      []api.StatusSnapshot
	statusIdx     int
	pollCalls     int
	preview       *api.TranslationPreview
	previewCalls  int
	publishOut    *api.PublishOutcome
	publishErr    error
	publishCalls  int
	submittedPath string
}

func (f *fakeAPI) SubmitTranslation(ctx context.Context, archivePath string, onTransfer api.TransferProgressFunc) (*api.SubmitResponse, error) {
	f.submittedPath = archivePath
	if onTransfer != nil {
		onTransfer(100, 100)
	}
	return &api.SubmitResponse{JobID: "tr-1", Status: "started", TotalPages: 4}, nil
}

func (f *fakeAPI) TranslationStatus(ctx context.Context, jobID string) (api.StatusSnapshot, error) {
	f.pollCalls++
	if f.statusIdx < len(f.statuses)-1 {
		f.statusIdx++
		return f.statuses[f.statusIdx-1], nil
	}
	return f.statuses[len(f.statuses)-1], nil
}

func (f *fakeAPI) TranslationPreview(ctx context.Context, jobID string) (*api.TranslationPreview, error) {
	f.previewCalls++
	return f.preview, nil
}

func (f *fakeAPI) PublishChapter(ctx context.Context, req api.PublishRequest) (*api.PublishOutcome, error) {
	f.publishCalls++
	return f.publishOut, f.publishErr
}

func testFlow(f *fakeAPI) *Flow {
	return &Flow{
		Client:            f,
		TranslateInterval: time.Millisecond,
		PublishInterval:   time.Millisecond,
		MaxWait:           time.Second,
	}
}

func TestTranslateReturnsPreview(t *testing.T) {
	f := &fakeAPI{
		statuses: []api.StatusSnapshot{
			{Status: "extracting"},
			{Status: "translating", TotalPages: 4, TranslatedPages: 2},
			{Status: "completed"},
		},
		preview: &api.TranslationPreview{
			JobID:            "tr-1",
			TotalPages:       4,
			OriginalImages:   []api.PreviewImage{{PageNumber: 1, URL: "https://assets.example.com/o1.png"}},
			TranslatedImages: []api.PreviewImage{{PageNumber: 1, URL: "https://assets.example.com/t1.png"}},
		},
	}

	flow := testFlow(f)
	var overall []int
	flow.OnUpdate = func(s job.Snapshot) { overall = append(overall, s.Overall) }

	preview, err := flow.Translate(context.Background(), "chapter.zip")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if f.submittedPath != "chapter.zip" {
		t.Errorf("submitted %q", f.submittedPath)
	}
	if preview.JobID != "tr-1" || len(preview.TranslatedImages) != 1 {
		t.Errorf("preview = %+v", preview)
	}
	if f.previewCalls != 1 {
		t.Errorf("preview fetched %d times", f.previewCalls)
	}
	if len(overall) == 0 || overall[len(overall)-1] != 100 {
		t.Errorf("progress did not end at 100: %v", overall)
	}
	for i := 1; i < len(overall); i++ {
		if overall[i] < overall[i-1] {
			t.Fatalf("overall decreased: %v", overall)
		}
	}
}

func TestTranslateFailureSkipsPreview(t *testing.T) {
	f := &fakeAPI{
		statuses: []api.StatusSnapshot{
			{Status: "translating", TotalPages: 4, TranslatedPages: 1},
			{Status: "failed", ErrorMessage: "page 3 could not be processed"},
		},
	}

	_, err := testFlow(f).Translate(context.Background(), "chapter.zip")
	if !apperrors.IsJobFailure(err) {
		t.Fatalf("expected job failure, got %v", err)
	}
	if err.Error() != "page 3 could not be processed" {
		t.Errorf("server message not preserved: %q", err)
	}
	if f.previewCalls != 0 {
		t.Errorf("preview fetched after failure")
	}
}

func TestPublishImmediateTerminal(t *testing.T) {
	f := &fakeAPI{
		statuses:   []api.StatusSnapshot{{Status: "published"}},
		publishOut: &api.PublishOutcome{Accepted: false, Message: "chapter 12 published"},
	}

	snap, err := testFlow(f).Publish(context.Background(), api.PublishRequest{
		JobID: "tr-1", MangaID: "m-1", ChapterNumber: "12",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if snap.Status != job.StatusSuccess || snap.Overall != 100 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Message != "chapter 12 published" {
		t.Errorf("message = %q", snap.Message)
	}
	// Synchronous completion must not trigger a polling phase.
	if f.pollCalls != 0 {
		t.Errorf("polled %d times after immediate terminal", f.pollCalls)
	}
}

func TestPublishAcceptedPollsToPublished(t *testing.T) {
	f := &fakeAPI{
		statuses: []api.StatusSnapshot{
			{Status: "publishing", TotalPages: 10, TranslatedPages: 4},
			{Status: "published"},
		},
		publishOut: &api.PublishOutcome{Accepted: true, JobID: "pub-1", TotalPages: 10},
	}

	snap, err := testFlow(f).Publish(context.Background(), api.PublishRequest{
		JobID: "tr-1", MangaID: "m-1", ChapterNumber: "12",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if snap.Status != job.StatusSuccess || snap.Overall != 100 || snap.JobID != "pub-1" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestPublishAcceptedJobFailureSurfacesVerbatim(t *testing.T) {
	f := &fakeAPI{
		statuses: []api.StatusSnapshot{
			{Status: "failed", ErrorMessage: "chapter number 12 already exists for this manga"},
		},
		publishOut: &api.PublishOutcome{Accepted: true, JobID: "pub-2"},
	}

	snap, err := testFlow(f).Publish(context.Background(), api.PublishRequest{
		JobID: "tr-1", MangaID: "m-1", ChapterNumber: "12",
	})
	if !apperrors.IsJobFailure(err) {
		t.Fatalf("expected job failure, got %v", err)
	}
	if err.Error() != "chapter number 12 already exists for this manga" {
		t.Errorf("server message not preserved: %q", err)
	}
	if snap.Status != job.StatusError {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestPublishSubmissionError(t *testing.T) {
	f := &fakeAPI{
		statuses:   []api.StatusSnapshot{{Status: "published"}},
		publishErr: apperrors.New(apperrors.KindSubmission, "translation job not found", nil),
	}

	snap, err := testFlow(f).Publish(context.Background(), api.PublishRequest{
		JobID: "gone", MangaID: "m-1", ChapterNumber: "12",
	})
	if err == nil || snap.Status != job.StatusError {
		t.Fatalf("expected error snapshot, got %+v (%v)", snap, err)
	}
}
