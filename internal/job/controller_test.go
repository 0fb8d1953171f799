package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arqaam/mangactl/internal/api"
	"github.com/arqaam/mangactl/internal/apperrors"
	"github.com/arqaam/mangactl/internal/progress"
)

func stubSubmit(resp api.SubmitResponse) SubmitFunc {
	return func(ctx context.Context, onTransfer api.TransferProgressFunc) (*api.SubmitResponse, error) {
		if onTransfer != nil {
			onTransfer(50, 100)
			onTransfer(100, 100)
		}
		r := resp
		return &r, nil
	}
}

// pollScript replays a fixed sequence of snapshots, repeating the last
// one if polled again.
func pollScript(snaps ...api.StatusSnapshot) PollFunc {
	i := 0
	return func(ctx context.Context, jobID string) (api.StatusSnapshot, error) {
		if i < len(snaps)-1 {
			i++
			return snaps[i-1], nil
		}
		return snaps[len(snaps)-1], nil
	}
}

func testConfig(poll PollFunc, onUpdate func(Snapshot)) Config {
	return Config{
		Model:    progress.ChapterUploadModel,
		Statuses: ChapterUploadStatuses,
		Poll:     poll,
		Interval: time.Millisecond,
		MaxWait:  time.Second,
		OnUpdate: onUpdate,
	}
}

func TestRunHappyPath(t *testing.T) {
	var history []Snapshot
	c := NewController(testConfig(pollScript(
		api.StatusSnapshot{Status: "uploading", Total: 20, Completed: 5},
		api.StatusSnapshot{Status: "uploading", Total: 20, Completed: 15},
		api.StatusSnapshot{Status: "completed", ChapterID: "ch-1"},
	), func(s Snapshot) { history = append(history, s) }))

	final, err := c.Run(context.Background(), stubSubmit(api.SubmitResponse{JobID: "job-1", Status: "started"}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final.Status != StatusSuccess {
		t.Fatalf("final status = %q", final.Status)
	}
	if final.Overall != 100 {
		t.Errorf("final overall = %d, want exactly 100", final.Overall)
	}
	if final.JobID != "job-1" {
		t.Errorf("job id = %q", final.JobID)
	}

	// Overall must never decrease across the whole run.
	prev := -1
	for _, s := range history {
		if s.Overall < prev {
			t.Fatalf("overall decreased: %d after %d", s.Overall, prev)
		}
		prev = s.Overall
	}
	// Transfer progress (stage 0) must have been observed before the
	// first poll-driven update.
	sawTransfer := false
	for _, s := range history {
		if s.Status == StatusUploading && s.StageIndex == 0 && s.StageProgress == 50 {
			sawTransfer = true
		}
	}
	if !sawTransfer {
		t.Error("transfer-stage progress never surfaced")
	}
}

func TestRunServerFailurePreservesMessageAndProgress(t *testing.T) {
	c := NewController(testConfig(pollScript(
		api.StatusSnapshot{Status: "uploading", Total: 10, Completed: 5},
		api.StatusSnapshot{Status: "failed", Error: "page 7 is corrupted"},
	), nil))

	final, err := c.Run(context.Background(), stubSubmit(api.SubmitResponse{JobID: "job-2", Status: "started"}))
	if !apperrors.IsJobFailure(err) {
		t.Fatalf("expected job failure, got %v", err)
	}
	if err.Error() != "page 7 is corrupted" {
		t.Errorf("server message not preserved verbatim: %q", err)
	}
	if final.Status != StatusError {
		t.Errorf("final status = %q", final.Status)
	}
	// Uploading at 5/10 on the [20,80] model is 60 overall; failure
	// must keep it rather than reset or force 100.
	if final.Overall != 60 {
		t.Errorf("final overall = %d, want 60", final.Overall)
	}
}

func TestTerminalStateIsIdempotent(t *testing.T) {
	updates := 0
	c := NewController(testConfig(pollScript(
		api.StatusSnapshot{Status: "completed"},
	), func(Snapshot) { updates++ }))

	final, err := c.Run(context.Background(), stubSubmit(api.SubmitResponse{JobID: "job-3", Status: "started"}))
	if err != nil || final.Status != StatusSuccess {
		t.Fatalf("Run: %v (%+v)", err, final)
	}

	before := c.Snapshot()
	seen := updates
	// A duplicate terminal report and a stray progress report arriving
	// after termination must both be dropped.
	c.applyServerStatus("completed", api.StatusSnapshot{Status: "completed"})
	c.applyServerStatus("uploading", api.StatusSnapshot{Status: "uploading", Total: 10, Completed: 1})
	if updates != seen {
		t.Errorf("observer notified %d more times after terminal state", updates-seen)
	}
	if c.Snapshot() != before {
		t.Errorf("snapshot changed after terminal state: %+v", c.Snapshot())
	}
}

func TestCancellationStopsObservationOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	polled := 0
	cfg := testConfig(func(ctx context.Context, jobID string) (api.StatusSnapshot, error) {
		polled++
		if polled == 2 {
			cancel()
		}
		return api.StatusSnapshot{Status: "uploading", Total: 10, Completed: 1}, nil
	}, nil)
	c := NewController(cfg)

	final, err := c.Run(ctx, stubSubmit(api.SubmitResponse{JobID: "job-4", Status: "started"}))
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error does not wrap context.Canceled: %v", err)
	}
	if final.Status != StatusError {
		t.Errorf("final status = %q", final.Status)
	}

	// No snapshot mutation is allowed once torn down.
	before := c.Snapshot()
	c.applyServerStatus("uploading", api.StatusSnapshot{Status: "uploading", Total: 10, Completed: 9})
	if c.Snapshot() != before {
		t.Error("snapshot mutated after teardown")
	}
}

func TestSubmitErrorFailsWithoutPolling(t *testing.T) {
	polled := 0
	cfg := testConfig(func(ctx context.Context, jobID string) (api.StatusSnapshot, error) {
		polled++
		return api.StatusSnapshot{}, nil
	}, nil)
	c := NewController(cfg)

	wantErr := apperrors.New(apperrors.KindValidation, "unsupported archive extension .rar (supported: .zip, .cbz)", nil)
	final, err := c.Run(context.Background(), func(ctx context.Context, onTransfer api.TransferProgressFunc) (*api.SubmitResponse, error) {
		return nil, wantErr
	})
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if final.Status != StatusError || final.Message != wantErr.Error() {
		t.Errorf("final = %+v", final)
	}
	if polled != 0 {
		t.Errorf("polled %d times after failed submission", polled)
	}
}

func TestUnknownStatusKeepsPreviousState(t *testing.T) {
	c := NewController(testConfig(pollScript(
		api.StatusSnapshot{Status: "uploading", Total: 10, Completed: 5},
		api.StatusSnapshot{Status: "defragmenting"},
		api.StatusSnapshot{Status: "completed"},
	), nil))

	final, err := c.Run(context.Background(), stubSubmit(api.SubmitResponse{JobID: "job-5", Status: "started"}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final.Status != StatusSuccess {
		t.Errorf("unknown status derailed the run: %+v", final)
	}
}

func TestMaxWaitBoundsThePollingPhase(t *testing.T) {
	cfg := testConfig(pollScript(api.StatusSnapshot{Status: "uploading", Total: 10, Completed: 1}), nil)
	cfg.MaxWait = 5 * time.Millisecond
	c := NewController(cfg)

	start := time.Now()
	final, err := c.Run(context.Background(), stubSubmit(api.SubmitResponse{JobID: "job-6", Status: "started"}))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if final.Status != StatusError {
		t.Errorf("final status = %q", final.Status)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("run took %v despite 5ms max wait", elapsed)
	}
}
