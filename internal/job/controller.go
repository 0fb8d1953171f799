package job

import (
	"context"
	"sync"
	"time"

	"github.com/arqaam/mangactl/internal/api"
	"github.com/arqaam/mangactl/internal/apperrors"
	"github.com/arqaam/mangactl/internal/logger"
	"github.com/arqaam/mangactl/internal/progress"
)

// Status is the client-side lifecycle of one tracked job.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Snapshot is one immutable observation of a job. Overall never
// decreases across successive snapshots of the same controller and is
// exactly 100 when Status is StatusSuccess.
type Snapshot struct {
	JobID         string
	Status        Status
	StageIndex    int
	StageProgress float64
	Overall       int
	Message       string
	Err           error
}

// Terminal reports whether the job reached success or error.
func (s Snapshot) Terminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusError
}

// SubmitFunc performs the fast submission request. onTransfer observes
// request-body bytes so the controller can animate the transfer stage.
type SubmitFunc func(ctx context.Context, onTransfer api.TransferProgressFunc) (*api.SubmitResponse, error)

// PollFunc performs exactly one status request for a known job id.
type PollFunc func(ctx context.Context, jobID string) (api.StatusSnapshot, error)

// Config wires one controller to one job kind.
type Config struct {
	Model    progress.Model
	Statuses StatusMap
	Poll     PollFunc
	Interval time.Duration
	// MaxWait bounds the whole polling phase in wall-clock time. Zero
	// means no bound.
	MaxWait time.Duration
	// OnUpdate receives every snapshot change. Optional. Called
	// sequentially, never concurrently.
	OnUpdate func(Snapshot)
}

// Controller runs one job to completion. It issues at most one poll at
// a time and stops touching its snapshot once a terminal state is
// reached: late responses and duplicate terminal reports are dropped.
type Controller struct {
	cfg Config

	mu   sync.Mutex
	snap Snapshot
	done bool
}

func NewController(cfg Config) *Controller {
	return &Controller{
		cfg:  cfg,
		snap: Snapshot{Status: StatusIdle},
	}
}

// Snapshot returns the latest observation. Safe to call from any
// goroutine, including after Run returned.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Run submits the job and polls it until a terminal state, a poll
// failure, ctx cancellation or the MaxWait bound. The returned
// snapshot equals the final Snapshot(); its Err is also returned for
// plain error-flow call sites. Cancelling ctx stops observation only,
// the server-side job keeps running.
func (c *Controller) Run(ctx context.Context, submit SubmitFunc) (Snapshot, error) {
	c.update(func(s *Snapshot) {
		s.Status = StatusUploading
		s.StageIndex = 0
		s.StageProgress = 0
		s.Message = "uploading"
	})

	resp, err := submit(ctx, func(sent, total int64) {
		if total <= 0 {
			return
		}
		c.update(func(s *Snapshot) {
			s.StageIndex = 0
			s.StageProgress = float64(sent) / float64(total) * 100
		})
	})
	if err != nil {
		return c.fail(err)
	}

	c.update(func(s *Snapshot) {
		s.JobID = resp.JobID
		s.Message = "submitted"
	})
	c.applyServerStatus(resp.Status, api.StatusSnapshot{Status: resp.Status})
	if final := c.Snapshot(); final.Terminal() {
		return final, final.Err
	}

	logger.Debug("Polling job", "job_id", resp.JobID, "interval", c.cfg.Interval)
	deadline := time.Now().Add(c.cfg.MaxWait)
	for {
		select {
		case <-ctx.Done():
			return c.fail(apperrors.New(apperrors.KindPoll, "job observation cancelled", ctx.Err()))
		case <-time.After(c.cfg.Interval):
		}
		if c.cfg.MaxWait > 0 && time.Now().After(deadline) {
			return c.fail(apperrors.New(apperrors.KindPoll, "gave up waiting for the job to finish", nil))
		}

		poll, err := c.cfg.Poll(ctx, resp.JobID)
		if err != nil {
			return c.fail(err)
		}
		c.applyServerStatus(poll.Status, poll)
		if final := c.Snapshot(); final.Terminal() {
			return final, final.Err
		}
	}
}

// applyServerStatus translates one poll result through the status
// table. Unknown statuses are ignored and the previous snapshot stands.
func (c *Controller) applyServerStatus(status string, poll api.StatusSnapshot) {
	mapping, ok := c.cfg.Statuses[status]
	if !ok {
		if status != "" {
			logger.Debug("Ignoring unknown job status", "status", status)
		}
		return
	}
	if mapping.Terminal {
		if mapping.Failed {
			c.fail(apperrors.JobFailure(poll.FailureMessage()))
			return
		}
		c.succeed(poll)
		return
	}

	local := mapping.Fixed
	if mapping.Source == PercentReported {
		local = poll.ItemPercent()
	}
	c.update(func(s *Snapshot) {
		s.StageIndex = mapping.StageIndex
		s.StageProgress = local
		s.Message = status
	})
}

// update mutates the snapshot under the lock, recomputes the overall
// percent and notifies the observer. It is a no-op after a terminal
// state, which is what guarantees both idempotent termination and
// silence after teardown.
func (c *Controller) update(mutate func(*Snapshot)) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	mutate(&c.snap)
	if c.snap.Status == StatusSuccess || c.snap.Status == StatusError {
		c.done = true
	}
	if !c.done || c.snap.Status == StatusSuccess {
		if overall := c.cfg.Model.Overall(c.snap.StageIndex, c.snap.StageProgress); overall > c.snap.Overall {
			c.snap.Overall = overall
		}
	}
	if c.snap.Status == StatusSuccess {
		c.snap.Overall = 100
	}
	snap := c.snap
	c.mu.Unlock()

	if c.cfg.OnUpdate != nil {
		c.cfg.OnUpdate(snap)
	}
}

func (c *Controller) succeed(poll api.StatusSnapshot) {
	c.update(func(s *Snapshot) {
		s.Status = StatusSuccess
		s.StageIndex = c.cfg.Model.Len() - 1
		s.StageProgress = 100
		s.Message = "completed"
		if poll.ChapterID != "" {
			s.Message = "completed (chapter " + poll.ChapterID + ")"
		}
	})
}

// fail moves to the error terminal keeping the last overall percent,
// so observers can render where the job stopped.
func (c *Controller) fail(err error) (Snapshot, error) {
	c.update(func(s *Snapshot) {
		s.Status = StatusError
		s.Message = apperrors.PublicMessage(err)
		s.Err = err
	})
	final := c.Snapshot()
	return final, final.Err
}
