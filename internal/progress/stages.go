// Package progress models a job's named, weighted phases and folds
// per-stage completion into one overall percentage.
package progress

import (
	"fmt"
	"math"
)

// Stage is one named, weighted phase of a job.
type Stage struct {
	Name   string
	Weight float64
}

// Model is an ordered sequence of stages. Weights do not have to sum
// to 100; Overall normalizes by the actual sum, so a misconfigured
// table degrades gracefully instead of producing out-of-range values.
type Model struct {
	stages    []Stage
	weightSum float64
}

// NewModel validates the stage table and precomputes the weight sum.
func NewModel(stages ...Stage) (Model, error) {
	if len(stages) == 0 {
		return Model{}, fmt.Errorf("stage model requires at least one stage")
	}
	sum := 0.0
	for i, s := range stages {
		if s.Weight <= 0 {
			return Model{}, fmt.Errorf("stage %d (%q) has non-positive weight %v", i, s.Name, s.Weight)
		}
		sum += s.Weight
	}
	return Model{stages: stages, weightSum: sum}, nil
}

// MustModel is for static stage tables known to be valid.
func MustModel(stages ...Stage) Model {
	m, err := NewModel(stages...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Model) Len() int {
	return len(m.stages)
}

// Stage returns the stage descriptor at index i.
func (m Model) Stage(i int) Stage {
	return m.stages[i]
}

// Overall maps a position (index of the active stage plus percent
// completed within it) to the overall percentage. Stages before
// stageIndex count as fully done; stageIndex >= Len() means every
// stage is complete. Pure: no state, same inputs give same output.
func (m Model) Overall(stageIndex int, stagePercent float64) int {
	if m.weightSum <= 0 {
		return 0
	}
	if stageIndex < 0 {
		return 0
	}
	if stageIndex >= len(m.stages) {
		return 100
	}

	done := 0.0
	for i := 0; i < stageIndex; i++ {
		done += m.stages[i].Weight
	}

	local := stagePercent
	if local < 0 {
		local = 0
	} else if local > 100 {
		local = 100
	}
	done += (local / 100) * m.stages[stageIndex].Weight

	pct := math.Round(done / m.weightSum * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// Observed stage tables for the three job kinds the platform exposes.
var (
	// ChapterUploadModel: transferring the archive to the API is a
	// fifth of the work; the server-side push to the image host is
	// the rest.
	ChapterUploadModel = MustModel(
		Stage{Name: "transfer file", Weight: 20},
		Stage{Name: "remote page upload", Weight: 80},
	)

	// TranslationModel covers upload-for-preview: transfer, archive
	// extraction, then the per-page AI translation pass.
	TranslationModel = MustModel(
		Stage{Name: "transfer file", Weight: 10},
		Stage{Name: "extract pages", Weight: 15},
		Stage{Name: "translate pages", Weight: 75},
	)

	// PublishModel covers the publish-chapter job: the request itself
	// is cheap, re-uploading translated pages into the catalog is not.
	PublishModel = MustModel(
		Stage{Name: "publish request", Weight: 10},
		Stage{Name: "page upload", Weight: 90},
	)
)
