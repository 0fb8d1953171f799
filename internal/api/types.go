package api

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arqaam/mangactl/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Archive extensions the platform accepts for chapter uploads.
var supportedArchiveExtensions = map[string]struct{}{
	".zip": {},
	".cbz": {},
}

const supportedArchiveExtensionsLabel = ".zip, .cbz"

// ValidateArchivePath rejects files the server would refuse, before
// any bytes are sent.
func ValidateArchivePath(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedArchiveExtensions[ext]; ok {
		return nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return apperrors.New(apperrors.KindValidation,
		fmt.Sprintf("unsupported archive extension %s (supported: %s)", ext, supportedArchiveExtensionsLabel), nil)
}

// SubmitChapterRequest is the multipart form for the async chapter
// upload endpoint. Number is a decimal string ("12" or "12.5").
type SubmitChapterRequest struct {
	MangaID     string `validate:"required"`
	Number      string `validate:"required,numeric"`
	Title       string
	ReleaseDate string `validate:"omitempty,datetime=2006-01-02"`
	FilePath    string `validate:"required"`
}

func (r SubmitChapterRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return apperrors.New(apperrors.KindValidation, "invalid chapter submission: "+err.Error(), err)
	}
	return ValidateArchivePath(r.FilePath)
}

// SubmitResponse is returned by both submission endpoints.
type SubmitResponse struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	ChapterID   string `json:"chapter_id"`
	TotalImages int    `json:"total_images"`
	TotalPages  int    `json:"total_pages"`
	Message     string `json:"message"`
}

// StatusSnapshot is one poll result. Optional fields default to zero;
// callers must tolerate their absence.
type StatusSnapshot struct {
	JobID           string  `json:"job_id"`
	Status          string  `json:"status"`
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	Percentage      float64 `json:"percentage"`
	TotalPages      int     `json:"total_pages"`
	TranslatedPages int     `json:"translated_pages"`
	ChapterID       string  `json:"chapter_id"`
	Error           string  `json:"error"`
	ErrorMessage    string  `json:"error_message"`
}

// FailureMessage extracts the server's failure reason, preferring the
// richer error_message field the translation endpoints use.
func (s StatusSnapshot) FailureMessage() string {
	if s.ErrorMessage != "" {
		return s.ErrorMessage
	}
	if s.Error != "" {
		return s.Error
	}
	return "the server reported the job as failed"
}

// ItemPercent derives a stage-local percent from whichever counters
// the endpoint happens to return.
func (s StatusSnapshot) ItemPercent() float64 {
	if s.Percentage > 0 {
		return s.Percentage
	}
	if s.Total > 0 {
		return float64(s.Completed) / float64(s.Total) * 100
	}
	if s.TotalPages > 0 {
		return float64(s.TranslatedPages) / float64(s.TotalPages) * 100
	}
	return 0
}

// PreviewImage is one page reference in a translation preview.
type PreviewImage struct {
	PageNumber int    `json:"page_number"`
	URL        string `json:"url"`
	Filename   string `json:"filename"`
}

// TranslationPreview pairs the original pages with their translated
// counterparts. URLs are absolute after fetching (rebased onto the
// asset host).
type TranslationPreview struct {
	JobID            string         `json:"job_id"`
	Status           string         `json:"status"`
	TotalPages       int            `json:"total_pages"`
	OriginalImages   []PreviewImage `json:"original_images"`
	TranslatedImages []PreviewImage `json:"translated_images"`
}

// PublishRequest asks the server to persist a completed translation
// job's pages into the catalog as a chapter.
type PublishRequest struct {
	JobID         string `json:"job_id" validate:"required"`
	MangaID       string `json:"manga_id" validate:"required"`
	ChapterNumber string `json:"chapter_number" validate:"required,numeric"`
	Title         string `json:"title,omitempty"`
	ReleaseDate   string `json:"release_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (r PublishRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return apperrors.New(apperrors.KindValidation, "invalid publish request: "+err.Error(), err)
	}
	return nil
}

// PublishOutcome models the two server behaviors at the publish
// boundary: an immediate 2xx terminal payload, or a 202 handing back
// a job id that requires its own polling loop.
type PublishOutcome struct {
	// Accepted is true for a 202 response; the caller must poll
	// JobID until a terminal status.
	Accepted   bool
	JobID      string
	TotalPages int
	Message    string
}
