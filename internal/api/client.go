// Package api is the network boundary to the manga platform's job
// endpoints: multipart submission, single-shot status polls, preview
// fetch and chapter publishing. It never loops; polling cadence is the
// job controller's responsibility.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arqaam/mangactl/internal/apperrors"
	"github.com/arqaam/mangactl/internal/httpclient"
	"github.com/arqaam/mangactl/internal/logger"
)

// Client talks to one platform instance with one bearer credential.
type Client struct {
	hc           *http.Client
	baseURL      string
	assetBaseURL string
	token        string
}

// NewClient builds a client. hc may be nil to use the shared default.
func NewClient(baseURL, assetBaseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = httpclient.GetDefaultClient()
	}
	return &Client{
		hc:           hc,
		baseURL:      strings.TrimRight(baseURL, "/"),
		assetBaseURL: strings.TrimRight(assetBaseURL, "/"),
		token:        token,
	}
}

// SubmitChapter uploads a chapter archive for asynchronous extraction
// and remote page upload. onTransfer observes request-body bytes so the
// caller can drive the transfer stage before the first poll.
func (c *Client) SubmitChapter(ctx context.Context, req SubmitChapterRequest, onTransfer TransferProgressFunc) (*SubmitResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"manga":        req.MangaID,
		"number":       req.Number,
		"title":        req.Title,
		"release_date": req.ReleaseDate,
	}
	var out SubmitResponse
	if err := c.submitMultipart(ctx, "/chapters/upload-async/", fields, req.FilePath, onTransfer, &out); err != nil {
		return nil, err
	}
	logger.Debug("Chapter submission accepted", "job_id", out.JobID, "total_images", out.TotalImages)
	return &out, nil
}

// ChapterUploadStatus performs exactly one poll of a chapter upload job.
func (c *Client) ChapterUploadStatus(ctx context.Context, jobID string) (StatusSnapshot, error) {
	return c.pollOnce(ctx, "/chapters/upload-progress/"+jobID+"/")
}

// CancelChapterUpload asks the server to stop a running upload job.
// Called only on explicit user request, never on observer teardown.
func (c *Client) CancelChapterUpload(ctx context.Context, jobID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/chapters/cancel-upload/"+jobID+"/", nil, "")
	if err != nil {
		return err
	}
	body, resp, err := httpclient.DoAndRead(c.hc, req)
	if err != nil {
		return classifyTransport("cancel upload", err, apperrors.KindSubmission)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyResponse("cancel upload", resp.StatusCode, body, apperrors.KindSubmission)
	}
	return nil
}

// SubmitTranslation uploads a chapter archive for AI translation
// preview generation.
func (c *Client) SubmitTranslation(ctx context.Context, archivePath string, onTransfer TransferProgressFunc) (*SubmitResponse, error) {
	if err := ValidateArchivePath(archivePath); err != nil {
		return nil, err
	}
	var out SubmitResponse
	if err := c.submitMultipart(ctx, "/translation/upload/", nil, archivePath, onTransfer, &out); err != nil {
		return nil, err
	}
	logger.Debug("Translation submission accepted", "job_id", out.JobID, "total_pages", out.TotalPages)
	return &out, nil
}

// TranslationStatus performs exactly one poll of a translation or
// publish job. Both share the translation status endpoint.
func (c *Client) TranslationStatus(ctx context.Context, jobID string) (StatusSnapshot, error) {
	return c.pollOnce(ctx, "/translation/status/"+jobID+"/")
}

// TranslationPreview fetches the original/translated page pairs of a
// completed translation job. Server-relative image paths are rebased
// onto the asset host before returning.
func (c *Client) TranslationPreview(ctx context.Context, jobID string) (*TranslationPreview, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/translation/preview/"+jobID+"/", nil, "")
	if err != nil {
		return nil, err
	}
	body, resp, err := httpclient.DoAndRead(c.hc, req)
	if err != nil {
		return nil, classifyTransport("preview fetch", err, apperrors.KindPoll)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyResponse("preview fetch", resp.StatusCode, body, apperrors.KindPoll)
	}

	var preview TranslationPreview
	if err := json.Unmarshal(body, &preview); err != nil {
		return nil, apperrors.New(apperrors.KindPoll, "malformed preview response", err)
	}
	c.rebaseImages(preview.OriginalImages)
	c.rebaseImages(preview.TranslatedImages)
	return &preview, nil
}

// PublishChapter starts the publish job for a completed translation.
// The server has two compatible behaviors: an immediate 2xx terminal
// payload, or a 202 whose job id must be polled to completion. The
// branch happens here so callers get one uniform outcome value.
func (c *Client) PublishChapter(ctx context.Context, pub PublishRequest) (*PublishOutcome, error) {
	if err := pub.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to encode publish request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/translation/publish-chapter/", bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	body, resp, err := httpclient.DoAndRead(c.hc, req)
	if err != nil {
		return nil, classifyTransport("publish", err, apperrors.KindSubmission)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyResponse("publish", resp.StatusCode, body, apperrors.KindSubmission)
	}

	var parsed SubmitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.New(apperrors.KindSubmission, "malformed publish response", err)
	}

	outcome := &PublishOutcome{
		Accepted:   resp.StatusCode == http.StatusAccepted,
		JobID:      parsed.JobID,
		TotalPages: parsed.TotalPages,
		Message:    parsed.Message,
	}
	if outcome.Accepted && outcome.JobID == "" {
		return nil, apperrors.New(apperrors.KindSubmission, "publish accepted without a job id", nil)
	}
	logger.Debug("Publish submitted", "job_id", outcome.JobID, "accepted", outcome.Accepted)
	return outcome, nil
}

func (c *Client) submitMultipart(ctx context.Context, path string, fields map[string]string, filePath string, onTransfer TransferProgressFunc, out *SubmitResponse) error {
	buf, contentType, err := buildMultipart(fields, "file", filePath)
	if err != nil {
		return apperrors.New(apperrors.KindValidation, "", err)
	}

	total := int64(buf.Len())
	var bodyReader io.Reader = buf
	if onTransfer != nil {
		bodyReader = &progressReader{r: buf, total: total, onProgress: onTransfer}
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bodyReader, contentType)
	if err != nil {
		return err
	}
	req.ContentLength = total

	body, resp, err := httpclient.DoAndRead(c.hc, req)
	if err != nil {
		return classifyTransport("submission", err, apperrors.KindSubmission)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyResponse("submission", resp.StatusCode, body, apperrors.KindSubmission)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.New(apperrors.KindSubmission, "malformed submission response", err)
	}
	if out.JobID == "" {
		return apperrors.New(apperrors.KindSubmission, "submission response carried no job id", nil)
	}
	return nil
}

func (c *Client) pollOnce(ctx context.Context, path string) (StatusSnapshot, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return StatusSnapshot{}, err
	}
	body, resp, err := httpclient.DoAndRead(c.hc, req)
	if err != nil {
		return StatusSnapshot{}, classifyTransport("status poll", err, apperrors.KindPoll)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StatusSnapshot{}, classifyResponse("status poll", resp.StatusCode, body, apperrors.KindPoll)
	}

	var snap StatusSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return StatusSnapshot{}, apperrors.New(apperrors.KindPoll, "malformed status response", err)
	}
	return snap, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	if c.token == "" {
		return nil, apperrors.New(apperrors.KindAuth, "no API token configured; run `mangactl env setup`", nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) rebaseImages(images []PreviewImage) {
	for i, img := range images {
		if img.URL == "" || strings.HasPrefix(img.URL, "http://") || strings.HasPrefix(img.URL, "https://") {
			continue
		}
		images[i].URL = c.assetBaseURL + img.URL
	}
}
