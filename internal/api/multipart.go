package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// TransferProgressFunc observes bytes sent during a multipart upload.
// total is the full request body size, so callers can derive a percent
// without waiting for the first poll.
type TransferProgressFunc func(sent, total int64)

// progressReader reports cumulative bytes read from the underlying
// reader. The HTTP transport reads the request body exactly once, so
// reads track bytes put on the wire closely enough for a progress bar.
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	onProgress TransferProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
	}
	return n, err
}

// buildMultipart assembles a multipart/form-data body with the given
// fields plus one file part. The body is buffered so Content-Length is
// exact and transfer progress has a known denominator.
func buildMultipart(fields map[string]string, fileField, filePath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := w.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %q: %w", key, err)
		}
	}

	part, err := w.CreateFormFile(fileField, filepath.Base(filePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read archive: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
