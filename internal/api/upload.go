package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"os"
	"path/filepath"

	"github.com/proofback/proofback-cli/internal/models"
	"github.com/proofback/proofback-cli/internal/progress"
)

// UploadBackup streams the backup file at path to the server as a multipart
// form and returns the test run created for it. Progress is reported against
// the file's byte size as the body is consumed; the request body is built
// through a pipe so the file is never buffered in memory.
//
// Callers are expected to have validated size and extension locally first.
// There is no cancellation midway other than ctx; once the server has the
// full file the run exists even if the response is lost.
func (c *Client) UploadBackup(ctx context.Context, path string, reporter progress.Reporter) (*models.TestRun, error) {
	if c.session.Expired() {
		return nil, newAPIError(nethttp.StatusUnauthorized, "session expired or token revoked")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup file: %w", err)
	}

	if reporter == nil {
		reporter = progress.NewNoOpProgress()
	}
	filename := filepath.Base(path)
	reporter.Start(info.Size(), "Uploading "+filename)

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("failed to create form file: %w", err))
			return
		}
		// Progress tracks the raw file bytes, not the multipart framing.
		if _, err := io.Copy(part, progress.NewProgressReader(file, info.Size(), reporter)); err != nil {
			pw.CloseWithError(fmt.Errorf("failed to read backup file: %w", err))
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.baseURL+"/backups/upload", pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// Uploads are mutations: one attempt, never replayed.
	resp, err := c.mutateClient.Do(req)
	if err != nil {
		reporter.Error(err)
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	if resp.StatusCode == nethttp.StatusUnauthorized {
		resp.Body.Close()
		c.session.Invalidate()
		err := newAPIError(resp.StatusCode, "session expired or token revoked")
		reporter.Error(err)
		return nil, err
	}

	var run models.TestRun
	if err := decodeResponse(resp, &run); err != nil {
		reporter.Error(err)
		return nil, fmt.Errorf("upload rejected: %w", err)
	}

	reporter.Finish()
	return &run, nil
}
