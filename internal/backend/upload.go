package backend

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// ProgressFunc receives the number of file bytes transmitted so far and the
// total file size.
type ProgressFunc func(sent, total int64)

// UploadKBFile streams a file to POST /api/kb/upload as multipart form data,
// reporting transfer progress as the body is consumed.
func (c *Client) UploadKBFile(ctx context.Context, filename string, content io.Reader, size int64, onProgress ProgressFunc) (*UploadResponse, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			_ = pw.CloseWithError(fmt.Errorf("could not create form file: %w", err))
			return
		}
		src := &progressReader{r: content, total: size, onProgress: onProgress}
		if _, err := io.Copy(part, src); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("could not stream file: %w", err))
			return
		}
		_ = pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String()+"/api/kb/upload", pr)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("could not create http request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var resp UploadResponse
	if err := c.send(c.uploadClient, req, &resp); err != nil {
		// Unblock the writer goroutine if the request ended before the body was drained.
		_ = pr.Close()
		return nil, err
	}
	return &resp, nil
}

type progressReader struct {
	r          io.Reader
	sent       int64
	total      int64
	onProgress ProgressFunc
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
