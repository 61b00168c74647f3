package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/model"
)

const (
	// DefaultPageSize is the chunk page size the backend falls back to.
	DefaultPageSize = 100
	// MaxPageSize is the largest chunk page the backend serves.
	MaxPageSize = 1000

	requestIDHeader = "X-Request-ID"
)

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
	// Jar holds the backend session cookie. A fresh in-memory jar is used when nil.
	Jar http.CookieJar
}

// Client is a typed HTTP client for the chat backend. It is safe for
// concurrent use; every call is bounded by ctx and the configured timeout.
type Client struct {
	client       *http.Client
	uploadClient *http.Client
	baseURL      *url.URL
}

// NewClient creates a Client for the backend at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid api base url %q: %v", app_errors.ErrValidation, opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: api base url %q must be absolute", app_errors.ErrValidation, opts.BaseURL)
	}
	jar := opts.Jar
	if jar == nil {
		// cookiejar.New only fails when given invalid options.
		jar, _ = cookiejar.New(nil)
	}
	return &Client{
		client:       &http.Client{Timeout: opts.Timeout, Jar: jar},
		uploadClient: &http.Client{Timeout: opts.UploadTimeout, Jar: jar},
		baseURL:      base,
	}, nil
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Cookies returns the session cookies currently held for the backend.
func (c *Client) Cookies() []*http.Cookie {
	return c.client.Jar.Cookies(c.baseURL)
}

// SetCookies restores previously persisted session cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.client.Jar.SetCookies(c.baseURL, cookies)
}

// --- Auth ---

func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat/login", creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, creds Credentials) error {
	return c.do(ctx, http.MethodPost, "/api/chat/register", creds, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/chat/logout", nil, nil)
}

// --- Dialogs ---

func (c *Client) ListDialogs(ctx context.Context) ([]model.Dialog, error) {
	var resp listDialogsResponse
	if err := c.do(ctx, http.MethodGet, "/api/chat/dialogs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Dialogs, nil
}

func (c *Client) CreateDialog(ctx context.Context, name string) (*model.Dialog, error) {
	var resp createDialogResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat/dialogs", CreateDialogRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp.Dialog, nil
}

func (c *Client) DeleteDialog(ctx context.Context, dialogID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/chat/dialogs/"+id(dialogID), nil, nil)
}

func (c *Client) GetDialog(ctx context.Context, dialogID int64) (*model.Dialog, error) {
	var dialog model.Dialog
	if err := c.do(ctx, http.MethodGet, "/api/dialog/"+id(dialogID), nil, &dialog); err != nil {
		return nil, err
	}
	return &dialog, nil
}

func (c *Client) UpdateDialogConfig(ctx context.Context, dialogID int64, req UpdateDialogConfigRequest) error {
	return c.do(ctx, http.MethodPut, "/api/dialog/"+id(dialogID)+"/config", req, nil)
}

func (c *Client) GetMessages(ctx context.Context, dialogID int64) ([]model.Message, error) {
	var resp listMessagesResponse
	if err := c.do(ctx, http.MethodGet, "/api/dialog/"+id(dialogID)+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) SendMessage(ctx context.Context, dialogID int64, content string) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/dialog/"+id(dialogID)+"/chat", SendMessageRequest{Message: content}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Knowledge base ---

func (c *Client) ListKBFiles(ctx context.Context) ([]model.KnowledgeBaseFile, error) {
	var resp listFilesResponse
	if err := c.do(ctx, http.MethodGet, "/api/kb/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (c *Client) DeleteKBFile(ctx context.Context, fileID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/kb/"+id(fileID), nil, nil)
}

// GetChunks fetches one page of a file's chunks. Out-of-range paging values are
// normalized the same way the backend normalizes them.
func (c *Client) GetChunks(ctx context.Context, fileID int64, page, pageSize int) (*model.ChunkPage, error) {
	page, pageSize = NormalizePaging(page, pageSize)
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var resp model.ChunkPage
	if err := c.do(ctx, http.MethodGet, "/api/kb/"+id(fileID)+"/chunks?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetChunkVector(ctx context.Context, fileID, chunkID int64) (*model.ChunkVector, error) {
	var resp model.ChunkVector
	if err := c.do(ctx, http.MethodGet, "/api/kb/"+id(fileID)+"/chunks/"+id(chunkID)+"/vector", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Evaluation ---

func (c *Client) Evaluate(ctx context.Context, records []model.EvalRecord) ([]model.ScoredRecord, error) {
	if err := ValidateRequest(evaluateRequest{Records: records}); err != nil {
		return nil, err
	}
	var resp []model.ScoredRecord
	if err := c.do(ctx, http.MethodPost, "/api/eval/evaluate", records, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// NormalizePaging clamps paging values: page below 1 becomes 1 and a page size
// outside [1, MaxPageSize] becomes DefaultPageSize.
func NormalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// do performs a JSON request. Struct bodies are validated before anything is
// sent; non-2xx answers become *APIError and transport failures wrap ErrNetwork.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		if isStruct(body) {
			if err := ValidateRequest(body); err != nil {
				return err
			}
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("could not create http request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.send(c.client, req, out)
}

func (c *Client) send(client *http.Client, req *http.Request, out interface{}) error {
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	path := req.URL.Path
	logger := slog.With("method", req.Method, "path", path, "request_id", requestID)

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("API request failed", "error", err, "duration", time.Since(started))
		return fmt.Errorf("%w: %s %s: %v", app_errors.ErrNetwork, req.Method, path, err)
	}
	defer func() {
		if cErr := resp.Body.Close(); cErr != nil {
			logger.Warn("Failed to close response body", "error", cErr)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: could not read response body of %s %s: %v", app_errors.ErrNetwork, req.Method, path, err)
	}
	logger.Debug("API response", "status", resp.StatusCode, "duration", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(req.Method, path, resp.StatusCode, bodyBytes)
		logger.Warn("API returned error status", "status", resp.StatusCode, "error", apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("%w: could not decode response of %s %s: %v", app_errors.ErrParse, req.Method, path, err)
	}
	return nil
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func isStruct(v interface{}) bool {
	return reflect.Indirect(reflect.ValueOf(v)).Kind() == reflect.Struct
}
