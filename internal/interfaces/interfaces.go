package interfaces

import (
	"context"
	"io"
	"net/http"

	"ragchat/client/internal/backend"
	"ragchat/client/internal/model"
)

// This file defines the backend contracts the services depend on. Services
// accept these interfaces rather than *backend.Client so they can be tested
// against mocks (see the mocks package) or the devserver.

// DialogBackend covers the dialog registry endpoints.
type DialogBackend interface {
	ListDialogs(ctx context.Context) ([]model.Dialog, error)
	CreateDialog(ctx context.Context, name string) (*model.Dialog, error)
	DeleteDialog(ctx context.Context, dialogID int64) error
}

// ChatBackend covers message history and the send protocol.
type ChatBackend interface {
	GetMessages(ctx context.Context, dialogID int64) ([]model.Message, error)
	SendMessage(ctx context.Context, dialogID int64, content string) (*backend.SendMessageResponse, error)
}

// ConfigBackend covers per-dialog generation settings.
type ConfigBackend interface {
	GetDialog(ctx context.Context, dialogID int64) (*model.Dialog, error)
	UpdateDialogConfig(ctx context.Context, dialogID int64, req backend.UpdateDialogConfigRequest) error
}

// KnowledgeBaseBackend covers file listing, upload, deletion and inspection.
type KnowledgeBaseBackend interface {
	ListKBFiles(ctx context.Context) ([]model.KnowledgeBaseFile, error)
	UploadKBFile(ctx context.Context, filename string, content io.Reader, size int64, onProgress backend.ProgressFunc) (*backend.UploadResponse, error)
	DeleteKBFile(ctx context.Context, fileID int64) error
	GetChunks(ctx context.Context, fileID int64, page, pageSize int) (*model.ChunkPage, error)
	GetChunkVector(ctx context.Context, fileID, chunkID int64) (*model.ChunkVector, error)
}

// EvaluationBackend submits evaluation batches.
type EvaluationBackend interface {
	Evaluate(ctx context.Context, records []model.EvalRecord) ([]model.ScoredRecord, error)
}

// AuthBackend covers login, registration and logout plus the session cookies
// they establish.
type AuthBackend interface {
	Login(ctx context.Context, creds backend.Credentials) (*backend.LoginResponse, error)
	Register(ctx context.Context, creds backend.Credentials) error
	Logout(ctx context.Context) error
	Cookies() []*http.Cookie
	SetCookies(cookies []*http.Cookie)
}

// Notifier surfaces transient, user-visible notifications.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}
