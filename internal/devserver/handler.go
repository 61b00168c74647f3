package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ragchat/client/internal/backend"
	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/model"
)

const (
	sessionCookie  = "session"
	maxUploadBytes = 10 << 20
)

type ctxKey struct{}

// Handler serves the chat backend API from a Store.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func userFrom(ctx context.Context) string {
	user, _ := ctx.Value(ctxKey{}).(string)
	return user
}

// requireSession rejects requests without a valid session cookie.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			respondWithError(w, fmt.Errorf("%w: authentication required", app_errors.ErrUnauthorized))
			return
		}
		user, ok := h.store.UserForToken(c.Value)
		if !ok {
			respondWithError(w, fmt.Errorf("%w: authentication required", app_errors.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation)
	}
	return backend.ValidateRequest(v)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", app_errors.ErrValidation, name)
	}
	return id, nil
}

// --- Auth ---

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var creds backend.Credentials
	if err := decode(r, &creds); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.store.Register(creds.Username, creds.Password); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Registration successful"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds backend.Credentials
	if err := decode(r, &creds); err != nil {
		respondWithError(w, err)
		return
	}
	token, err := h.store.Login(creds.Username, creds.Password)
	if err != nil {
		respondWithError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	respondWithJSON(w, http.StatusOK, backend.LoginResponse{Message: "Login successful", Username: creds.Username})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		h.store.Logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// --- Dialogs ---

func (h *Handler) ListDialogs(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"dialogs": h.store.ListDialogs(userFrom(r.Context()))})
}

func (h *Handler) CreateDialog(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateDialogRequest
	if err := decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	dialog := h.store.CreateDialog(userFrom(r.Context()), strings.TrimSpace(req.Name))
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Dialog created successfully",
		"dialog":  dialog,
	})
}

func (h *Handler) DeleteDialog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "dialogID")
	if err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.store.DeleteDialog(userFrom(r.Context()), id); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Dialog deleted successfully"})
}

func (h *Handler) GetDialog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "dialogID")
	if err != nil {
		respondWithError(w, err)
		return
	}
	dialog, err := h.store.GetDialog(userFrom(r.Context()), id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dialog)
}

func (h *Handler) UpdateDialogConfig(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "dialogID")
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req backend.UpdateDialogConfigRequest
	if err := decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.store.UpdateConfig(userFrom(r.Context()), id, req); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Dialog configuration updated successfully"})
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "dialogID")
	if err != nil {
		respondWithError(w, err)
		return
	}
	messages, err := h.store.Messages(userFrom(r.Context()), id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "dialogID")
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req backend.SendMessageRequest
	if err := decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	resp, err := h.store.Chat(userFrom(r.Context()), id, req.Message)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// --- Knowledge base ---

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"files": h.store.ListFiles(userFrom(r.Context()))})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, fmt.Errorf("%w: no file part", app_errors.ErrValidation))
		return
	}
	defer func() { _ = file.Close() }()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		respondWithError(w, fmt.Errorf("%w: no selected file", app_errors.ErrValidation))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, fmt.Errorf("%w: could not read file: %v", app_errors.ErrValidation, err))
		return
	}
	if len(data) >= maxUploadBytes {
		respondWithError(w, fmt.Errorf("%w: file must be smaller than 10MB", app_errors.ErrValidation))
		return
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
	case ".xlsx", ".xls":
		respondWithError(w, fmt.Errorf("%w: the development server only chunks CSV files", app_errors.ErrValidation))
		return
	default:
		respondWithError(w, fmt.Errorf("%w: only Excel (.xlsx, .xls) and CSV (.csv) files are allowed", app_errors.ErrValidation))
		return
	}

	chunks, err := chunkCSV(bytes.NewReader(data))
	if err != nil {
		respondWithError(w, err)
		return
	}
	stored := h.store.AddFile(userFrom(r.Context()), filename, int64(len(data)), chunks)
	slog.Info("Stored knowledge base file", "filename", filename, "chunks", len(chunks))
	respondWithJSON(w, http.StatusOK, backend.UploadResponse{
		Message:   "File uploaded and processed successfully",
		Filename:  filename,
		ID:        stored.ID,
		NumChunks: stored.NumChunks,
	})
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "fileID")
	if err != nil {
		respondWithError(w, err)
		return
	}
	filename, err := h.store.DeleteFile(userFrom(r.Context()), id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Knowledge base %s deleted successfully", filename)})
}

func (h *Handler) Chunks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "fileID")
	if err != nil {
		respondWithError(w, err)
		return
	}
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", backend.DefaultPageSize)
	result, err := h.store.Chunks(userFrom(r.Context()), id, page, pageSize)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) Vector(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathID(r, "fileID")
	if err != nil {
		respondWithError(w, err)
		return
	}
	chunkID, err := pathID(r, "chunkID")
	if err != nil {
		respondWithError(w, err)
		return
	}
	vec, err := h.store.Vector(userFrom(r.Context()), fileID, chunkID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, vec)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return v
}

// --- Evaluation ---

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var records []model.EvalRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil || len(records) == 0 {
		respondWithError(w, fmt.Errorf("%w: input data is required", app_errors.ErrValidation))
		return
	}
	respondWithJSON(w, http.StatusOK, h.store.Evaluate(userFrom(r.Context()), records))
}
