package backend

import "ragchat/client/internal/model"

// Credentials is the body of login and register calls.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the backend's answer to a successful login.
type LoginResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

type listDialogsResponse struct {
	Dialogs []model.Dialog `json:"dialogs"`
}

// CreateDialogRequest is the body of a dialog creation.
type CreateDialogRequest struct {
	Name string `json:"name" validate:"required"`
}

type createDialogResponse struct {
	Dialog model.Dialog `json:"dialog"`
}

// ModelConfigRequest is the nested model_config object of a config update.
// It is always sent as an object, even though the backend may store and
// return it as a serialized string.
type ModelConfigRequest struct {
	Model       string  `json:"model" validate:"required"`
	Temperature float64 `json:"temperature" validate:"gte=0,lte=1"`
	MaxTokens   int     `json:"max_tokens" validate:"gte=1,lte=8192"`
}

// UpdateDialogConfigRequest is the body of PUT /api/dialog/{id}/config.
type UpdateDialogConfigRequest struct {
	SystemPrompt    string             `json:"system_prompt"`
	ModelConfig     ModelConfigRequest `json:"model_config"`
	MaxChunks       int                `json:"max_chunks" validate:"gte=1,lte=30"`
	CosineThreshold float64            `json:"cosine_threshold" validate:"gte=0,lte=1"`
}

type listMessagesResponse struct {
	Messages []model.Message `json:"messages"`
}

// SendMessageRequest is the body of POST /api/dialog/{id}/chat.
type SendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// BotResponse is the assistant turn produced by the backend.
type BotResponse struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// SendMessageResponse is the backend's answer to a chat call.
type SendMessageResponse struct {
	BotResponse BotResponse      `json:"bot_response"`
	RagDetails  *model.RagDetail `json:"rag_details,omitempty"`
}

type listFilesResponse struct {
	Files []model.KnowledgeBaseFile `json:"files"`
}

// UploadResponse is the backend's answer to a knowledge base upload.
type UploadResponse struct {
	Message   string `json:"message"`
	Filename  string `json:"filename"`
	ID        int64  `json:"id,omitempty"`
	NumChunks int    `json:"num_chunks,omitempty"`
}

// evaluateRequest only exists to validate a batch before it is sent; the wire
// body is the bare records array.
type evaluateRequest struct {
	Records []model.EvalRecord `validate:"required,min=1,dive"`
}
