package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ragchat/client/internal/backend"
	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/interfaces"
	"ragchat/client/internal/model"
)

// Defaults applied when a dialog has no stored value, or its stored
// model_config cannot be parsed.
const (
	DefaultModel           = "gemini-2.0-flash"
	DefaultTemperature     = 0.1
	DefaultMaxTokens       = 1000
	DefaultMaxChunks       = 8
	DefaultCosineThreshold = 0.5
)

// DefaultSystemPrompt is used for dialogs without a system prompt.
const DefaultSystemPrompt = `You are a knowledgeable and helpful chatbot specializing in Traditional Eastern Medicine.
You answer user questions by retrieving and reasoning over information from the following six classical medical texts:

Shennong Bencao Jing
Shanghan Lun
Nanjing
Huangdi Neijing - Lingshu
Jingui Yaolue
Qianjin Yaofang

Language Handling Rules:
If the user asks a question in Classical Chinese, you must respond in Classical Chinese.
If the user uses Vietnamese, Modern Chinese, or English, respond in that language accordingly.
Always adapt your language based on the user's current usage.

Your Role:
Provide accurate, faithful answers based only on the content from the six books listed above.
Quote, summarize, or explain relevant passages as needed, but never fabricate information.
If a question cannot be sufficiently answered using the available knowledge base, respond politely and gently, acknowledging the limitation and expressing your intent to help as much as possible.`

// AvailableModels lists the generation models the backend accepts.
var AvailableModels = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-thinking-mode",
	"gemini-2.0-flash-lite",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
}

// ConfigForm is the editable configuration of one dialog.
type ConfigForm struct {
	SystemPrompt    string  `json:"system_prompt"`
	Model           string  `json:"model" validate:"required"`
	Temperature     float64 `json:"temperature" validate:"gte=0,lte=1"`
	MaxTokens       int     `json:"max_tokens" validate:"gte=1,lte=8192"`
	MaxChunks       int     `json:"max_chunks" validate:"gte=1,lte=30"`
	CosineThreshold float64 `json:"cosine_threshold" validate:"gte=0,lte=1"`
}

// DefaultConfigForm returns the form used when nothing could be loaded.
func DefaultConfigForm() ConfigForm {
	return ConfigForm{
		SystemPrompt:    DefaultSystemPrompt,
		Model:           DefaultModel,
		Temperature:     DefaultTemperature,
		MaxTokens:       DefaultMaxTokens,
		MaxChunks:       DefaultMaxChunks,
		CosineThreshold: DefaultCosineThreshold,
	}
}

// Validate checks the documented ranges without contacting the backend.
func (f ConfigForm) Validate() error {
	return backend.ValidateRequest(f)
}

// InvalidFields names the fields that fail validation, by their json names.
func (f ConfigForm) InvalidFields() []string {
	return backend.FieldErrors(f)
}

// Request builds the wire body. model_config is always a nested object.
func (f ConfigForm) Request() backend.UpdateDialogConfigRequest {
	return backend.UpdateDialogConfigRequest{
		SystemPrompt: f.SystemPrompt,
		ModelConfig: backend.ModelConfigRequest{
			Model:       f.Model,
			Temperature: f.Temperature,
			MaxTokens:   f.MaxTokens,
		},
		MaxChunks:       f.MaxChunks,
		CosineThreshold: f.CosineThreshold,
	}
}

// FormFromDialog normalizes a fetched dialog into form values. This is the
// only place the string-or-object model_config is interpreted; an unparsable
// value falls back to the default model triplet and is reported through the
// returned error, which is never fatal.
func FormFromDialog(d *model.Dialog) (ConfigForm, error) {
	form := DefaultConfigForm()
	if d.SystemPrompt != "" {
		form.SystemPrompt = d.SystemPrompt
	}
	if d.MaxChunks != nil {
		form.MaxChunks = *d.MaxChunks
	}
	if d.CosineThreshold != nil {
		form.CosineThreshold = *d.CosineThreshold
	}

	fields, err := d.ModelConfig.Resolve()
	if err != nil {
		return form, fmt.Errorf("%w: %v", app_errors.ErrParse, err)
	}
	if fields.Model != nil && *fields.Model != "" {
		form.Model = *fields.Model
	}
	if fields.Temperature != nil {
		form.Temperature = *fields.Temperature
	}
	if fields.MaxTokens != nil {
		form.MaxTokens = *fields.MaxTokens
	}
	return form, nil
}

// DialogConfigManager loads, edits and saves per-dialog generation settings.
type DialogConfigManager struct {
	backend  interfaces.ConfigBackend
	notifier interfaces.Notifier

	mu       sync.Mutex
	dialogID int64
	epoch    uint64
	form     ConfigForm
	open     bool
}

func NewDialogConfigManager(b interfaces.ConfigBackend, notifier interfaces.Notifier) *DialogConfigManager {
	return &DialogConfigManager{backend: b, notifier: notifier}
}

// Open loads the configuration of dialogID into the form. A failed fetch
// still opens the form with defaults; the returned error is informational in
// that case and the form remains editable and savable. Only a missing dialog
// id or a superseded Open leaves the form untouched.
func (m *DialogConfigManager) Open(ctx context.Context, dialogID int64) (ConfigForm, error) {
	if dialogID == NoDialog {
		m.notifier.Error("Please select a dialog first")
		return ConfigForm{}, fmt.Errorf("%w: no dialog selected", app_errors.ErrValidation)
	}

	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()

	form, loadErr := m.load(ctx, dialogID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return form, fmt.Errorf("%w: configuration of dialog %d", app_errors.ErrStale, dialogID)
	}
	m.dialogID = dialogID
	m.form = form
	m.open = true
	return form, loadErr
}

func (m *DialogConfigManager) load(ctx context.Context, dialogID int64) (ConfigForm, error) {
	dialog, err := m.backend.GetDialog(ctx, dialogID)
	if err != nil {
		slog.Warn("Failed to load dialog configuration, using defaults", "dialog_id", dialogID, "error", err)
		m.notifier.Error("Failed to load dialog configuration")
		return DefaultConfigForm(), fmt.Errorf("could not load configuration of dialog %d: %w", dialogID, err)
	}
	form, parseErr := FormFromDialog(dialog)
	if parseErr != nil {
		slog.Warn("Failed to parse stored model_config, using default model settings", "dialog_id", dialogID, "error", parseErr)
	}
	return form, nil
}

// Form returns the currently open form and its dialog.
func (m *DialogConfigManager) Form() (ConfigForm, int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.form, m.dialogID, m.open
}

// Close discards the open form. A pending Open will not reopen it.
func (m *DialogConfigManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.open = false
	m.dialogID = NoDialog
	m.form = ConfigForm{}
}

// Save validates form and submits it for dialogID. Invalid values are
// rejected before any request is made.
func (m *DialogConfigManager) Save(ctx context.Context, dialogID int64, form ConfigForm) error {
	if dialogID == NoDialog {
		m.notifier.Error("No dialog selected")
		return fmt.Errorf("%w: no dialog selected", app_errors.ErrValidation)
	}
	if err := form.Validate(); err != nil {
		m.notifier.Error(err.Error())
		return err
	}
	if err := m.backend.UpdateDialogConfig(ctx, dialogID, form.Request()); err != nil {
		m.notifier.Error("Failed to update configuration: " + backend.ErrorMessage(err))
		return fmt.Errorf("could not save configuration of dialog %d: %w", dialogID, err)
	}

	m.mu.Lock()
	if m.open && m.dialogID == dialogID {
		m.form = form
	}
	m.mu.Unlock()

	m.notifier.Success("Dialog configuration updated successfully!")
	return nil
}
