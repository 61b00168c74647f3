package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"ragchat/client/internal/backend"
	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/interfaces"
	"ragchat/client/internal/model"
)

// ErrEmptyMessage is returned for blank input. The send is rejected silently:
// nothing is appended and no request is made.
var ErrEmptyMessage = fmt.Errorf("%w: message is empty", app_errors.ErrValidation)

// ErrSendInFlight is returned when a send is already pending for the dialog.
var ErrSendInFlight = fmt.Errorf("%w: a message is already being sent", app_errors.ErrConflict)

// StaleNotifier is told that a dialog's ordering metadata changed.
type StaleNotifier interface {
	Invalidate()
}

// MessageDispatcher runs the optimistic send protocol against the Session
// Store: user message, placeholder, backend call, then resolve or drop.
// Sends are serialized per dialog; different dialogs are independent.
type MessageDispatcher struct {
	store    *SessionStore
	chat     interfaces.ChatBackend
	registry StaleNotifier
	notifier interfaces.Notifier

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewMessageDispatcher(store *SessionStore, chat interfaces.ChatBackend, registry StaleNotifier, notifier interfaces.Notifier) *MessageDispatcher {
	return &MessageDispatcher{
		store:    store,
		chat:     chat,
		registry: registry,
		notifier: notifier,
		inFlight: make(map[int64]struct{}),
	}
}

// InFlight reports whether a send is pending for dialogID.
func (d *MessageDispatcher) InFlight(dialogID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[dialogID]
	return ok
}

// Send delivers content to dialogID. It blocks until the reply is resolved,
// dropped, or discarded because the dialog is no longer selected.
func (d *MessageDispatcher) Send(ctx context.Context, dialogID int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	if !d.acquire(dialogID) {
		return ErrSendInFlight
	}
	defer d.release(dialogID)

	if _, err := d.store.AppendUser(dialogID, content); err != nil {
		return err
	}
	d.registry.Invalidate()

	ticket, err := d.store.AppendPlaceholder(dialogID)
	if err != nil {
		return err
	}

	resp, err := d.chat.SendMessage(ctx, dialogID, content)
	if err != nil {
		// The user's message stays; only the pending reply is discarded.
		if dropErr := d.store.DropPlaceholder(ticket); dropErr != nil && !errors.Is(dropErr, app_errors.ErrStale) {
			slog.Error("Failed to drop placeholder", "dialog_id", dialogID, "error", dropErr)
		}
		slog.Warn("Failed to send message", "dialog_id", dialogID, "error", err)
		d.notifier.Error("Failed to send message: " + backend.ErrorMessage(err))
		return fmt.Errorf("could not send message to dialog %d: %w", dialogID, err)
	}

	reply := Bind(model.Message{
		Role:      model.RoleAssistant,
		Content:   resp.BotResponse.Content,
		Timestamp: resp.BotResponse.Timestamp,
	}, resp.RagDetails)

	if err := d.store.ResolvePlaceholder(ticket, reply.Message); err != nil {
		if !errors.Is(err, app_errors.ErrStale) {
			return err
		}
		slog.Debug("Discarding reply for a dialog that is no longer selected", "dialog_id", dialogID)
	}
	d.registry.Invalidate()
	return nil
}

func (d *MessageDispatcher) acquire(dialogID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[dialogID]; busy {
		return false
	}
	d.inFlight[dialogID] = struct{}{}
	return true
}

func (d *MessageDispatcher) release(dialogID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, dialogID)
}
