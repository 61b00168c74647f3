package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ragchat/client/internal/backend"
	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/interfaces"
	"ragchat/client/internal/model"
)

const defaultReloadTimeout = 30 * time.Second

// DialogRegistry lists, creates and deletes dialogs and decides which one is
// active. Selecting a dialog (re)loads the Session Store.
type DialogRegistry struct {
	backend  interfaces.DialogBackend
	store    *SessionStore
	notifier interfaces.Notifier

	group         singleflight.Group
	reloads       sync.WaitGroup
	reloadTimeout time.Duration

	mu         sync.RWMutex
	dialogs    []model.Dialog
	selected   int64
	reloadKey  uint64
	appliedKey uint64
	loaded     bool
}

func NewDialogRegistry(b interfaces.DialogBackend, store *SessionStore, notifier interfaces.Notifier) *DialogRegistry {
	return &DialogRegistry{
		backend:       b,
		store:         store,
		notifier:      notifier,
		reloadTimeout: defaultReloadTimeout,
	}
}

// Dialogs returns a snapshot of the dialog list.
func (r *DialogRegistry) Dialogs() []model.Dialog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Dialog, len(r.dialogs))
	copy(out, r.dialogs)
	return out
}

// Loaded reports whether at least one reload succeeded.
func (r *DialogRegistry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Selected returns the active dialog id, or NoDialog.
func (r *DialogRegistry) Selected() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// ReloadKey is incremented by every Invalidate, Create and Delete.
func (r *DialogRegistry) ReloadKey() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reloadKey
}

// Reload fetches the dialog list. Concurrent reloads for the same reload key
// share one request, and a result older than one already applied (or older
// than a local create or delete) is dropped. On failure the previous list is
// kept.
func (r *DialogRegistry) Reload(ctx context.Context) ([]model.Dialog, error) {
	key := r.ReloadKey()
	v, err, _ := r.group.Do(strconv.FormatUint(key, 10), func() (interface{}, error) {
		return r.backend.ListDialogs(ctx)
	})
	if err != nil {
		slog.Warn("Failed to load dialogs", "reload_key", key, "error", err)
		r.notifier.Error("Failed to load dialogs: " + backend.ErrorMessage(err))
		return r.Dialogs(), fmt.Errorf("could not list dialogs: %w", err)
	}
	dialogs, _ := v.([]model.Dialog)

	r.mu.Lock()
	defer r.mu.Unlock()
	if key < r.appliedKey {
		return r.snapshotLocked(), nil
	}
	r.appliedKey = key
	r.loaded = true
	r.dialogs = append([]model.Dialog(nil), dialogs...)
	return r.snapshotLocked(), nil
}

// Invalidate marks the list stale and reloads it in the background.
func (r *DialogRegistry) Invalidate() {
	r.mu.Lock()
	r.reloadKey++
	r.mu.Unlock()

	r.reloads.Add(1)
	go func() {
		defer r.reloads.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.reloadTimeout)
		defer cancel()
		_, _ = r.Reload(ctx)
	}()
}

// supersedeLocked makes the local list newer than any reload already in
// flight, so a response fetched before the mutation cannot overwrite it.
func (r *DialogRegistry) supersedeLocked() {
	r.reloadKey++
	r.appliedKey = r.reloadKey
}

// Wait blocks until background reloads have finished.
func (r *DialogRegistry) Wait() {
	r.reloads.Wait()
}

// Create creates a dialog and puts it at the top of the list.
func (r *DialogRegistry) Create(ctx context.Context, name string) (*model.Dialog, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		r.notifier.Error("Please enter a dialog name")
		return nil, fmt.Errorf("%w: dialog name is empty", app_errors.ErrValidation)
	}
	dialog, err := r.backend.CreateDialog(ctx, name)
	if err != nil {
		r.notifier.Error("Failed to create dialog: " + backend.ErrorMessage(err))
		return nil, fmt.Errorf("could not create dialog: %w", err)
	}

	r.mu.Lock()
	r.dialogs = append([]model.Dialog{*dialog}, r.dialogs...)
	r.supersedeLocked()
	r.mu.Unlock()

	r.notifier.Success("Dialog created successfully!")
	return dialog, nil
}

// Delete removes a dialog. Deleting the active dialog clears the selection.
func (r *DialogRegistry) Delete(ctx context.Context, dialogID int64) error {
	if err := r.backend.DeleteDialog(ctx, dialogID); err != nil {
		r.notifier.Error("Failed to delete dialog: " + backend.ErrorMessage(err))
		return fmt.Errorf("could not delete dialog %d: %w", dialogID, err)
	}

	r.mu.Lock()
	kept := r.dialogs[:0:0]
	for _, d := range r.dialogs {
		if d.ID != dialogID {
			kept = append(kept, d)
		}
	}
	r.dialogs = kept
	r.supersedeLocked()
	wasSelected := r.selected == dialogID
	r.mu.Unlock()

	if wasSelected {
		if err := r.Select(ctx, NoDialog); err != nil {
			return err
		}
	}
	r.notifier.Success("Dialog deleted successfully!")
	return nil
}

// Select makes dialogID active and loads its history. NoDialog clears it.
func (r *DialogRegistry) Select(ctx context.Context, dialogID int64) error {
	r.mu.Lock()
	r.selected = dialogID
	r.mu.Unlock()

	if err := r.store.Load(ctx, dialogID); err != nil {
		if !errors.Is(err, app_errors.ErrStale) {
			r.notifier.Error("Failed to load messages")
		}
		return err
	}
	return nil
}

// Lookup returns the dialog with the given id from the current list.
func (r *DialogRegistry) Lookup(dialogID int64) (model.Dialog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.dialogs {
		if d.ID == dialogID {
			return d, true
		}
	}
	return model.Dialog{}, false
}

func (r *DialogRegistry) snapshotLocked() []model.Dialog {
	out := make([]model.Dialog, len(r.dialogs))
	copy(out, r.dialogs)
	return out
}
