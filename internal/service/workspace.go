package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ragchat/client/internal/interfaces"
	"ragchat/client/internal/repository"
)

// Backend is everything the workspace needs from the RAG backend.
type Backend interface {
	interfaces.AuthBackend
	interfaces.DialogBackend
	interfaces.ChatBackend
	interfaces.ConfigBackend
	interfaces.KnowledgeBaseBackend
	interfaces.EvaluationBackend
}

// Workspace wires the client components around one backend and one local
// storage.
type Workspace struct {
	Identity   *IdentityService
	Store      *SessionStore
	Registry   *DialogRegistry
	Dispatcher *MessageDispatcher
	Config     *DialogConfigManager
	KB         *KnowledgeBaseBrowser
	Eval       *EvaluationHarness
}

func NewWorkspace(b Backend, storage repository.LocalStorage, notifier interfaces.Notifier, chunkPageSize int) *Workspace {
	store := NewSessionStore(b)
	registry := NewDialogRegistry(b, store, notifier)
	return &Workspace{
		Identity:   NewIdentityService(b, storage),
		Store:      store,
		Registry:   registry,
		Dispatcher: NewMessageDispatcher(store, b, registry, notifier),
		Config:     NewDialogConfigManager(b, notifier),
		KB:         NewKnowledgeBaseBrowser(b, notifier, chunkPageSize),
		Eval:       NewEvaluationHarness(b, notifier),
	}
}

// Bootstrap restores the persisted identity and, when signed in, loads the
// dialog list and the knowledge-base file list concurrently. Load failures
// are reported through the notifier and leave the components usable.
func (w *Workspace) Bootstrap(ctx context.Context) (string, error) {
	user, err := w.Identity.Restore(ctx)
	if err != nil || user == "" {
		return user, err
	}

	// A failed list must not cancel the other one, so no derived context.
	var g errgroup.Group
	g.Go(func() error {
		_, err := w.Registry.Reload(ctx)
		return err
	})
	g.Go(func() error {
		_, err := w.KB.ListFiles(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Warn("Workspace bootstrap incomplete", "user", user, "error", err)
	}
	return user, nil
}

// Close waits for background work to finish.
func (w *Workspace) Close() {
	w.Registry.Wait()
}
