package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/model"
)

// NoDialog is the dialog id of the "select a dialog" state.
const NoDialog int64 = 0

// SessionEventKind names a Session Store mutation.
type SessionEventKind string

const (
	SessionCleared     SessionEventKind = "cleared"
	SessionLoaded      SessionEventKind = "loaded"
	SessionAppended    SessionEventKind = "appended"
	SessionPlaceholder SessionEventKind = "placeholder"
	SessionResolved    SessionEventKind = "resolved"
	SessionDropped     SessionEventKind = "dropped"
)

// SessionEvent is emitted after every mutation. The presentation layer uses it
// as its scroll-to-latest signal.
type SessionEvent struct {
	Kind     SessionEventKind
	DialogID int64
	Len      int
}

// MessageLoader fetches a dialog's history.
type MessageLoader interface {
	GetMessages(ctx context.Context, dialogID int64) ([]model.Message, error)
}

// PendingTicket identifies the placeholder appended by one dispatch. It is only
// valid for the dialog and load epoch it was issued in.
type PendingTicket struct {
	dialogID int64
	epoch    uint64
}

// DialogID returns the dialog the placeholder was appended to.
func (t PendingTicket) DialogID() int64 { return t.dialogID }

// SessionStore holds the insertion-ordered messages of the active dialog and is
// the only place they are mutated. At most one pending placeholder exists.
type SessionStore struct {
	loader MessageLoader

	mu        sync.Mutex
	dialogID  int64
	epoch     uint64
	messages  []model.Message
	pending   int // index of the placeholder, -1 when none
	loading   bool
	listeners map[int]func(SessionEvent)
	nextSub   int
}

func NewSessionStore(loader MessageLoader) *SessionStore {
	return &SessionStore{
		loader:    loader,
		pending:   -1,
		listeners: make(map[int]func(SessionEvent)),
	}
}

// Subscribe registers fn for mutation events and returns its cancel function.
// Listeners run on the mutating goroutine after the store lock is released.
func (s *SessionStore) Subscribe(fn func(SessionEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// DialogID returns the active dialog, or NoDialog.
func (s *SessionStore) DialogID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogID
}

// Messages returns a snapshot of the message list.
func (s *SessionStore) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// HasPending reports whether a placeholder is awaiting resolution.
func (s *SessionStore) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending >= 0
}

// Loading reports whether history for the active dialog is being fetched.
func (s *SessionStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Load replaces the message list with the server history of dialogID. Loading
// NoDialog clears the store. A load superseded by a later Load or Clear is
// discarded and returns ErrStale. On fetch failure the list is left empty.
func (s *SessionStore) Load(ctx context.Context, dialogID int64) error {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.dialogID = dialogID
	s.messages = nil
	s.pending = -1
	if dialogID == NoDialog {
		s.loading = false
		ev := s.eventLocked(SessionCleared)
		s.mu.Unlock()
		s.emit(ev)
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	history, err := s.loader.GetMessages(ctx, dialogID)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		slog.Debug("Discarding history for a dialog that is no longer selected", "dialog_id", dialogID)
		return fmt.Errorf("%w: history of dialog %d", app_errors.ErrStale, dialogID)
	}
	s.loading = false
	if err != nil {
		ev := s.eventLocked(SessionLoaded)
		s.mu.Unlock()
		s.emit(ev)
		return fmt.Errorf("could not load messages of dialog %d: %w", dialogID, err)
	}
	s.messages = make([]model.Message, 0, len(history))
	for _, msg := range history {
		// Server history never carries unresolved placeholders.
		msg.Loading = false
		s.messages = append(s.messages, msg)
	}
	ev := s.eventLocked(SessionLoaded)
	s.mu.Unlock()
	s.emit(ev)
	return nil
}

// Clear drops the active dialog and all its messages.
func (s *SessionStore) Clear() {
	_ = s.Load(context.Background(), NoDialog)
}

// AppendUser appends a finalized user message with a client-side timestamp.
func (s *SessionStore) AppendUser(dialogID int64, content string) (model.Message, error) {
	msg := model.Message{Role: model.RoleUser, Content: content, Timestamp: model.Now()}

	s.mu.Lock()
	if err := s.checkWritableLocked(dialogID); err != nil {
		s.mu.Unlock()
		return model.Message{}, err
	}
	s.messages = append(s.messages, msg)
	ev := s.eventLocked(SessionAppended)
	s.mu.Unlock()
	s.emit(ev)
	return msg, nil
}

// AppendPlaceholder appends the pending assistant message. It fails with
// ErrConflict if a placeholder already exists.
func (s *SessionStore) AppendPlaceholder(dialogID int64) (PendingTicket, error) {
	s.mu.Lock()
	if err := s.checkWritableLocked(dialogID); err != nil {
		s.mu.Unlock()
		return PendingTicket{}, err
	}
	if s.pending >= 0 {
		s.mu.Unlock()
		return PendingTicket{}, fmt.Errorf("%w: dialog %d already has a pending reply", app_errors.ErrConflict, dialogID)
	}
	s.messages = append(s.messages, model.Message{
		Role:      model.RoleAssistant,
		Timestamp: model.Now(),
		Loading:   true,
	})
	s.pending = len(s.messages) - 1
	ticket := PendingTicket{dialogID: dialogID, epoch: s.epoch}
	ev := s.eventLocked(SessionPlaceholder)
	s.mu.Unlock()
	s.emit(ev)
	return ticket, nil
}

// ResolvePlaceholder replaces the placeholder identified by ticket with msg.
// It returns ErrStale when the dialog was switched or reloaded since.
func (s *SessionStore) ResolvePlaceholder(ticket PendingTicket, msg model.Message) error {
	s.mu.Lock()
	if err := s.checkTicketLocked(ticket); err != nil {
		s.mu.Unlock()
		return err
	}
	msg.Role = model.RoleAssistant
	msg.Loading = false
	if msg.Timestamp == "" {
		msg.Timestamp = model.Now()
	}
	s.messages[s.pending] = msg
	s.pending = -1
	ev := s.eventLocked(SessionResolved)
	s.mu.Unlock()
	s.emit(ev)
	return nil
}

// DropPlaceholder removes the placeholder identified by ticket without
// replacement.
func (s *SessionStore) DropPlaceholder(ticket PendingTicket) error {
	s.mu.Lock()
	if err := s.checkTicketLocked(ticket); err != nil {
		s.mu.Unlock()
		return err
	}
	s.messages = append(s.messages[:s.pending], s.messages[s.pending+1:]...)
	s.pending = -1
	ev := s.eventLocked(SessionDropped)
	s.mu.Unlock()
	s.emit(ev)
	return nil
}

func (s *SessionStore) checkWritableLocked(dialogID int64) error {
	if dialogID == NoDialog {
		return fmt.Errorf("%w: no dialog selected", app_errors.ErrValidation)
	}
	if s.dialogID != dialogID {
		return fmt.Errorf("%w: dialog %d is not selected", app_errors.ErrStale, dialogID)
	}
	if s.loading {
		return fmt.Errorf("%w: history of dialog %d is still loading", app_errors.ErrConflict, dialogID)
	}
	return nil
}

func (s *SessionStore) checkTicketLocked(ticket PendingTicket) error {
	if ticket.dialogID != s.dialogID || ticket.epoch != s.epoch || s.pending < 0 {
		return fmt.Errorf("%w: placeholder of dialog %d", app_errors.ErrStale, ticket.dialogID)
	}
	return nil
}

func (s *SessionStore) eventLocked(kind SessionEventKind) sessionEmission {
	fns := make([]func(SessionEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return sessionEmission{
		event: SessionEvent{Kind: kind, DialogID: s.dialogID, Len: len(s.messages)},
		fns:   fns,
	}
}

type sessionEmission struct {
	event SessionEvent
	fns   []func(SessionEvent)
}

func (s *SessionStore) emit(e sessionEmission) {
	for _, fn := range e.fns {
		fn(e.event)
	}
}
