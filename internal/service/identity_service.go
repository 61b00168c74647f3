package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"ragchat/client/internal/backend"
	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/interfaces"
	"ragchat/client/internal/repository"
)

const (
	userKey    = "ragchat_user"
	cookiesKey = "ragchat_session_cookies"
)

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Expires time.Time `json:"expires,omitzero"`
}

// IdentityService owns the signed-in user. The username and the backend
// session cookies are persisted so a restarted client stays signed in.
type IdentityService struct {
	auth    interfaces.AuthBackend
	storage repository.LocalStorage

	mu   sync.RWMutex
	user string
}

func NewIdentityService(auth interfaces.AuthBackend, storage repository.LocalStorage) *IdentityService {
	return &IdentityService{auth: auth, storage: storage}
}

// Restore loads a persisted identity and its cookies, if any. It returns the
// restored username or "" when nobody is signed in.
func (s *IdentityService) Restore(ctx context.Context) (string, error) {
	user, err := s.storage.Get(ctx, userKey)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("could not read stored identity: %w", err)
	}

	raw, err := s.storage.Get(ctx, cookiesKey)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return "", fmt.Errorf("could not read stored session: %w", err)
	default:
		var stored []storedCookie
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			slog.Warn("Ignoring unreadable stored session cookies", "error", err)
		} else {
			s.auth.SetCookies(toHTTPCookies(stored))
		}
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	slog.Debug("Restored identity", "user", user)
	return user, nil
}

// CurrentUser returns the signed-in username or "".
func (s *IdentityService) CurrentUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Login signs in and persists the identity along with the session cookies.
func (s *IdentityService) Login(ctx context.Context, username, password string) (string, error) {
	creds := backend.Credentials{Username: strings.TrimSpace(username), Password: password}
	if err := backend.ValidateRequest(creds); err != nil {
		return "", err
	}
	resp, err := s.auth.Login(ctx, creds)
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	user := resp.Username
	if user == "" {
		user = creds.Username
	}

	if err := s.storage.Set(ctx, userKey, user); err != nil {
		return "", fmt.Errorf("could not persist identity: %w", err)
	}
	if err := s.saveCookies(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	slog.Info("Signed in", "user", user)
	return user, nil
}

// Register creates an account. It does not sign in.
func (s *IdentityService) Register(ctx context.Context, username, password string) error {
	creds := backend.Credentials{Username: strings.TrimSpace(username), Password: password}
	if err := backend.ValidateRequest(creds); err != nil {
		return err
	}
	if err := s.auth.Register(ctx, creds); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	slog.Info("Registered account", "user", creds.Username)
	return nil
}

// Logout ends the backend session. The local identity is cleared even when
// the backend call fails; that failure is still returned.
func (s *IdentityService) Logout(ctx context.Context) error {
	callErr := s.auth.Logout(ctx)
	if callErr != nil {
		slog.Warn("Backend logout failed, clearing local identity anyway", "error", callErr)
	}

	s.auth.SetCookies(expireAll(s.auth.Cookies()))
	s.mu.Lock()
	s.user = ""
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, userKey, cookiesKey); err != nil {
		return errors.Join(callErr, fmt.Errorf("could not clear stored identity: %w", err))
	}
	if callErr != nil {
		return fmt.Errorf("logout failed: %w", callErr)
	}
	return nil
}

// RequireUser returns the signed-in user or ErrUnauthorized.
func (s *IdentityService) RequireUser() (string, error) {
	if u := s.CurrentUser(); u != "" {
		return u, nil
	}
	return "", fmt.Errorf("%w: not signed in", app_errors.ErrUnauthorized)
}

func (s *IdentityService) saveCookies(ctx context.Context) error {
	cookies := s.auth.Cookies()
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain, Expires: c.Expires})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("could not encode session cookies: %w", err)
	}
	if err := s.storage.Set(ctx, cookiesKey, string(data)); err != nil {
		return fmt.Errorf("could not persist session cookies: %w", err)
	}
	return nil
}

func toHTTPCookies(stored []storedCookie) []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain, Expires: c.Expires})
	}
	return cookies
}

func expireAll(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: "", Path: "/", MaxAge: -1})
	}
	return out
}
