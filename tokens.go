package rexel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned by token sources that hold no token.
var ErrNoToken = errors.New("rexel: no auth token")

// TokenSource yields the current bearer token. The client asks for it on
// every secured request and never caches it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenStore is a TokenSource the client can also write to.
type TokenStore interface {
	TokenSource
	SetToken(ctx context.Context, token string) error
	RemoveToken(ctx context.Context) error
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// MemoryTokenStore keeps the token in process memory.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryTokenStore returns a store holding token, which may be empty.
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

func (s *MemoryTokenStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) RemoveToken(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// FileTokenStore keeps the token in a file. The file is read on every call
// so a token rotated by another process is picked up immediately.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates the parent directory of path if needed.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return &FileTokenStore{path: path}, nil
}

func (s *FileTokenStore) Token(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SetToken replaces the file through a temporary sibling and a rename, so
// readers never see a partial token.
func (s *FileTokenStore) SetToken(_ context.Context, token string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, err = tmp.WriteString(token)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0o600)
	}
	if err == nil {
		err = os.Rename(tmpPath, s.path)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) RemoveToken(_ context.Context) error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// OAuth2TokenSource reads bearer tokens from an oauth2.TokenSource, which
// handles its own refresh.
func OAuth2TokenSource(ts oauth2.TokenSource) TokenSource {
	return TokenSourceFunc(func(_ context.Context) (string, error) {
		tok, err := ts.Token()
		if err != nil {
			return "", err
		}
		if !tok.Valid() {
			return "", ErrNoToken
		}
		return tok.AccessToken, nil
	})
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens never count as expired.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return !claims.VerifyExpiresAt(now.Unix(), false)
}

// SessionStore yields the anonymous session id attached to public calls.
type SessionStore interface {
	SessionID(ctx context.Context) (string, bool)
}

// MemorySessionStore holds one session id for the process.
type MemorySessionStore struct {
	mu sync.RWMutex
	id string
}

// NewMemorySessionStore returns a store holding id, which may be empty.
func NewMemorySessionStore(id string) *MemorySessionStore {
	return &MemorySessionStore{id: id}
}

func (s *MemorySessionStore) SessionID(_ context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.id != ""
}

// Ensure returns the stored id, generating one first when there is none.
func (s *MemorySessionStore) Ensure() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == "" {
		s.id = NewSessionID()
	}
	return s.id
}

// Reset forgets the session id.
func (s *MemorySessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
}

// NewSessionID generates a client-side session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
