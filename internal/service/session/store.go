// Package session owns the lifecycle of dataset snapshots keyed by opaque
// session identifiers. Sessions are immutable after creation; only
// whole-session deletion touches them afterward.
package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
	"github.com/prudhvi1709/hypoforge/internal/model/dataset"
)

// Session binds an opaque id to one snapshot file and its metadata.
type Session struct {
	ID          string    `json:"session_id"`
	Origin      string    `json:"origin"`
	Description string    `json:"description"`
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
	CreatedAt   time.Time `json:"created_at"`

	Path string `json:"-"`
}

// Store is the synchronized session registry. A snapshot file exists if and
// only if a registry entry exists for that id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
	dir      string
	logger   *zap.Logger
}

// NewStore creates a store backed by a fresh process-scoped temp directory.
func NewStore(logger *zap.Logger) (*Store, error) {
	dir, err := os.MkdirTemp("", "hypoforge-sessions-")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, err, "failed to create session directory")
	}

	return &Store{
		sessions: make(map[string]Session),
		dir:      dir,
		logger:   logger,
	}, nil
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string {
	return s.dir
}

// Create allocates a fresh id, writes the snapshot file and records the
// session metadata.
func (s *Store) Create(ds *dataset.Dataset, origin string) (Session, error) {
	raw, err := dataset.EncodeSnapshot(ds)
	if err != nil {
		return Session{}, err
	}

	sess := Session{
		ID:          uuid.NewString(),
		Origin:      origin,
		Description: ds.Describe(),
		RowCount:    ds.RowCount(),
		ColumnCount: ds.ColumnCount(),
		CreatedAt:   time.Now().UTC(),
	}
	sess.Path = filepath.Join(s.dir, sess.ID+".snap")

	if err := os.WriteFile(sess.Path, raw, 0o600); err != nil {
		return Session{}, apperr.Wrap(apperr.KindPermissionDenied, err, "failed to write snapshot")
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.Int("rows", sess.RowCount),
		zap.Int("columns", sess.ColumnCount))
	return sess, nil
}

// Get returns session metadata.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, apperr.New(apperr.KindNotFound, "session not found: %s", id)
	}
	return sess, nil
}

// Load reads the dataset back from the session's snapshot.
func (s *Store) Load(id string) (*dataset.Dataset, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(sess.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Wrap(apperr.KindNotFound, err, "snapshot missing for session %s", id)
		}
		return nil, apperr.Wrap(apperr.KindPermissionDenied, err, "failed to read snapshot for session %s", id)
	}

	return dataset.DecodeSnapshot(raw)
}

// Delete removes the session and its snapshot. The registry entry goes first
// under the write lock, so readers observe either the full session or
// NotFound, never a partial state.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return apperr.New(apperr.KindNotFound, "session not found: %s", id)
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	if err := os.Remove(sess.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove snapshot", zap.String("session_id", id), zap.Error(err))
	}

	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// Sweep deletes every session older than maxAge. Per-entry failures are
// skipped so one corrupt entry cannot block the pass. Returns the count
// actually removed.
func (s *Store) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		s.mu.Lock()
		sess, ok := s.sessions[id]
		if !ok {
			s.mu.Unlock()
			continue
		}
		// Unlink first: a session whose snapshot cannot be removed stays
		// registered, so a later sweep can retry it.
		if err := os.Remove(sess.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.mu.Unlock()
			s.logger.Warn("sweep: failed to remove snapshot", zap.String("session_id", id), zap.Error(err))
			continue
		}
		delete(s.sessions, id)
		s.mu.Unlock()
		removed++
	}

	if removed > 0 {
		s.logger.Info("sweep completed", zap.Int("removed", removed))
	}
	return removed
}

// Close removes the snapshot directory. Sessions are ephemeral; nothing
// survives a restart.
func (s *Store) Close() error {
	s.mu.Lock()
	s.sessions = make(map[string]Session)
	s.mu.Unlock()
	return os.RemoveAll(s.dir)
}
