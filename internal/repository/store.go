// Package repository implements the user, project and task collections on top
// of the storage codec.
//
// Every call loads a whole collection, changes it in memory and writes the whole
// collection back. Mutations hold a per-key lock for the duration of that cycle.
// Each call first waits a configurable latency so callers keep an asynchronous
// shape.
package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"tasksphere/internal/codec"
	"tasksphere/internal/ident"
	"tasksphere/internal/keylock"
	"tasksphere/internal/models"
	"tasksphere/internal/resolver"
	"tasksphere/internal/session"
)

// Storage keys of the persisted collections.
const (
	KeyUsers    = "users"
	KeyProjects = "projects"
	KeyTasks    = "tasks"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidInput       = errors.New("invalid input")
)

// Options tunes a Store. The zero value means no latency and the default task scope.
type Options struct {
	Latency       time.Duration
	LogoutLatency time.Duration
	TaskScope     resolver.Scope
	Now           func() time.Time
	NewID         func() string
}

// Store is the data access layer over a codec.
type Store struct {
	codec   *codec.Codec
	session *session.Store
	locks   *keylock.Locker
	logger  *slog.Logger
	opts    Options
}

// New builds a Store. Locks may be shared with other writers of the same backend.
func New(c *codec.Codec, sess *session.Store, locks *keylock.Locker, logger *slog.Logger, opts Options) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if locks == nil {
		locks = keylock.New()
	}
	if sess == nil {
		sess = session.New(c)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = ident.New
	}
	return &Store{codec: c, session: sess, locks: locks, logger: logger, opts: opts}
}

// Session exposes the session store used by login and logout.
func (s *Store) Session() *session.Store {
	return s.session
}

// Initialize writes the seed collections that are not stored yet.
func (s *Store) Initialize() {
	unlock := s.locks.Lock(KeyUsers, KeyProjects, KeyTasks)
	defer unlock()

	data := seedData()
	if !s.codec.Has(KeyUsers) {
		s.codec.Save(KeyUsers, data.users)
	}
	if !s.codec.Has(KeyProjects) {
		s.codec.Save(KeyProjects, data.projects)
	}
	if !s.codec.Has(KeyTasks) {
		s.codec.Save(KeyTasks, data.tasks)
	}
}

// ForceReset overwrites every collection with seed data and logs the user out.
func (s *Store) ForceReset() {
	unlock := s.locks.Lock(KeyUsers, KeyProjects, KeyTasks)
	defer unlock()

	data := seedData()
	s.codec.Save(KeyUsers, data.users)
	s.codec.Save(KeyProjects, data.projects)
	s.codec.Save(KeyTasks, data.tasks)
	s.session.Clear()
	s.logger.Info("storage reset to seed data")
}

// ClearAll wipes the whole backend, including board records and the session.
func (s *Store) ClearAll() {
	unlock := s.locks.Lock(KeyUsers, KeyProjects, KeyTasks)
	defer unlock()

	s.codec.Clear()
	s.logger.Info("storage cleared")
}

func (s *Store) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Store) now() time.Time {
	return s.opts.Now().UTC()
}

func (s *Store) loadUsers() []models.StoredUser {
	return codec.Load(s.codec, KeyUsers, []models.StoredUser{})
}

func (s *Store) loadProjects() []models.Project {
	return codec.Load(s.codec, KeyProjects, []models.Project{})
}

func (s *Store) loadTasks() []models.Task {
	return codec.Load(s.codec, KeyTasks, []models.Task{})
}
