// Package session persists the current user record.
package session

import (
	"tasksphere/internal/codec"
	"tasksphere/internal/models"
)

// Key is the storage key of the session record.
const Key = "current_user"

// Store reads and writes the single session record.
type Store struct {
	codec *codec.Codec
}

// New returns a session store over c.
func New(c *codec.Codec) *Store {
	return &Store{codec: c}
}

// Current returns the stored user, or nil when nobody is logged in.
func (s *Store) Current() *models.User {
	return codec.Load[*models.User](s.codec, Key, nil)
}

// Set stores u; a nil user clears the session.
func (s *Store) Set(u *models.User) {
	if u == nil {
		s.Clear()
		return
	}
	s.codec.Save(Key, u)
}

// Clear removes the session record.
func (s *Store) Clear() {
	s.codec.Remove(Key)
}
