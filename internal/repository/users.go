package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"tasksphere/internal/models"
)

// Login matches email and password exactly and stores the user as the session user.
func (s *Store) Login(ctx context.Context, email, password string) (models.User, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.User{}, err
	}

	for _, u := range s.loadUsers() {
		if u.Email == email && u.Password == password {
			public := u.Public()
			s.session.Set(&public)
			return public, nil
		}
	}
	return models.User{}, ErrInvalidCredentials
}

// Register creates an account and logs it in. Emails are unique ignoring case.
func (s *Store) Register(ctx context.Context, name, email, password string) (models.User, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.User{}, err
	}

	unlock := s.locks.Lock(KeyUsers)
	defer unlock()

	users := s.loadUsers()
	if emailTaken(users, email, "") {
		return models.User{}, fmt.Errorf("register %s: %w", email, ErrEmailInUse)
	}

	user := models.StoredUser{
		ID:        s.opts.NewID(),
		Name:      name,
		Email:     email,
		Password:  password,
		Avatar:    avatarURL(name),
		CreatedAt: s.now(),
	}
	s.codec.Save(KeyUsers, append(users, user))

	public := user.Public()
	s.session.Set(&public)
	return public, nil
}

// Logout clears the session user.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.wait(ctx, s.opts.LogoutLatency); err != nil {
		return err
	}
	s.session.Clear()
	return nil
}

// CurrentUser returns the session user, or nil.
func (s *Store) CurrentUser() *models.User {
	return s.session.Current()
}

// ListUsers returns every account without passwords.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return nil, err
	}
	users := s.loadUsers()
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// GetUser fetches a single account by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.User{}, err
	}
	for _, u := range s.loadUsers() {
		if u.ID == id {
			return u.Public(), nil
		}
	}
	return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
}

// UpdateUser changes profile fields and refreshes the session when it is the same user.
func (s *Store) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (models.User, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.User{}, err
	}

	unlock := s.locks.Lock(KeyUsers)
	defer unlock()

	users := s.loadUsers()
	idx := -1
	for i, u := range users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	u := users[idx]
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		if emailTaken(users, *upd.Email, id) {
			return models.User{}, fmt.Errorf("update user %s: %w", id, ErrEmailInUse)
		}
		u.Email = *upd.Email
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	users[idx] = u
	s.codec.Save(KeyUsers, users)

	public := u.Public()
	if current := s.session.Current(); current != nil && current.ID == id {
		s.session.Set(&public)
	}
	return public, nil
}

// DeleteUser removes an account. Unknown ids are ignored.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return err
	}

	unlock := s.locks.Lock(KeyUsers)
	defer unlock()

	users := s.loadUsers()
	kept := users[:0]
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	s.codec.Save(KeyUsers, kept)

	if current := s.session.Current(); current != nil && current.ID == id {
		s.session.Clear()
	}
	return nil
}

func emailTaken(users []models.StoredUser, email, exceptID string) bool {
	for _, u := range users {
		if u.ID != exceptID && u.Email != "" && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func avatarURL(name string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=ef4444&color=fff", url.PathEscape(name))
}
