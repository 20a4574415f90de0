// Package codec stores JSON-encoded values in a storage backend.
//
// Failures never reach the caller: a save that cannot be serialized or written
// is logged and dropped, and a load that cannot be read or decoded yields the
// caller's default.
package codec

import (
	"io"
	"log/slog"

	"github.com/goccy/go-json"

	"tasksphere/internal/storage"
)

// Codec serializes values into a storage.Backend.
type Codec struct {
	backend storage.Backend
	logger  *slog.Logger
}

// New wraps backend.
func New(backend storage.Backend, logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Codec{backend: backend, logger: logger}
}

// Save encodes value and writes it under key.
func (c *Codec) Save(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("error saving to storage", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(key, string(data)); err != nil {
		c.logger.Warn("error saving to storage", "key", key, "error", err)
	}
}

// Remove deletes key.
func (c *Codec) Remove(key string) {
	if err := c.backend.Remove(key); err != nil {
		c.logger.Warn("error removing from storage", "key", key, "error", err)
	}
}

// Has reports whether key holds a value.
func (c *Codec) Has(key string) bool {
	_, ok, err := c.backend.Get(key)
	if err != nil {
		c.logger.Warn("error reading storage", "key", key, "error", err)
		return false
	}
	return ok
}

// Clear wipes the backend.
func (c *Codec) Clear() {
	if err := c.backend.Clear(); err != nil {
		c.logger.Warn("error clearing storage", "error", err)
	}
}

// Load decodes the value under key, or returns def.
func Load[T any](c *Codec, key string, def T) T {
	raw, ok, err := c.backend.Get(key)
	if err != nil {
		c.logger.Warn("error loading from storage", "key", key, "error", err)
		return def
	}
	if !ok || raw == "" {
		return def
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		c.logger.Warn("error loading from storage", "key", key, "error", err)
		return def
	}
	return out
}
