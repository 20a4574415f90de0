// Package storage defines the string key-value backend the data layer persists into.
package storage

import "errors"

// ErrQuotaExceeded is returned by Set when the write would exceed the backend capacity.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Backend is a flat string keyspace with get/set/remove primitives.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Clear() error
}

// EntrySize is the number of bytes an entry counts against a quota.
func EntrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
