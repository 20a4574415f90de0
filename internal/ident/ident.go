// Package ident generates entity identifiers.
package ident

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const (
	alphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength = 9
)

// Generator builds ids from a millisecond timestamp and a base-36 random suffix.
type Generator struct {
	Now  func() time.Time
	IntN func(n int) int
}

var std = Generator{Now: time.Now, IntN: rand.IntN}

// New returns an id from the default generator.
func New() string {
	return std.New()
}

// New returns a fresh id. Ids are not checked for collisions.
func (g Generator) New() string {
	now := g.Now
	if now == nil {
		now = time.Now
	}
	intn := g.IntN
	if intn == nil {
		intn = rand.IntN
	}

	buf := make([]byte, 0, 13+suffixLength)
	buf = strconv.AppendInt(buf, now().UnixMilli(), 10)
	for i := 0; i < suffixLength; i++ {
		buf = append(buf, alphabet[intn(len(alphabet))])
	}
	return string(buf)
}
