package ident

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestGeneratorDeterministic(t *testing.T) {
	g := Generator{
		Now:  func() time.Time { return time.UnixMilli(1700000000123) },
		IntN: func(n int) int { return n - 1 },
	}
	if got, want := g.New(), "1700000000123zzzzzzzzz"; got != want {
		t.Fatalf("New() = %q, want %q", got, want)
	}
}

func TestNewShape(t *testing.T) {
	before := time.Now().UnixMilli()
	id := New()
	if len(id) <= suffixLength {
		t.Fatalf("id too short: %q", id)
	}

	ts, err := strconv.ParseInt(id[:len(id)-suffixLength], 10, 64)
	if err != nil {
		t.Fatalf("timestamp prefix of %q: %v", id, err)
	}
	if ts < before {
		t.Fatalf("timestamp %d precedes %d", ts, before)
	}
	for _, r := range id[len(id)-suffixLength:] {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("suffix has non base-36 rune %q in %q", r, id)
		}
	}
}

func TestNewVaries(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		seen[New()] = struct{}{}
	}
	if len(seen) < 999 {
		t.Fatalf("expected distinct ids, got %d unique of 1000", len(seen))
	}
}
