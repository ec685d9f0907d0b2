// Package secret holds the shared webhook signing secret and the ways it is
// changed at runtime.
package secret

import (
	"sync/atomic"
	"unicode/utf8"
)

// Cell is a process-wide holder for the current secret. Readers always see
// either the old or the new value, never a partial write.
type Cell struct {
	v atomic.Pointer[string]
}

func NewCell(initial string) *Cell {
	c := &Cell{}
	c.Store(initial)
	return c
}

// Load returns the current secret, or "" when none is configured.
func (c *Cell) Load() string {
	if c == nil {
		return ""
	}
	if p := c.v.Load(); p != nil {
		return *p
	}
	return ""
}

func (c *Cell) Store(secret string) {
	c.v.Store(&secret)
}

func (c *Cell) Clear() {
	c.v.Store(nil)
}

func (c *Cell) Configured() bool {
	return c.Load() != ""
}

// previewMinLength is the shortest secret that gets a partial preview.
// Shorter ones would be revealed almost entirely.
const previewMinLength = 12

// Preview returns the first and last four characters of the secret.
func Preview(secret string) string {
	if secret == "" {
		return ""
	}
	if utf8.RuneCountInString(secret) < previewMinLength {
		return "****"
	}
	runes := []rune(secret)
	return string(runes[:4]) + "..." + string(runes[len(runes)-4:])
}
