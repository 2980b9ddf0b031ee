// Package ids generates short, prefixed identifiers for core entities.
package ids

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	length   = 8
)

// Prefixes for the entity GUID namespaces this package mints.
const (
	PrefixProject     = "prj"
	PrefixAgent        = "agt"
	PrefixMessage      = "msg"
	PrefixThread       = "thr"
	PrefixReservation  = "rsv"
	PrefixLink         = "lnk"
)

// New generates a short id of the form "<prefix>-xxxxxxxx".
func New(prefix string) (string, error) {
	prefix = strings.TrimSuffix(prefix, "-")

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}

	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = alphabet[int(buf[i])%len(alphabet)]
	}

	return fmt.Sprintf("%s-%s", prefix, string(out)), nil
}

// MustNew panics on rand failure; used only where failure is not
// recoverable (e.g. process is already broken if /dev/urandom is gone).
func MustNew(prefix string) string {
	id, err := New(prefix)
	if err != nil {
		panic(err)
	}
	return id
}
