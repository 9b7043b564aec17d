// Package id generates event identifiers.
//
// Identifiers are random (version 4) UUID bytes encoded as lowercase base32
// without padding, giving 26 characters that are safe in URLs, file names
// and iCalendar UID values.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// New returns a fresh identifier.
func New() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("id: generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// NewUID returns an identifier qualified with domain, the usual shape of
// an iCalendar UID ("<id>@<domain>"). An empty domain yields a bare id.
func NewUID(domain string) (string, error) {
	v, err := New()
	if err != nil {
		return "", err
	}
	if domain == "" {
		return v, nil
	}
	return v + "@" + domain, nil
}
