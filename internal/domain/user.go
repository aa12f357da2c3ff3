// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxUserIDLen      = 64
	MaxDisplayNameLen = 36
	defaultNamePrefix = "User_"
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

// UserID is an authenticated identity supplied by the identity collaborator.
type UserID string

// DisplayName trims the supplied name and checks its length in characters.
func DisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) == 0 {
		return "", ErrDisplayNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}

// DefaultDisplayName is used when a client joins without choosing a name.
func DefaultDisplayName(h Handle) string {
	s := string(h)
	if len(s) > 8 {
		s = s[:8]
	}
	return defaultNamePrefix + s
}
