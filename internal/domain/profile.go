/**
 * @description
 * Profile is the public identity of an account: the username that addresses its
 * payment page plus optional display fields. One profile per account, upserted
 * and never deleted.
 */
package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxDisplayNameLength = 50
	MaxBioLength         = 200
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9-]{3,30}$`)

// Profile represents an account's public page identity.
type Profile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"displayName"`
	Avatar      *string   `json:"avatar"`
	Bio         *string   `json:"bio"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UpsertProfileInput is the body accepted by PUT /profile.
type UpsertProfileInput struct {
	Username    string  `json:"username"`
	DisplayName *string `json:"displayName,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// NormalizeUsername lowercases and trims a username, then checks length and charset.
func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if username == "" {
		return "", NewValidationError("username", "username is required")
	}
	if !usernamePattern.MatchString(username) {
		return "", NewValidationError("username", "must be 3-30 characters of lowercase letters, numbers, and hyphens")
	}
	return username, nil
}

// Normalize trims the optional fields, turns blanks into nil and enforces the length limits.
func (in *UpsertProfileInput) Normalize() error {
	username, err := NormalizeUsername(in.Username)
	if err != nil {
		return err
	}
	in.Username = username
	in.DisplayName = trimOptional(in.DisplayName)
	in.Avatar = trimOptional(in.Avatar)
	in.Bio = trimOptional(in.Bio)

	if in.DisplayName != nil && utf8.RuneCountInString(*in.DisplayName) > MaxDisplayNameLength {
		return NewValidationError("displayName", "must be at most 50 characters")
	}
	if in.Bio != nil && utf8.RuneCountInString(*in.Bio) > MaxBioLength {
		return NewValidationError("bio", "must be at most 200 characters")
	}
	return nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
