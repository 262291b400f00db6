/**
 * @description
 * Payment method models. A method belongs to exactly one account and carries a
 * registry type, a free-form handle and a zero-based rank within the owner's list.
 */
package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxLabelLength  = 50
	MaxHandleLength = 200
)

var typePattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// PaymentMethod is one entry in an owner's ordered collection.
type PaymentMethod struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Label     *string   `json:"label"`
	Handle    string    `json:"handle"`
	SortOrder int       `json:"sortOrder"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreatePaymentMethodInput is the body accepted by POST /payment-methods.
type CreatePaymentMethodInput struct {
	Type   string  `json:"type"`
	Handle string  `json:"handle"`
	Label  *string `json:"label,omitempty"`
}

// PaymentMethodPatch is a partial update. Nil fields keep their stored value.
type PaymentMethodPatch struct {
	Type   *string `json:"type,omitempty"`
	Label  *string `json:"label,omitempty"`
	Handle *string `json:"handle,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p PaymentMethodPatch) IsEmpty() bool {
	return p.Type == nil && p.Label == nil && p.Handle == nil && p.Active == nil
}

// NormalizeType lowercases and trims a type identifier and checks its charset.
// Unknown identifiers are accepted; the registry falls back for them.
func NormalizeType(raw string) (string, error) {
	paymentType := strings.ToLower(strings.TrimSpace(raw))
	if paymentType == "" {
		return "", NewValidationError("type", "type is required")
	}
	if !typePattern.MatchString(paymentType) {
		return "", NewValidationError("type", "must be 1-32 characters of lowercase letters, numbers, underscores, and hyphens")
	}
	return paymentType, nil
}

// NormalizeHandle trims the handle and rejects blanks.
func NormalizeHandle(raw string) (string, error) {
	handle := strings.TrimSpace(raw)
	if handle == "" {
		return "", NewValidationError("handle", "handle is required")
	}
	if utf8.RuneCountInString(handle) > MaxHandleLength {
		return "", NewValidationError("handle", "must be at most 200 characters")
	}
	return handle, nil
}

// NormalizeLabel trims a label. A blank label becomes nil so display falls back to the registry.
func NormalizeLabel(raw *string) (*string, error) {
	label := trimOptional(raw)
	if label != nil && utf8.RuneCountInString(*label) > MaxLabelLength {
		return nil, NewValidationError("label", "must be at most 50 characters")
	}
	return label, nil
}

// Normalize validates every field of a create request in place.
func (in *CreatePaymentMethodInput) Normalize() error {
	paymentType, err := NormalizeType(in.Type)
	if err != nil {
		return err
	}
	handle, err := NormalizeHandle(in.Handle)
	if err != nil {
		return err
	}
	label, err := NormalizeLabel(in.Label)
	if err != nil {
		return err
	}
	in.Type, in.Handle, in.Label = paymentType, handle, label
	return nil
}

// Normalize validates the fields present in the patch.
// An explicitly blank label is kept as an empty string so the store can clear it.
func (p *PaymentMethodPatch) Normalize() error {
	if p.Type != nil {
		paymentType, err := NormalizeType(*p.Type)
		if err != nil {
			return err
		}
		p.Type = &paymentType
	}
	if p.Handle != nil {
		handle, err := NormalizeHandle(*p.Handle)
		if err != nil {
			return err
		}
		p.Handle = &handle
	}
	if p.Label != nil {
		label, err := NormalizeLabel(p.Label)
		if err != nil {
			return err
		}
		if label == nil {
			empty := ""
			label = &empty
		}
		p.Label = label
	}
	return nil
}

// Apply returns a copy of m with the patch applied.
func (p PaymentMethodPatch) Apply(m PaymentMethod) PaymentMethod {
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Handle != nil {
		m.Handle = *p.Handle
	}
	if p.Label != nil {
		if *p.Label == "" {
			m.Label = nil
		} else {
			label := *p.Label
			m.Label = &label
		}
	}
	if p.Active != nil {
		m.Active = *p.Active
	}
	return m
}
