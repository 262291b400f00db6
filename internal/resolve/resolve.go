/**
 * @description
 * Maps a method's (type, handle) pair to the affordance a visitor gets: a
 * navigable provider URI, or the handle to copy plus instructions. Resolve is
 * pure; side effects live in Trigger and are chosen by the caller.
 *
 * @dependencies
 * - internal/registry: per-type deep-link rules and guidance.
 * - github.com/badoux/checkmail: email format check for Zelle wording.
 */
package resolve

import (
	"strings"

	"github.com/DanstheMan1981/allrails/internal/registry"
	"github.com/badoux/checkmail"
)

// Kind discriminates the two action shapes.
type Kind string

const (
	KindNavigate       Kind = "navigate"
	KindDisplayAndCopy Kind = "copy"
)

// Action is the resolved affordance for one payment method.
// URI is set for KindNavigate; Text and Instructions for KindDisplayAndCopy.
type Action struct {
	Kind         Kind   `json:"kind"`
	URI          string `json:"uri,omitempty"`
	Text         string `json:"text,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// IsNavigate reports whether the action opens a URI.
func (a Action) IsNavigate() bool {
	return a.Kind == KindNavigate
}

// Resolve builds the action for a method.
func Resolve(paymentType, handle string) Action {
	cfg := registry.Lookup(paymentType)
	if uri, ok := cfg.DeepLink(handle); ok {
		return Action{Kind: KindNavigate, URI: uri}
	}
	return Action{
		Kind:         KindDisplayAndCopy,
		Text:         handle,
		Instructions: instructionsFor(cfg, handle),
	}
}

func instructionsFor(cfg registry.Config, handle string) string {
	if cfg.Type != registry.Zelle {
		return cfg.Guidance
	}
	if checkmail.ValidateFormat(strings.TrimSpace(handle)) == nil {
		return "Open your banking app and send with Zelle to this email address."
	}
	return "Open your banking app and send with Zelle to this phone number."
}
