/**
 * @description
 * Compiled-in table of supported payment types. Each entry carries its display
 * metadata and a pure deep-link rule; lookups for unknown types return a generic
 * display-only config instead of failing.
 */
package registry

import (
	"net/url"
	"strings"
)

// Type identifies a payment provider.
type Type string

const (
	Venmo     Type = "venmo"
	CashApp   Type = "cashapp"
	PayPal    Type = "paypal"
	Zelle     Type = "zelle"
	Bitcoin   Type = "bitcoin"
	Ethereum  Type = "ethereum"
	ApplePay  Type = "applepay"
	GooglePay Type = "googlepay"
)

const (
	FallbackColor = "#666666"
	FallbackIcon  = "💰"
)

// Config describes how a payment type is rendered and resolved.
type Config struct {
	Type        Type   `json:"type"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Placeholder string `json:"placeholder"`
	Guidance    string `json:"guidance"`
	Known       bool   `json:"-"`

	link func(handle string) string
}

// DeepLink returns the provider URI for handle. ok is false for display-only
// types and for blank handles.
func (c Config) DeepLink(handle string) (uri string, ok bool) {
	if c.link == nil {
		return "", false
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", false
	}
	return c.link(handle), true
}

// HasDeepLink reports whether the type ever produces a navigable URI.
func (c Config) HasDeepLink() bool {
	return c.link != nil
}

// Option is a picker entry for a registered type.
type Option struct {
	Value Type   `json:"value"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

var ordered = []Config{
	{
		Type:        Venmo,
		Label:       "Venmo",
		Color:       "#3D95CE",
		Icon:        "💙",
		Placeholder: "@username",
		Guidance:    "Open Venmo and send to this username.",
		link: func(h string) string {
			return "https://venmo.com/u/" + url.PathEscape(strings.TrimPrefix(h, "@"))
		},
	},
	{
		Type:        CashApp,
		Label:       "Cash App",
		Color:       "#00D632",
		Icon:        "💚",
		Placeholder: "$cashtag",
		Guidance:    "Open Cash App and send to this $cashtag.",
		link: func(h string) string {
			return "https://cash.app/$" + url.PathEscape(strings.TrimPrefix(h, "$"))
		},
	},
	{
		Type:        PayPal,
		Label:       "PayPal",
		Color:       "#003087",
		Icon:        "💳",
		Placeholder: "username",
		Guidance:    "Open PayPal and send to this PayPal.Me username.",
		link: func(h string) string {
			return "https://paypal.me/" + url.PathEscape(strings.TrimPrefix(h, "@"))
		},
	},
	{
		Type:        Zelle,
		Label:       "Zelle",
		Color:       "#6D1ED4",
		Icon:        "💜",
		Placeholder: "email or phone number",
		Guidance:    "Open your banking app and send with Zelle to this email or phone number.",
	},
	{
		Type:        Bitcoin,
		Label:       "Bitcoin",
		Color:       "#F7931A",
		Icon:        "₿",
		Placeholder: "bc1...",
		Guidance:    "Send BTC to this wallet address.",
		link: func(h string) string {
			return "bitcoin:" + h
		},
	},
	{
		Type:        Ethereum,
		Label:       "Ethereum",
		Color:       "#627EEA",
		Icon:        "Ξ",
		Placeholder: "0x...",
		Guidance:    "Send ETH to this wallet address.",
		link: func(h string) string {
			return "ethereum:" + h
		},
	},
	{
		Type:        ApplePay,
		Label:       "Apple Pay",
		Color:       "#333333",
		Icon:        "🍎",
		Placeholder: "phone number or email",
		Guidance:    "Open Messages or Wallet and send with Apple Cash to this contact.",
	},
	{
		Type:        GooglePay,
		Label:       "Google Pay",
		Color:       "#4285F4",
		Icon:        "🟢",
		Placeholder: "phone number or email",
		Guidance:    "Open Google Pay and send to this contact.",
	},
}

var byType = func() map[Type]Config {
	m := make(map[Type]Config, len(ordered))
	for i := range ordered {
		ordered[i].Known = true
		m[ordered[i].Type] = ordered[i]
	}
	return m
}()

// Lookup returns the config for a type identifier. It never fails: unknown
// identifiers get a generic display-only config labelled with the raw identifier.
func Lookup(paymentType string) Config {
	if cfg, ok := byType[Type(paymentType)]; ok {
		return cfg
	}
	return Config{
		Type:     Type(paymentType),
		Label:    paymentType,
		Color:    FallbackColor,
		Icon:     FallbackIcon,
		Guidance: "Send a payment to this identifier using the provider's app.",
	}
}

// DeepLink is shorthand for Lookup(paymentType).DeepLink(handle).
func DeepLink(paymentType, handle string) (string, bool) {
	return Lookup(paymentType).DeepLink(handle)
}

// Configs returns every registered config in picker order.
func Configs() []Config {
	out := make([]Config, len(ordered))
	copy(out, ordered)
	return out
}

// Options returns picker entries in registration order.
func Options() []Option {
	options := make([]Option, 0, len(ordered))
	for _, cfg := range ordered {
		options = append(options, Option{Value: cfg.Type, Label: cfg.Label, Icon: cfg.Icon})
	}
	return options
}

// DisplayLabel is the owner's label when set, otherwise the registry label.
func DisplayLabel(paymentType string, label *string) string {
	if label != nil {
		if trimmed := strings.TrimSpace(*label); trimmed != "" {
			return trimmed
		}
	}
	return Lookup(paymentType).Label
}
