package domain

import "github.com/DanstheMan1981/allrails/internal/resolve"

// PublicMethod is the visitor-facing subset of a PaymentMethod plus its resolved action.
type PublicMethod struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Label     *string        `json:"label"`
	Handle    string         `json:"handle"`
	SortOrder int            `json:"sortOrder"`
	Action    resolve.Action `json:"action"`
}

// PublicPage is the read-only projection served at /p/{username}. It is rebuilt per request.
type PublicPage struct {
	Username    string         `json:"username"`
	DisplayName *string        `json:"displayName"`
	Avatar      *string        `json:"avatar"`
	Bio         *string        `json:"bio"`
	Methods     []PublicMethod `json:"paymentMethods"`
}
