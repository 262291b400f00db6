/**
 * @description
 * Event payloads written to the outbox inside the same transaction as the mutation
 * they describe, then published to the events exchange by the dispatcher.
 */
package domain

import "time"

const (
	RoutingKeyPaymentMethodCreated    = "payment_method.created"
	RoutingKeyPaymentMethodUpdated    = "payment_method.updated"
	RoutingKeyPaymentMethodDeleted    = "payment_method.deleted"
	RoutingKeyPaymentMethodsReordered = "payment_method.reordered"
	RoutingKeyProfileUpserted         = "profile.upserted"
)

// PaymentMethodEvent describes a single created, updated or deleted method.
type PaymentMethodEvent struct {
	EventID    string    `json:"eventId"`
	UserID     string    `json:"userId"`
	MethodID   string    `json:"methodId"`
	Type       string    `json:"type"`
	Active     bool      `json:"active"`
	SortOrder  int       `json:"sortOrder"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PaymentMethodsReorderedEvent carries the full order applied by a reorder.
type PaymentMethodsReorderedEvent struct {
	EventID    string       `json:"eventId"`
	UserID     string       `json:"userId"`
	Order      []OrderEntry `json:"order"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// ProfileUpsertedEvent is emitted whenever a profile is created or changed.
type ProfileUpsertedEvent struct {
	EventID    string    `json:"eventId"`
	UserID     string    `json:"userId"`
	ProfileID  string    `json:"profileId"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurredAt"`
}
