package domain

import "sort"

// OrderEntry assigns a rank to one method in a reorder request.
type OrderEntry struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}

// ReorderRequest is the body accepted by PATCH /payment-methods/reorder.
type ReorderRequest struct {
	Order []OrderEntry `json:"order"`
}

// OrderFromIDs assigns sortOrder = index to each id.
func OrderFromIDs(ids []string) []OrderEntry {
	order := make([]OrderEntry, len(ids))
	for i, id := range ids {
		order[i] = OrderEntry{ID: id, SortOrder: i}
	}
	return order
}

// ValidateReorder checks that order covers exactly the owner's current ids, once each,
// and that the ranks are exactly 0..n-1.
func ValidateReorder(currentIDs []string, order []OrderEntry) error {
	if len(order) != len(currentIDs) {
		return NewValidationError("order", "order must list every payment method exactly once")
	}

	owned := make(map[string]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		owned[id] = struct{}{}
	}

	seenIDs := make(map[string]struct{}, len(order))
	seenRanks := make([]bool, len(order))
	for _, entry := range order {
		if _, ok := owned[entry.ID]; !ok {
			return NewValidationError("order", "order contains an unknown payment method id")
		}
		if _, dup := seenIDs[entry.ID]; dup {
			return NewValidationError("order", "order contains a duplicate payment method id")
		}
		seenIDs[entry.ID] = struct{}{}

		if entry.SortOrder < 0 || entry.SortOrder >= len(order) || seenRanks[entry.SortOrder] {
			return NewValidationError("order", "sortOrder values must be exactly 0 to n-1")
		}
		seenRanks[entry.SortOrder] = true
	}
	return nil
}

// SortMethods stable-sorts methods by sortOrder, breaking ties by creation time.
func SortMethods(methods []PaymentMethod) {
	sort.SliceStable(methods, func(i, j int) bool {
		if methods[i].SortOrder != methods[j].SortOrder {
			return methods[i].SortOrder < methods[j].SortOrder
		}
		return methods[i].CreatedAt.Before(methods[j].CreatedAt)
	})
}

// NextSortOrder returns the rank for a newly appended method: n when the existing ranks
// are contiguous, max+1 otherwise so that ranks never collide after deletions.
func NextSortOrder(existing []int) int {
	next := 0
	for _, rank := range existing {
		if rank+1 > next {
			next = rank + 1
		}
	}
	if len(existing) > next {
		return len(existing)
	}
	return next
}
