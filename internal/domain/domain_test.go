package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestValidateReorder(t *testing.T) {
	current := []string{"a", "b", "c"}

	tests := []struct {
		name    string
		order   []OrderEntry
		wantErr bool
	}{
		{name: "identity", order: OrderFromIDs([]string{"a", "b", "c"})},
		{name: "reversed", order: OrderFromIDs([]string{"c", "b", "a"})},
		{name: "missing id", order: OrderFromIDs([]string{"a", "b"}), wantErr: true},
		{name: "foreign id", order: OrderFromIDs([]string{"a", "b", "z"}), wantErr: true},
		{name: "duplicate id", order: OrderFromIDs([]string{"a", "a", "b"}), wantErr: true},
		{name: "extra id", order: OrderFromIDs([]string{"a", "b", "c", "d"}), wantErr: true},
		{name: "gap in ranks", order: []OrderEntry{{"a", 0}, {"b", 1}, {"c", 3}}, wantErr: true},
		{name: "duplicate rank", order: []OrderEntry{{"a", 0}, {"b", 0}, {"c", 1}}, wantErr: true},
		{name: "negative rank", order: []OrderEntry{{"a", -1}, {"b", 0}, {"c", 1}}, wantErr: true},
		{name: "ranks out of list order", order: []OrderEntry{{"a", 2}, {"b", 0}, {"c", 1}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateReorder(current, tc.order)
			if tc.wantErr {
				if !IsValidationError(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateReorder_EmptyCollection(t *testing.T) {
	if err := ValidateReorder(nil, nil); err != nil {
		t.Fatalf("expected empty reorder to be valid, got %v", err)
	}
}

func TestNextSortOrder(t *testing.T) {
	tests := []struct {
		existing []int
		want     int
	}{
		{nil, 0},
		{[]int{0, 1, 2}, 3},
		{[]int{2, 0, 1}, 3},
		{[]int{0, 2}, 3},
		{[]int{1}, 2},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.existing), func(t *testing.T) {
			if got := NextSortOrder(tc.existing); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestSortMethods_StableWithGaps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	methods := []PaymentMethod{
		{ID: "c", SortOrder: 5, CreatedAt: base},
		{ID: "b", SortOrder: 2, CreatedAt: base.Add(time.Minute)},
		{ID: "a", SortOrder: 2, CreatedAt: base},
		{ID: "d", SortOrder: 0, CreatedAt: base},
	}
	SortMethods(methods)

	got := make([]string, len(methods))
	for i, m := range methods {
		got[i] = m.ID
	}
	if strings.Join(got, ",") != "d,a,b,c" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "Alice", want: "alice"},
		{raw: "  bob-99 ", want: "bob-99"},
		{raw: "ab", wantErr: true},
		{raw: strings.Repeat("a", 31), wantErr: true},
		{raw: "no_underscores", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := NormalizeUsername(tc.raw)
			if tc.wantErr {
				if !IsValidationError(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("expected %q, got %q (%v)", tc.want, got, err)
			}
		})
	}
}

func TestUpsertProfileInput_Normalize(t *testing.T) {
	blank := "   "
	longBio := strings.Repeat("x", MaxBioLength+1)

	in := UpsertProfileInput{Username: "Alice", DisplayName: &blank}
	if err := in.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Username != "alice" || in.DisplayName != nil {
		t.Fatalf("unexpected normalized input: %+v", in)
	}

	tooLong := UpsertProfileInput{Username: "alice", Bio: &longBio}
	err := tooLong.Normalize()
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "bio" {
		t.Fatalf("expected bio validation error, got %v", err)
	}
}

func TestCreatePaymentMethodInput_Normalize(t *testing.T) {
	in := CreatePaymentMethodInput{Type: " Venmo ", Handle: "  @alice "}
	if err := in.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Type != "venmo" || in.Handle != "@alice" || in.Label != nil {
		t.Fatalf("unexpected normalized input: %+v", in)
	}

	empty := CreatePaymentMethodInput{Type: "venmo", Handle: "   "}
	if err := empty.Normalize(); !IsValidationError(err) {
		t.Fatalf("expected validation error for blank handle, got %v", err)
	}

	badType := CreatePaymentMethodInput{Type: "ven mo", Handle: "alice"}
	if err := badType.Normalize(); !IsValidationError(err) {
		t.Fatalf("expected validation error for bad type, got %v", err)
	}
}

func TestPaymentMethodPatch_ApplyKeepsUnsetFields(t *testing.T) {
	label := "Main"
	original := PaymentMethod{ID: "1", Type: "venmo", Handle: "@alice", Label: &label, Active: true, SortOrder: 2}

	inactive := false
	patched := PaymentMethodPatch{Active: &inactive}.Apply(original)
	if patched.Active || patched.Handle != "@alice" || patched.Label == nil || *patched.Label != "Main" || patched.SortOrder != 2 {
		t.Fatalf("unexpected patch result: %+v", patched)
	}

	none := ""
	cleared := PaymentMethodPatch{Label: &none}.Apply(original)
	if cleared.Label != nil {
		t.Fatalf("expected label cleared, got %q", *cleared.Label)
	}
}

func TestPaymentMethodPatch_NormalizeBlankLabel(t *testing.T) {
	blank := "  "
	patch := PaymentMethodPatch{Label: &blank}
	if err := patch.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.Label == nil || *patch.Label != "" {
		t.Fatalf("expected blank label normalized to empty string, got %v", patch.Label)
	}

	emptyHandle := ""
	bad := PaymentMethodPatch{Handle: &emptyHandle}
	if err := bad.Normalize(); !IsValidationError(err) {
		t.Fatalf("expected validation error for blank handle, got %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", ErrNotFound)
	if !IsNotFound(wrapped) {
		t.Fatal("expected wrapped not found to be detected")
	}
	if !IsValidationError(fmt.Errorf("save: %w", ErrUsernameTaken)) {
		t.Fatal("expected username taken to be a validation error")
	}
	transport := fmt.Errorf("call: %w", &TransportError{StatusCode: 502, Message: "bad gateway"})
	if !IsTransportError(transport) {
		t.Fatal("expected transport error to be detected")
	}
}
