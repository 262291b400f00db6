// Package storetest provides an in-memory repository for tests. It applies the
// same ownership, rank and uniqueness rules as the PostgreSQL repository.
package storetest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
	methods  []domain.PaymentMethod
	clock    time.Time
	calls    int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles: map[string]domain.Profile{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Calls reports how many repository methods have been invoked.
func (r *MemoryRepository) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *MemoryRepository) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *MemoryRepository) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetProfileByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for _, p := range r.profiles {
		if strings.EqualFold(p.Username, username) {
			found := p
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryRepository) UpsertProfile(ctx context.Context, userID string, input domain.UpsertProfileInput) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for owner, p := range r.profiles {
		if owner != userID && strings.EqualFold(p.Username, input.Username) {
			return nil, domain.ErrUsernameTaken
		}
	}
	now := r.tick()
	p, ok := r.profiles[userID]
	if !ok {
		p = domain.Profile{ID: uuid.NewString(), UserID: userID, CreatedAt: now}
	}
	p.Username, p.DisplayName, p.Avatar, p.Bio, p.UpdatedAt = input.Username, input.DisplayName, input.Avatar, input.Bio, now
	r.profiles[userID] = p
	return &p, nil
}

func (r *MemoryRepository) ownedLocked(userID string) []domain.PaymentMethod {
	out := make([]domain.PaymentMethod, 0)
	for _, m := range r.methods {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	domain.SortMethods(out)
	return out
}

func (r *MemoryRepository) ListPaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.ownedLocked(userID), nil
}

func (r *MemoryRepository) ListActivePaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := make([]domain.PaymentMethod, 0)
	for _, m := range r.ownedLocked(userID) {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepository) CreatePaymentMethod(ctx context.Context, userID string, input domain.CreatePaymentMethodInput) (*domain.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	ranks := make([]int, 0)
	for _, m := range r.ownedLocked(userID) {
		ranks = append(ranks, m.SortOrder)
	}
	now := r.tick()
	m := domain.PaymentMethod{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      input.Type,
		Label:     input.Label,
		Handle:    input.Handle,
		SortOrder: domain.NextSortOrder(ranks),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.methods = append(r.methods, m)
	return &m, nil
}

func (r *MemoryRepository) UpdatePaymentMethod(ctx context.Context, userID, methodID string, patch domain.PaymentMethodPatch) (*domain.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for i, m := range r.methods {
		if m.ID == methodID && m.UserID == userID {
			updated := patch.Apply(m)
			updated.UpdatedAt = r.tick()
			r.methods[i] = updated
			return &updated, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryRepository) DeletePaymentMethod(ctx context.Context, userID, methodID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for i, m := range r.methods {
		if m.ID == methodID && m.UserID == userID {
			r.methods = append(r.methods[:i], r.methods[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MemoryRepository) ReorderPaymentMethods(ctx context.Context, userID string, order []domain.OrderEntry) ([]domain.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	owned := r.ownedLocked(userID)
	ids := make([]string, len(owned))
	for i, m := range owned {
		ids[i] = m.ID
	}
	if err := domain.ValidateReorder(ids, order); err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(order))
	for _, entry := range order {
		rank[entry.ID] = entry.SortOrder
	}
	for i, m := range r.methods {
		if newRank, ok := rank[m.ID]; ok && m.UserID == userID {
			r.methods[i].SortOrder = newRank
		}
	}
	return r.ownedLocked(userID), nil
}
