/**
 * @description
 * Owner-side management of a payment method list over the AllRails API.
 * Every successful write is followed by a full reload; the local snapshot is
 * only ever replaced by what the server returns, never edited in place.
 *
 * @dependencies
 * - pkg/pageclient: the API implementation used in production.
 */
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/DanstheMan1981/allrails/internal/domain"
)

// ErrOrderingInFlight is returned when a reorder or move is attempted while
// another one on the same Manager has not finished.
var ErrOrderingInFlight = errors.New("another ordering change is still in progress")

// ReloadError is returned alongside a successful write when the follow-up
// reload failed. The snapshot keeps its previous contents until the next Load.
type ReloadError struct {
	Err error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("change saved but reload failed: %v", e.Err)
}

func (e *ReloadError) Unwrap() error {
	return e.Err
}

// API is the subset of the REST client the Manager depends on.
type API interface {
	ListPaymentMethods(ctx context.Context, token string) ([]domain.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, token string, input domain.CreatePaymentMethodInput) (*domain.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, token, id string, patch domain.PaymentMethodPatch) (*domain.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, token, id string) error
	ReorderPaymentMethods(ctx context.Context, token string, order []domain.OrderEntry) ([]domain.PaymentMethod, error)
}

// Session is the caller's credential. It is passed into every call rather than
// held by the Manager. OwnerID keys the snapshot; it may be empty.
type Session struct {
	Token   string
	OwnerID string
}

func (s Session) valid() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Manager holds the last list loaded from the server for one owner.
type Manager struct {
	api    API
	logger *slog.Logger

	mu         sync.Mutex
	owner      string
	methods    []domain.PaymentMethod
	loaded     bool
	generation uint64

	ordering sync.Mutex
}

// New creates a Manager backed by api.
func New(api API, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{api: api, logger: logger}
}

// Methods returns a copy of the current snapshot.
func (m *Manager) Methods() []domain.PaymentMethod {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PaymentMethod(nil), m.methods...)
}

// Load fetches the owner's full list and replaces the snapshot.
func (m *Manager) Load(ctx context.Context, s Session) ([]domain.PaymentMethod, error) {
	if !s.valid() {
		return nil, domain.ErrUnauthorized
	}
	return m.reload(ctx, s)
}

// Create appends a new method. A blank handle is rejected without a network call.
func (m *Manager) Create(ctx context.Context, s Session, paymentType, handle string, label *string) (*domain.PaymentMethod, error) {
	if !s.valid() {
		return nil, domain.ErrUnauthorized
	}
	input := domain.CreatePaymentMethodInput{Type: paymentType, Handle: handle, Label: label}
	if err := input.Normalize(); err != nil {
		return nil, err
	}

	created, err := m.api.CreatePaymentMethod(ctx, s.Token, input)
	if err != nil {
		return nil, err
	}
	return created, m.reloadAfterWrite(ctx, s)
}

// Update applies a partial change to one method.
func (m *Manager) Update(ctx context.Context, s Session, id string, patch domain.PaymentMethodPatch) (*domain.PaymentMethod, error) {
	if !s.valid() {
		return nil, domain.ErrUnauthorized
	}
	if err := patch.Normalize(); err != nil {
		return nil, err
	}

	updated, err := m.api.UpdatePaymentMethod(ctx, s.Token, id, patch)
	if err != nil {
		return nil, err
	}
	return updated, m.reloadAfterWrite(ctx, s)
}

// ToggleActive flips the method's active flag as currently known to the server.
func (m *Manager) ToggleActive(ctx context.Context, s Session, id string) (*domain.PaymentMethod, error) {
	if !s.valid() {
		return nil, domain.ErrUnauthorized
	}

	current, ok := m.find(s, id)
	if !ok {
		if _, err := m.reload(ctx, s); err != nil {
			return nil, err
		}
		if current, ok = m.find(s, id); !ok {
			return nil, domain.ErrNotFound
		}
	}

	flipped := !current.Active
	return m.Update(ctx, s, id, domain.PaymentMethodPatch{Active: &flipped})
}

// Delete removes one method. Remaining ranks are left as they are.
func (m *Manager) Delete(ctx context.Context, s Session, id string) error {
	if !s.valid() {
		return domain.ErrUnauthorized
	}
	if err := m.api.DeletePaymentMethod(ctx, s.Token, id); err != nil {
		return err
	}
	return m.reloadAfterWrite(ctx, s)
}

// Reorder submits ids as the new display order. ids must be a permutation of
// the loaded snapshot; the server checks it again against stored data.
func (m *Manager) Reorder(ctx context.Context, s Session, ids []string) ([]domain.PaymentMethod, error) {
	if !s.valid() {
		return nil, domain.ErrUnauthorized
	}
	if !m.ordering.TryLock() {
		return nil, ErrOrderingInFlight
	}
	defer m.ordering.Unlock()

	current, err := m.ensureLoaded(ctx, s)
	if err != nil {
		return nil, err
	}
	return m.submitOrder(ctx, s, current, ids)
}

// MoveUp swaps the method at index with the one before it.
func (m *Manager) MoveUp(ctx context.Context, s Session, index int) ([]domain.PaymentMethod, error) {
	return m.move(ctx, s, index, -1)
}

// MoveDown swaps the method at index with the one after it.
func (m *Manager) MoveDown(ctx context.Context, s Session, index int) ([]domain.PaymentMethod, error) {
	return m.move(ctx, s, index, 1)
}

func (m *Manager) move(ctx context.Context, s Session, index, delta int) ([]domain.PaymentMethod, error) {
	if !s.valid() {
		return nil, domain.ErrUnauthorized
	}
	if !m.ordering.TryLock() {
		return nil, ErrOrderingInFlight
	}
	defer m.ordering.Unlock()

	current, err := m.ensureLoaded(ctx, s)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(current) {
		return nil, domain.NewValidationError("index", fmt.Sprintf("index %d is outside the list of %d methods", index, len(current)))
	}
	target := index + delta
	if target < 0 || target >= len(current) {
		return current, nil
	}

	ids := make([]string, len(current))
	for i, method := range current {
		ids[i] = method.ID
	}
	ids[index], ids[target] = ids[target], ids[index]
	return m.submitOrder(ctx, s, current, ids)
}

func (m *Manager) submitOrder(ctx context.Context, s Session, current []domain.PaymentMethod, ids []string) ([]domain.PaymentMethod, error) {
	currentIDs := make([]string, len(current))
	for i, method := range current {
		currentIDs[i] = method.ID
	}
	order := domain.OrderFromIDs(ids)
	if err := domain.ValidateReorder(currentIDs, order); err != nil {
		return nil, err
	}

	reordered, err := m.api.ReorderPaymentMethods(ctx, s.Token, order)
	if err != nil {
		return nil, err
	}
	reloaded, err := m.reload(ctx, s)
	if err != nil {
		m.logger.Warn("reload after reorder failed", "error", err)
		return reordered, &ReloadError{Err: err}
	}
	return reloaded, nil
}

func (m *Manager) ensureLoaded(ctx context.Context, s Session) ([]domain.PaymentMethod, error) {
	m.mu.Lock()
	if m.loaded && m.owner == s.OwnerID {
		current := append([]domain.PaymentMethod(nil), m.methods...)
		m.mu.Unlock()
		return current, nil
	}
	m.mu.Unlock()
	return m.reload(ctx, s)
}

func (m *Manager) find(s Session, id string) (domain.PaymentMethod, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded || m.owner != s.OwnerID {
		return domain.PaymentMethod{}, false
	}
	for _, method := range m.methods {
		if strings.EqualFold(method.ID, id) {
			return method, true
		}
	}
	return domain.PaymentMethod{}, false
}

func (m *Manager) reloadAfterWrite(ctx context.Context, s Session) error {
	if _, err := m.reload(ctx, s); err != nil {
		m.logger.Warn("reload after write failed", "error", err)
		return &ReloadError{Err: err}
	}
	return nil
}

// reload fetches the list and installs it unless the context was cancelled
// or a later reload has already started.
func (m *Manager) reload(ctx context.Context, s Session) ([]domain.PaymentMethod, error) {
	m.mu.Lock()
	m.generation++
	generation := m.generation
	m.mu.Unlock()

	methods, err := m.api.ListPaymentMethods(ctx, s.Token)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	domain.SortMethods(methods)

	m.mu.Lock()
	defer m.mu.Unlock()
	if generation == m.generation {
		m.owner = s.OwnerID
		m.methods = methods
		m.loaded = true
	}
	return append([]domain.PaymentMethod(nil), methods...), nil
}
