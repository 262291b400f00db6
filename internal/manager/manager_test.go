package manager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DanstheMan1981/allrails/internal/api"
	"github.com/DanstheMan1981/allrails/internal/app"
	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/DanstheMan1981/allrails/internal/store/storetest"
	"github.com/DanstheMan1981/allrails/pkg/middleware"
	"github.com/DanstheMan1981/allrails/pkg/pageclient"
)

var _ API = (*pageclient.Client)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// apiStub serves a fixed list and records calls.
type apiStub struct {
	methods      []domain.PaymentMethod
	calls        int
	listErr      error
	reorderGate  chan struct{}
	reorderSeen  chan struct{}
	lastOrder    []domain.OrderEntry
	lastPatch    domain.PaymentMethodPatch
	cancelOnList context.CancelFunc
}

func (a *apiStub) ListPaymentMethods(ctx context.Context, token string) ([]domain.PaymentMethod, error) {
	a.calls++
	if a.cancelOnList != nil {
		a.cancelOnList()
	}
	if a.listErr != nil {
		return nil, a.listErr
	}
	return append([]domain.PaymentMethod(nil), a.methods...), nil
}

func (a *apiStub) CreatePaymentMethod(ctx context.Context, token string, input domain.CreatePaymentMethodInput) (*domain.PaymentMethod, error) {
	a.calls++
	m := domain.PaymentMethod{ID: "new", Type: input.Type, Handle: input.Handle, SortOrder: len(a.methods), Active: true}
	a.methods = append(a.methods, m)
	return &m, nil
}

func (a *apiStub) UpdatePaymentMethod(ctx context.Context, token, id string, patch domain.PaymentMethodPatch) (*domain.PaymentMethod, error) {
	a.calls++
	a.lastPatch = patch
	for i, m := range a.methods {
		if m.ID == id {
			a.methods[i] = patch.Apply(m)
			updated := a.methods[i]
			return &updated, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (a *apiStub) DeletePaymentMethod(ctx context.Context, token, id string) error {
	a.calls++
	return nil
}

func (a *apiStub) ReorderPaymentMethods(ctx context.Context, token string, order []domain.OrderEntry) ([]domain.PaymentMethod, error) {
	a.calls++
	if a.reorderSeen != nil {
		close(a.reorderSeen)
	}
	if a.reorderGate != nil {
		<-a.reorderGate
	}
	a.lastOrder = order
	rank := map[string]int{}
	for _, entry := range order {
		rank[entry.ID] = entry.SortOrder
	}
	for i := range a.methods {
		a.methods[i].SortOrder = rank[a.methods[i].ID]
	}
	return append([]domain.PaymentMethod(nil), a.methods...), nil
}

func threeMethods() []domain.PaymentMethod {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.PaymentMethod{
		{ID: "a", Type: "venmo", Handle: "@a", SortOrder: 0, Active: true, CreatedAt: base},
		{ID: "b", Type: "cashapp", Handle: "b", SortOrder: 1, Active: true, CreatedAt: base.Add(time.Second)},
		{ID: "c", Type: "zelle", Handle: "c@example.com", SortOrder: 2, Active: false, CreatedAt: base.Add(2 * time.Second)},
	}
}

var session = Session{Token: "tok", OwnerID: "owner"}

func ids(methods []domain.PaymentMethod) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = m.ID
	}
	return out
}

func equalIDs(got []domain.PaymentMethod, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, id := range ids(got) {
		if id != want[i] {
			return false
		}
	}
	return true
}

func TestManager_RequiresSession(t *testing.T) {
	stub := &apiStub{methods: threeMethods()}
	mgr := New(stub, discardLogger())

	if _, err := mgr.Load(context.Background(), Session{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := mgr.MoveUp(context.Background(), Session{Token: " "}, 1); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("expected no API calls, got %d", stub.calls)
	}
}

func TestManager_CreateBlankHandleSkipsNetwork(t *testing.T) {
	stub := &apiStub{}
	mgr := New(stub, discardLogger())

	_, err := mgr.Create(context.Background(), session, "venmo", "", nil)
	if !domain.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("expected no API calls, got %d", stub.calls)
	}
}

func TestManager_CreateReloads(t *testing.T) {
	stub := &apiStub{methods: threeMethods()}
	mgr := New(stub, discardLogger())

	created, err := mgr.Create(context.Background(), session, "venmo", "@alice", nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Handle != "@alice" || created.SortOrder != 3 {
		t.Fatalf("unexpected created method: %+v", created)
	}
	if !equalIDs(mgr.Methods(), "a", "b", "c", "new") {
		t.Fatalf("expected snapshot to be reloaded, got %v", ids(mgr.Methods()))
	}
}

func TestManager_MoveBoundariesAreNoOps(t *testing.T) {
	stub := &apiStub{methods: threeMethods()}
	mgr := New(stub, discardLogger())
	if _, err := mgr.Load(context.Background(), session); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	before := stub.calls

	up, err := mgr.MoveUp(context.Background(), session, 0)
	if err != nil || !equalIDs(up, "a", "b", "c") {
		t.Fatalf("expected unchanged list from MoveUp(0), got %v (%v)", ids(up), err)
	}
	down, err := mgr.MoveDown(context.Background(), session, 2)
	if err != nil || !equalIDs(down, "a", "b", "c") {
		t.Fatalf("expected unchanged list from MoveDown(n-1), got %v (%v)", ids(down), err)
	}
	if stub.calls != before {
		t.Fatalf("expected boundary moves to skip the API, got %d extra calls", stub.calls-before)
	}

	if _, err := mgr.MoveDown(context.Background(), session, 3); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for out of range index, got %v", err)
	}
}

func TestManager_MoveUpSwapsNeighbours(t *testing.T) {
	stub := &apiStub{methods: threeMethods()}
	mgr := New(stub, discardLogger())

	methods, err := mgr.MoveUp(context.Background(), session, 1)
	if err != nil {
		t.Fatalf("MoveUp returned error: %v", err)
	}
	if !equalIDs(methods, "b", "a", "c") {
		t.Fatalf("expected b, a, c got %v", ids(methods))
	}
	want := []domain.OrderEntry{{ID: "b", SortOrder: 0}, {ID: "a", SortOrder: 1}, {ID: "c", SortOrder: 2}}
	if len(stub.lastOrder) != len(want) {
		t.Fatalf("expected %d submitted entries, got %d", len(want), len(stub.lastOrder))
	}
	for i, entry := range stub.lastOrder {
		if entry != want[i] {
			t.Fatalf("unexpected submitted order %+v", stub.lastOrder)
		}
	}
}

func TestManager_ReorderValidatesAgainstSnapshot(t *testing.T) {
	stub := &apiStub{methods: threeMethods()}
	mgr := New(stub, discardLogger())
	if _, err := mgr.Load(context.Background(), session); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	before := stub.calls

	for _, order := range [][]string{{"a", "b"}, {"a", "b", "x"}, {"a", "a", "b"}} {
		if _, err := mgr.Reorder(context.Background(), session, order); !domain.IsValidationError(err) {
			t.Fatalf("expected validation error for %v, got %v", order, err)
		}
	}
	if stub.calls != before {
		t.Fatal("expected invalid permutations to be rejected before submission")
	}
}

func TestManager_OrderingInFlight(t *testing.T) {
	stub := &apiStub{methods: threeMethods(), reorderGate: make(chan struct{}), reorderSeen: make(chan struct{})}
	mgr := New(stub, discardLogger())
	if _, err := mgr.Load(context.Background(), session); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := mgr.Reorder(context.Background(), session, []string{"c", "b", "a"})
		done <- err
	}()
	<-stub.reorderSeen

	if _, err := mgr.MoveDown(context.Background(), session, 0); !errors.Is(err, ErrOrderingInFlight) {
		t.Fatalf("expected ErrOrderingInFlight, got %v", err)
	}

	close(stub.reorderGate)
	if err := <-done; err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	stub.reorderSeen = nil
	if _, err := mgr.MoveDown(context.Background(), session, 0); err != nil {
		t.Fatalf("expected ordering to be available again, got %v", err)
	}
}

func TestManager_ReloadFailureAfterWrite(t *testing.T) {
	stub := &apiStub{methods: threeMethods()}
	mgr := New(stub, discardLogger())
	if _, err := mgr.Load(context.Background(), session); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	stub.listErr = &domain.TransportError{StatusCode: 503, Message: "unavailable"}
	updated, err := mgr.ToggleActive(context.Background(), session, "c")
	if updated == nil || !updated.Active {
		t.Fatalf("expected the write result to be returned, got %+v", updated)
	}
	var reloadErr *ReloadError
	if !errors.As(err, &reloadErr) || !domain.IsTransportError(err) {
		t.Fatalf("expected ReloadError wrapping the transport failure, got %v", err)
	}
	if mgr.Methods()[2].Active {
		t.Fatal("expected snapshot to stay stale until the next load")
	}
}

func TestManager_CancelledReloadIsDiscarded(t *testing.T) {
	stub := &apiStub{methods: threeMethods()}
	mgr := New(stub, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stub.cancelOnList = cancel
	if _, err := mgr.Load(ctx, session); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(mgr.Methods()) != 0 {
		t.Fatal("expected cancelled reload to leave the snapshot empty")
	}
}

func TestManager_ToggleTwiceAgainstServer(t *testing.T) {
	logger := discardLogger()
	repo := storetest.NewMemoryRepository()
	authCfg := middleware.AuthConfig{Secret: "manager-secret"}
	router := api.NewRouter(
		api.NewHandlers(app.NewService(repo, logger), app.NewPublicPageService(repo), logger),
		api.RouterConfig{Auth: middleware.NewAuthenticator(authCfg)},
	)
	server := httptest.NewServer(router)
	defer server.Close()

	token, err := middleware.IssueToken(authCfg, "owner-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	s := Session{Token: token, OwnerID: "owner-1"}
	mgr := New(pageclient.NewClient(server.URL), logger)

	created, err := mgr.Create(context.Background(), s, "venmo", "@alice", nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	for _, handle := range []string{"b", "c"} {
		if _, err := mgr.Create(context.Background(), s, "cashapp", handle, nil); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	once, err := mgr.ToggleActive(context.Background(), s, created.ID)
	if err != nil || once.Active {
		t.Fatalf("expected first toggle to deactivate, got %+v (%v)", once, err)
	}
	twice, err := mgr.ToggleActive(context.Background(), s, created.ID)
	if err != nil || !twice.Active {
		t.Fatalf("expected second toggle to reactivate, got %+v (%v)", twice, err)
	}

	original := ids(mgr.Methods())
	moved, err := mgr.MoveUp(context.Background(), s, 1)
	if err != nil {
		t.Fatalf("MoveUp returned error: %v", err)
	}
	if !equalIDs(moved, original[1], original[0], original[2]) {
		t.Fatalf("expected first two swapped, got %v from %v", ids(moved), original)
	}
	for i, m := range moved {
		if m.SortOrder != i {
			t.Fatalf("expected sortOrder %d, got %d", i, m.SortOrder)
		}
	}

	if err := mgr.Delete(context.Background(), s, created.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(mgr.Methods()) != 2 {
		t.Fatalf("expected two methods after delete, got %d", len(mgr.Methods()))
	}
	if _, err := mgr.Update(context.Background(), Session{Token: token, OwnerID: "owner-1"}, created.ID, domain.PaymentMethodPatch{}); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for deleted id, got %v", err)
	}
}
