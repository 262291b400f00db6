package pageclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendsTokenAndDecodes(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	var gotBody domain.ReorderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, gotPath, gotMethod = r.Header.Get("Authorization"), r.URL.Path, r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"b","type":"venmo","handle":"@b","sortOrder":0,"active":true},{"id":"a","type":"zelle","handle":"a@example.com","sortOrder":1,"active":false}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	methods, err := client.ReorderPaymentMethods(context.Background(), "tok", domain.OrderFromIDs([]string{"b", "a"}))
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/payment-methods/reorder", gotPath)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, []domain.OrderEntry{{ID: "b", SortOrder: 0}, {ID: "a", SortOrder: 1}}, gotBody.Order)
	require.Len(t, methods, 2)
	assert.Equal(t, "b", methods[0].ID)
	assert.False(t, methods[1].Active)
}

func TestClient_OwnerCallWithoutTokenSkipsNetwork(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	_, err := NewClient(server.URL).ListPaymentMethods(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 0, calls)
}

func TestClient_MapsStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"message":"Invalid token","code":401}`, check: func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		}},
		{name: "not found", status: http.StatusNotFound, check: func(t *testing.T, err error) {
			assert.True(t, domain.IsNotFound(err))
		}},
		{name: "validation", status: http.StatusBadRequest, body: `{"message":"handle: handle is required","code":400}`, check: func(t *testing.T, err error) {
			var validationError *domain.ValidationError
			require.True(t, errors.As(err, &validationError))
			assert.Equal(t, "handle: handle is required", validationError.Msg)
		}},
		{name: "username taken", status: http.StatusConflict, body: `{"message":"taken","code":409}`, check: func(t *testing.T, err error) {
			assert.True(t, domain.IsValidationError(err))
			assert.ErrorIs(t, err, domain.ErrUsernameTaken)
		}},
		{name: "server error", status: http.StatusInternalServerError, body: `{"message":"Internal server error","code":500}`, check: func(t *testing.T, err error) {
			var transportError *domain.TransportError
			require.True(t, errors.As(err, &transportError))
			assert.Equal(t, http.StatusInternalServerError, transportError.StatusCode)
			assert.Equal(t, "Internal server error", transportError.Message)
		}},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", check: func(t *testing.T, err error) {
			var transportError *domain.TransportError
			require.True(t, errors.As(err, &transportError))
			assert.Equal(t, "slow down", transportError.Message)
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).CreatePaymentMethod(context.Background(), "tok", domain.CreatePaymentMethodInput{Type: "venmo", Handle: "@a"})
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestClient_UnreachableServerIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	_, err := NewClient(baseURL).GetPublicPage(context.Background(), "alice")
	assert.True(t, domain.IsTransportError(err))
}

func TestClient_EmptyProfileIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	profile, err := NewClient(server.URL).GetProfile(context.Background(), "tok")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestClient_DeleteAndPublicPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/api/payment-methods/m1":
			w.Write([]byte(`{"success":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/p/alice":
			assert.Empty(t, r.Header.Get("Authorization"))
			w.Write([]byte(`{"username":"alice","paymentMethods":[{"id":"m2","type":"venmo","handle":"@alice","sortOrder":0,"action":{"kind":"navigate","uri":"https://venmo.com/u/alice"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	require.NoError(t, client.DeletePaymentMethod(context.Background(), "tok", "m1"))

	page, err := client.GetPublicPage(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, page.Methods, 1)
	assert.True(t, page.Methods[0].Action.IsNavigate())
	assert.Equal(t, "https://venmo.com/u/alice", page.Methods[0].Action.URI)
}

func TestShareLink(t *testing.T) {
	assert.Equal(t, "https://allrails.app/p/alice", ShareLink("https://allrails.app/", "alice"))
}
