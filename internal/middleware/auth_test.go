package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskflow/internal/auth"
	"taskflow/internal/user"
)

// mockVerifier implements TokenVerifier for testing.
type mockVerifier struct {
	authenticateFunc func(ctx context.Context, token string) (user.Identity, error)
}

func (m *mockVerifier) Authenticate(ctx context.Context, token string) (user.Identity, error) {
	if m.authenticateFunc != nil {
		return m.authenticateFunc(ctx, token)
	}
	return user.Identity{}, errors.New("invalid token")
}

// mockProfiles implements ProfileLookup for testing.
type mockProfiles struct {
	users map[string]*user.User
	err   error
}

func (m *mockProfiles) Get(_ context.Context, id string) (*user.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func acceptToken(valid string, id user.Identity) *mockVerifier {
	return &mockVerifier{authenticateFunc: func(_ context.Context, token string) (user.Identity, error) {
		if token != valid {
			return user.Identity{}, errors.New("invalid token")
		}
		return id, nil
	}}
}

// testHandler echoes the identity and profile found in the context.
func testHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{}
		if id, ok := GetIdentity(r.Context()); ok {
			body["uid"] = id.UserID
		}
		if p, ok := GetProfile(r.Context()); ok {
			body["role"] = string(p.Role)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) auth.APIError {
	t.Helper()
	var resp auth.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestRequireAuth(t *testing.T) {
	verifier := acceptToken("good", user.Identity{UserID: "uid-1", Email: "a@example.com"})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "good token", header: "Bearer good", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAuth(verifier)(testHandler())

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if resp := decodeError(t, rec); resp.Error.Message != "unauthorized" {
					t.Errorf("expected message 'unauthorized', got %q", resp.Error.Message)
				}
				return
			}

			var body map[string]string
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body["uid"] != "uid-1" {
				t.Errorf("expected identity uid-1 in context, got %v", body)
			}
		})
	}
}

func TestRequireAuth_EmptySubjectRejected(t *testing.T) {
	handler := RequireAuth(acceptToken("good", user.Identity{}))(testHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	profiles := &mockProfiles{users: map[string]*user.User{
		"m1": {ID: "m1", Role: user.RoleManager},
		"e1": {ID: "e1", Role: user.RoleEmployee},
	}}

	tests := []struct {
		name       string
		uid        string
		role       user.Role
		wantStatus int
	}{
		{name: "manager on manager route", uid: "m1", role: user.RoleManager, wantStatus: http.StatusOK},
		{name: "employee on manager route", uid: "e1", role: user.RoleManager, wantStatus: http.StatusForbidden},
		{name: "unregistered caller", uid: "ghost", role: user.RoleManager, wantStatus: http.StatusForbidden},
		{name: "employee on employee route", uid: "e1", role: user.RoleEmployee, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(profiles, tt.role)(testHandler())

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req = req.WithContext(WithIdentity(req.Context(), user.Identity{UserID: tt.uid}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusForbidden {
				if resp := decodeError(t, rec); resp.Error.Type != auth.TypePermission {
					t.Errorf("expected permission_error, got %q", resp.Error.Type)
				}
			}
		})
	}
}

func TestRequireProfile(t *testing.T) {
	profiles := &mockProfiles{users: map[string]*user.User{"e1": {ID: "e1", Role: user.RoleEmployee}}}
	handler := RequireProfile(profiles)(testHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(WithIdentity(req.Context(), user.Identity{UserID: "e1"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["role"] != "employee" {
		t.Errorf("expected profile in context, got %v", body)
	}
}

func TestRequireProfile_NoIdentity(t *testing.T) {
	handler := RequireProfile(&mockProfiles{})(testHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestRequireProfile_LookupError(t *testing.T) {
	handler := RequireProfile(&mockProfiles{err: errors.New("connection refused")})(testHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(WithIdentity(req.Context(), user.Identity{UserID: "e1"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error.Message != "internal error" {
		t.Errorf("expected generic message, got %q", resp.Error.Message)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Errorf("unexpected order %v", order)
	}
}
