package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authRequest(t *testing.T, handler http.HandlerFunc, user, pass string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// TestBasicAuth verifies only matching credentials reach the inner
// handler.
func TestBasicAuth(t *testing.T) {
	called := false
	protected := BasicAuth("admin", "secret")(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name       string
		user, pass string
		wantStatus int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"wrong user", "root", "secret", http.StatusUnauthorized},
		{"wrong password", "admin", "wrong", http.StatusUnauthorized},
		{"valid", "admin", "secret", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			rec := authRequest(t, protected, tc.user, tc.pass)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if wantCalled := tc.wantStatus == http.StatusOK; called != wantCalled {
				t.Errorf("inner handler called = %v, want %v", called, wantCalled)
			}
			if tc.wantStatus == http.StatusUnauthorized {
				if got := rec.Header().Get("WWW-Authenticate"); got == "" {
					t.Error("missing WWW-Authenticate header")
				}
			}
		})
	}
}
