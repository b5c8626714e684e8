package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/posty/internal/model"
)

// --- モック定義 ---

type mockSessionValidator struct {
	validateTokenFn func(token string) *model.Identity
}

func (m *mockSessionValidator) ValidateToken(token string) *model.Identity {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(token)
	}
	return nil
}

var _ SessionValidator = (*mockSessionValidator)(nil)

// --- テスト ---

func TestSessionMiddleware_ValidCookiePassesIdentity(t *testing.T) {
	validator := &mockSessionValidator{
		validateTokenFn: func(token string) *model.Identity {
			if token == "valid-token" {
				return &model.Identity{UserID: 1, Username: "ann"}
			}
			return nil
		},
	}

	var gotIdentity *model.Identity
	handler := NewSessionMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := IdentityFromContext(r.Context())
		if err != nil {
			t.Errorf("IdentityFromContext() error = %v", err)
		}
		gotIdentity = identity
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotIdentity == nil || gotIdentity.Username != "ann" {
		t.Errorf("identity = %+v, want ann", gotIdentity)
	}
}

func TestSessionMiddleware_MissingCookieReturns401(t *testing.T) {
	handler := NewSessionMiddleware(&mockSessionValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != model.ErrCodeLoginRequired {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeLoginRequired)
	}
}

func TestSessionMiddleware_StaleTokenReturns401(t *testing.T) {
	// どのトークンも現在のセッションと一致しない
	handler := NewSessionMiddleware(&mockSessionValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestIdentityFromContext_MissingReturnsError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, err := IdentityFromContext(req.Context()); err == nil {
		t.Error("expected error for context without identity")
	}
}

func TestSetSessionCookie_Attributes(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "the-token", 86400, true, "example.com")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookie count = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName {
		t.Errorf("Name = %q, want %q", c.Name, SessionCookieName)
	}
	if c.Value != "the-token" {
		t.Errorf("Value = %q, want %q", c.Value, "the-token")
	}
	if !c.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if !c.Secure {
		t.Error("expected Secure cookie")
	}
	if c.MaxAge != 86400 {
		t.Errorf("MaxAge = %d, want 86400", c.MaxAge)
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", c.SameSite)
	}
}

func TestClearSessionCookie_Expires(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, false, "")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookie count = %d, want 1", len(cookies))
	}
	if cookies[0].MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want negative", cookies[0].MaxAge)
	}
}
