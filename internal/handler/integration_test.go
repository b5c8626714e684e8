package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/posty/internal/metrics"
	"github.com/hitoshi/posty/internal/middleware"
	"github.com/hitoshi/posty/internal/model"
	"github.com/hitoshi/posty/internal/mutation"
	"github.com/hitoshi/posty/internal/security"
	"github.com/hitoshi/posty/internal/session"
	"github.com/hitoshi/posty/internal/store"
	"github.com/hitoshi/posty/internal/view"
)

// newTestServer は実コンポーネントをワイヤリングしたルーターを構築する。
// レートリミッターとメトリクスハンドラーは統合テストでは使用しない。
func newTestServer(t *testing.T, seed store.Seed) *httptest.Server {
	t.Helper()

	entityStore := store.NewEntityStore(seed)
	views := view.NewEngine(entityStore)
	sessions := session.NewManager(entityStore)
	gate := mutation.NewGate(entityStore, sessions, security.NewBodySanitizer(), security.NewURLGuard())

	router := NewRouter(&RouterDeps{
		Sessions:          sessions,
		CORSAllowedOrigin: "http://localhost:3000",

		AuthSessions: sessions,
		Registration: gate,
		AuthConfig:   AuthHandlerConfig{SessionMaxAge: 86400},

		FeedViews:        views,
		PostMutations:    gate,
		FeedDefaultLimit: 10,

		GalleryViews:     views,
		GalleryMutations: gate,

		TodoViews:     views,
		TodoMutations: gate,

		UserDirectory: entityStore,
		AvatarViews:   views,
		URLGuard:      security.NewURLGuard(),

		Collector: metrics.NopCollector{},
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func integrationSeed() store.Seed {
	return store.Seed{
		Users: []model.User{
			{ID: 1, Name: "Ann Lee", Username: "ann", Email: "ann@example.com", Website: "pw1"},
		},
	}
}

// doJSON はCookie付きでJSONリクエストを送る。
func doJSON(t *testing.T, method, url, body string, cookie *http.Cookie) *http.Response {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func findSessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("expected session cookie in response")
	return nil
}

func TestIntegration_LoginPostFeedLogout(t *testing.T) {
	server := newTestServer(t, integrationSeed())

	// 1. ログイン
	resp := doJSON(t, http.MethodPost, server.URL+"/auth/login", `{"username": "ann", "password": "pw1"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	cookie := findSessionCookie(t, resp)
	resp.Body.Close()

	// 2. 投稿作成
	resp = doJSON(t, http.MethodPost, server.URL+"/api/posts", `{"body": "hi"}`, cookie)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create post status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var post model.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		t.Fatalf("decode post: %v", err)
	}
	resp.Body.Close()
	if post.ID != 1 || post.UserID != 1 || post.Title != "Title" || post.Body != "hi" {
		t.Errorf("post = %+v, want {ID:1 UserID:1 Title:Title Body:hi}", post)
	}

	// 3. フィードに投稿者結合済みで現れる
	resp = doJSON(t, http.MethodGet, server.URL+"/api/feed", "", cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feed status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var feed []struct {
		ID   int         `json:"id"`
		User *model.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	resp.Body.Close()
	if len(feed) != 1 {
		t.Fatalf("feed length = %d, want 1", len(feed))
	}
	if feed[0].User == nil || feed[0].User.Username != "ann" {
		t.Errorf("feed author = %+v, want ann", feed[0].User)
	}

	// 4. ログアウト
	resp = doJSON(t, http.MethodPost, server.URL+"/auth/logout", "", cookie)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 5. ログアウト後の書き込みは401
	resp = doJSON(t, http.MethodPost, server.URL+"/api/posts", `{"body": "after logout"}`, cookie)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("post after logout status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	resp.Body.Close()
}

func TestIntegration_RegisterImpliesLogin(t *testing.T) {
	server := newTestServer(t, integrationSeed())

	body := `{"name": "Bob Tan", "username": "bob", "email": "bob@example.com", "website": "pw2"}`
	resp := doJSON(t, http.MethodPost, server.URL+"/auth/register", body, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var user model.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	cookie := findSessionCookie(t, resp)
	resp.Body.Close()

	if user.ID != 2 {
		t.Errorf("user ID = %d, want max+1 = 2", user.ID)
	}

	// 登録直後のCookieで保護エンドポイントにアクセスできる
	resp = doJSON(t, http.MethodGet, server.URL+"/api/todos", "", cookie)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("todos status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()
}

func TestIntegration_DuplicateUsernameConflict(t *testing.T) {
	server := newTestServer(t, integrationSeed())

	resp := doJSON(t, http.MethodPost, server.URL+"/auth/register", `{"username": "ann"}`, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	resp.Body.Close()
	if body.Code != model.ErrCodeUsernameTaken {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeUsernameTaken)
	}
}

func TestIntegration_ProtectedRoutesRejectMissingCookie(t *testing.T) {
	server := newTestServer(t, integrationSeed())

	paths := []string{"/api/feed", "/api/todos", "/api/albums"}
	for _, path := range paths {
		resp := doJSON(t, http.MethodGet, server.URL+path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s status = %d, want %d", path, resp.StatusCode, http.StatusUnauthorized)
		}
		resp.Body.Close()
	}
}

func TestIntegration_PublicRoutesWorkWithoutSession(t *testing.T) {
	server := newTestServer(t, integrationSeed())

	resp := doJSON(t, http.MethodGet, server.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/users", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("users status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var users []model.User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	resp.Body.Close()
	if len(users) != 1 {
		t.Errorf("user count = %d, want 1", len(users))
	}
}
