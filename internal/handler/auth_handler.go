package handler

import (
	"net/http"

	"github.com/hitoshi/posty/internal/metrics"
	"github.com/hitoshi/posty/internal/middleware"
	"github.com/hitoshi/posty/internal/model"
)

// SessionServiceInterface は認証ハンドラーが必要とするセッション操作
// インターフェース。session.Managerの部分集合として定義する。
type SessionServiceInterface interface {
	// Login は認証を試み、成功すればIdentityとトークンを返す。
	Login(username, password string) (model.Identity, string, error)
	// Logout は無条件にAnonymousへ遷移する。冪等。
	Logout()
	// CurrentUser は認証済みIdentityを返す。Anonymousではnilを返す。
	CurrentUser() *model.Identity
}

// RegistrationServiceInterface はユーザー登録のインターフェース。
// mutation.Gateの部分集合として定義する。
type RegistrationServiceInterface interface {
	// RegisterUser は新規ユーザーを登録し、即座にセッションを確立する。
	RegisterUser(name, username, email, website string) (model.User, string, error)
}

// AuthHandlerConfig は認証ハンドラーのCookie設定。
type AuthHandlerConfig struct {
	SessionMaxAge int
	CookieSecure  bool
	CookieDomain  string
}

// AuthHandler は認証・登録のHTTPハンドラー。
type AuthHandler struct {
	sessions     SessionServiceInterface
	registration RegistrationServiceInterface
	collector    metrics.MetricsCollector
	config       AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	sessions SessionServiceInterface,
	registration RegistrationServiceInterface,
	collector metrics.MetricsCollector,
	config AuthHandlerConfig,
) *AuthHandler {
	return &AuthHandler{
		sessions:     sessions,
		registration: registration,
		collector:    collector,
		config:       config,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registerRequest は登録リクエストのボディ。
type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Website  string `json:"website"`
}

// Login はusername/passwordで認証し、セッションCookieを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identity, token, err := h.sessions.Login(req.Username, req.Password)
	if err != nil {
		if h.collector != nil {
			h.collector.RecordLoginFailure()
		}
		handleServiceError(w, err, nil)
		return
	}

	if h.collector != nil {
		h.collector.RecordLoginSuccess()
	}
	middleware.SetSessionCookie(w, token, h.config.SessionMaxAge, h.config.CookieSecure, h.config.CookieDomain)
	writeJSON(w, http.StatusOK, identity)
}

// Logout はセッションを破棄しCookieを失効させる。
// 既にAnonymousでも成功する（冪等）。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout()
	middleware.ClearSessionCookie(w, h.config.CookieSecure, h.config.CookieDomain)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在の認証済みIdentityを返す。Anonymousの場合は401。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := h.sessions.CurrentUser()
	if identity == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewLoginRequiredError())
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

// Register は新規ユーザーを登録し、セッションCookieを発行する
// （登録はログインを含意する）。username重複は409。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.registration.RegisterUser(req.Name, req.Username, req.Email, req.Website)
	if err != nil {
		handleServiceError(w, err, h.collector)
		return
	}

	if h.collector != nil {
		h.collector.RecordRegistration()
		h.collector.RecordEntityCreated("users")
	}
	middleware.SetSessionCookie(w, token, h.config.SessionMaxAge, h.config.CookieSecure, h.config.CookieDomain)
	writeJSON(w, http.StatusCreated, user)
}
