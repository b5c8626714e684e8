// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/posty/internal/model"
)

// SessionCookieName はセッショントークンを保持するHTTP Only Cookieの名前。
const SessionCookieName = "posty_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みIdentityを
// 格納するためのキー。
var identityContextKey = contextKey("identity")

// SessionValidator はセッショントークンの検証に必要なインターフェース。
// session.Managerの部分集合として定義する。
type SessionValidator interface {
	// ValidateToken はトークンが有効ならIdentityを、無効ならnilを返す。
	ValidateToken(token string) *model.Identity
}

// NewSessionMiddleware はHTTP Only Cookieからセッショントークンを読み取り、
// SessionManagerのアクティブセッションと照合するミドルウェアを返す。
// 認証済みIdentityをリクエストコンテキストに注入する。
// 未認証リクエストには401とAuthorizationErrorの統一フォーマットを返す。
func NewSessionMiddleware(sessions SessionValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからセッショントークンを取得
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewLoginRequiredError())
				return
			}

			// 2. アクティブセッションとの一致を検証
			identity := sessions.ValidateToken(cookie.Value)
			if identity == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewLoginRequiredError())
				return
			}

			// 3. 認証済みIdentityをコンテキストに注入
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みIdentityを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok || identity == nil {
		return nil, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストにIdentityを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// SetSessionCookie はセッショントークンをHTTP Only Cookieとして設定する。
// ログイン・登録成功時にハンドラーが使用する。
func SetSessionCookie(w http.ResponseWriter, token string, maxAge int, secure bool, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを失効させる。ログアウト時に使用する。
func ClearSessionCookie(w http.ResponseWriter, secure bool, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
