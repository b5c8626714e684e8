package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/posty/internal/middleware"
	"github.com/hitoshi/posty/internal/model"
	"github.com/hitoshi/posty/internal/security"
)

// UserDirectoryInterface はユーザー一覧ハンドラーが必要とする読み取り
// インターフェース。store.EntityStoreの部分集合として定義する。
type UserDirectoryInterface interface {
	// Users は全ユーザーを挿入順で返す。
	Users() []model.User
	// UserByID は指定IDのユーザーを返す。見つからない場合はnilを返す。
	UserByID(id int) *model.User
}

// AvatarViewInterface はアバター解決のインターフェース。
// view.Engineの部分集合として定義する。
type AvatarViewInterface interface {
	AvatarURL(userID int) (string, bool)
}

// UserHandlerConfig はアバタープロキシの設定。
type UserHandlerConfig struct {
	ProxyTimeout time.Duration
	ProxyMaxSize int64
}

// UserHandler はユーザー一覧・アバターのHTTPハンドラー。
type UserHandler struct {
	directory UserDirectoryInterface
	views     AvatarViewInterface
	urlGuard  security.URLGuardService
	config    UserHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(
	directory UserDirectoryInterface,
	views AvatarViewInterface,
	urlGuard security.URLGuardService,
	config UserHandlerConfig,
) *UserHandler {
	return &UserHandler{
		directory: directory,
		views:     views,
		urlGuard:  urlGuard,
		config:    config,
	}
}

// ListUsers はユーザーディレクトリ（全ユーザーの一覧）を返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.directory.Users())
}

// avatarResponse はアバター解決結果。
type avatarResponse struct {
	URL string `json:"url"`
}

// GetAvatar はユーザーのアバターURLを解決して返す。
// アバターを持たない場合はプレースホルダURLが入る（エラーではない）。
// GET /api/users/{id}/avatar
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	url, found := h.views.AvatarURL(userID)
	if !found {
		url = placeholderAvatarURL
	}
	writeJSON(w, http.StatusOK, avatarResponse{URL: url})
}

// ProxyAvatarImage はアバター画像をSSRF防止付きクライアントで取得し、
// そのままストリームする。クライアント端末がサードパーティホストへ直接
// 接続しなくて済むようにするための中継。
// ローカルリソース参照（file等）のアバターは中継できないため404を返す。
// GET /api/users/{id}/avatar/image
func (h *UserHandler) ProxyAvatarImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	url, found := h.views.AvatarURL(userID)
	if !found {
		url = placeholderAvatarURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "AVATAR_NOT_PROXIABLE",
			Message:  "このアバターはリモート参照ではないため中継できません。",
			Category: model.CategoryResource,
			Action:   "クライアント側でローカルリソースを直接表示してください。",
		})
		return
	}

	client := h.urlGuard.NewSafeClient(h.config.ProxyTimeout)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		slog.Error("failed to build avatar request", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("avatar fetch failed",
			slog.Int("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "AVATAR_FETCH_FAILED",
			Message:  "アバター画像の取得に失敗しました。",
			Category: model.CategorySystem,
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		middleware.WriteErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "AVATAR_FETCH_FAILED",
			Message:  "アバター画像の取得に失敗しました。",
			Category: model.CategorySystem,
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if _, err := io.Copy(w, io.LimitReader(resp.Body, h.config.ProxyMaxSize)); err != nil {
		slog.Warn("avatar stream interrupted", slog.String("error", err.Error()))
	}
}

// parseUserID はパスパラメータのユーザーIDを検証して返す。
// ユーザーが存在しない場合は404を書き込む。
func (h *UserHandler) parseUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("ユーザーIDが不正です"))
		return 0, false
	}
	if h.directory.UserByID(userID) == nil {
		handleServiceError(w, model.NewUserNotFoundError(userID), nil)
		return 0, false
	}
	return userID, true
}
