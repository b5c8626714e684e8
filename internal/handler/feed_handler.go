package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/posty/internal/metrics"
	"github.com/hitoshi/posty/internal/middleware"
	"github.com/hitoshi/posty/internal/model"
)

// previewCommentCount はプレビュー表示するコメント件数。
// 元アプリの投稿カードは展開するまで新しい2件のみを表示する。
const previewCommentCount = 2

// FeedViewInterface はフィードハンドラーが必要とするビュー計算
// インターフェース。view.Engineの部分集合として定義する。
type FeedViewInterface interface {
	// Feed は著者ごとの最新投稿一覧を返す（窓掛け→重複排除）。
	Feed(limit int) []model.MergedPost
	// MergedPost は投稿と投稿者、コメントの結合ビューを返す。
	// 投稿が存在しない場合はnilを返す。
	MergedPost(postID int) *model.MergedPost
	// AvatarURL はユーザーのアバターURLを解決する。
	AvatarURL(userID int) (string, bool)
}

// PostMutationInterface は投稿・コメント作成のインターフェース。
// mutation.Gateの部分集合として定義する。
type PostMutationInterface interface {
	CreatePost(userID int, body string) (model.Post, error)
	CreateComment(postID int, body string) (model.Comment, error)
}

// FeedHandler はフィード・投稿・コメントのHTTPハンドラー。
type FeedHandler struct {
	views        FeedViewInterface
	gate         PostMutationInterface
	collector    metrics.MetricsCollector
	defaultLimit int
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(views FeedViewInterface, gate PostMutationInterface, collector metrics.MetricsCollector, defaultLimit int) *FeedHandler {
	return &FeedHandler{
		views:        views,
		gate:         gate,
		collector:    collector,
		defaultLimit: defaultLimit,
	}
}

// feedPost はフィードの1エントリ。結合済み投稿に解決済みアバターURLを添える。
// アバターを持たない著者にはプレースホルダURLが入る。
type feedPost struct {
	model.MergedPost
	AvatarURL string `json:"avatarUrl"`
}

// ListFeed はフィード（著者ごとの最新投稿一覧）を返す。
// limitクエリで窓のサイズを指定できる。
// GET /api/feed?limit=10
func (h *FeedHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("limitは0以上の整数で指定してください"))
			return
		}
		limit = parsed
	}

	posts := h.views.Feed(limit)
	out := make([]feedPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, feedPost{MergedPost: p, AvatarURL: h.resolveAvatar(p.UserID)})
	}
	writeJSON(w, http.StatusOK, out)
}

// resolveAvatar はアバターURLを解決し、無ければプレースホルダを返す。
func (h *FeedHandler) resolveAvatar(userID int) string {
	if url, ok := h.views.AvatarURL(userID); ok {
		return url
	}
	return placeholderAvatarURL
}

// GetPost は1件の結合済み投稿を返す。
// comments=previewの場合、コメントは新しい2件に絞られる。
// GET /api/posts/{id}
func (h *FeedHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("投稿IDが不正です"))
		return
	}

	merged := h.views.MergedPost(postID)
	if merged == nil {
		handleServiceError(w, model.NewPostNotFoundError(postID), nil)
		return
	}

	if r.URL.Query().Get("comments") == "preview" && len(merged.Comments) > previewCommentCount {
		merged.Comments = merged.Comments[:previewCommentCount]
	}

	writeJSON(w, http.StatusOK, feedPost{MergedPost: *merged, AvatarURL: h.resolveAvatar(merged.UserID)})
}

// createPostRequest は投稿作成リクエストのボディ。
type createPostRequest struct {
	Body string `json:"body"`
}

// CreatePost は認証済みユーザーの投稿を作成する。
// タイトルはプレースホルダが設定される。
// POST /api/posts
func (h *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	var req createPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.gate.CreatePost(identity.UserID, req.Body)
	if err != nil {
		handleServiceError(w, err, h.collector)
		return
	}

	if h.collector != nil {
		h.collector.RecordEntityCreated("posts")
	}
	writeJSON(w, http.StatusCreated, post)
}

// createCommentRequest はコメント作成リクエストのボディ。
type createCommentRequest struct {
	Body string `json:"body"`
}

// CreateComment は投稿へのコメントを作成する。
// コメント投稿者の情報はアクティブセッションから取り込まれる。
// POST /api/posts/{id}/comments
func (h *FeedHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("投稿IDが不正です"))
		return
	}

	var req createCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.gate.CreateComment(postID, req.Body)
	if err != nil {
		handleServiceError(w, err, h.collector)
		return
	}

	if h.collector != nil {
		h.collector.RecordEntityCreated("comments")
	}
	writeJSON(w, http.StatusCreated, comment)
}
