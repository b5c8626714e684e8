package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/posty/internal/metrics"
	"github.com/hitoshi/posty/internal/middleware"
	"github.com/hitoshi/posty/internal/model"
)

// GalleryViewInterface はギャラリーハンドラーが必要とするビュー計算
// インターフェース。view.Engineの部分集合として定義する。
type GalleryViewInterface interface {
	// AllAlbums は全アルバムを写真付きで挿入順に返す。
	AllAlbums() []model.AlbumWithPhotos
	// AlbumsByUser は指定ユーザーのアルバム一覧を写真付きで返す。
	AlbumsByUser(userID int) []model.AlbumWithPhotos
	// AlbumWithPhotos はアルバムと所属写真の結合ビューを返す。
	// 存在しない場合はnilを返す。
	AlbumWithPhotos(albumID int) *model.AlbumWithPhotos
}

// GalleryMutationInterface はアルバム・写真作成のインターフェース。
// mutation.Gateの部分集合として定義する。
type GalleryMutationInterface interface {
	CreateAlbum(userID int, title string) (model.Album, error)
	CreatePhoto(albumID int, localURI string) (model.Photo, error)
}

// GalleryHandler はアルバム・写真のHTTPハンドラー。
type GalleryHandler struct {
	views     GalleryViewInterface
	gate      GalleryMutationInterface
	collector metrics.MetricsCollector
}

// NewGalleryHandler はGalleryHandlerを生成する。
func NewGalleryHandler(views GalleryViewInterface, gate GalleryMutationInterface, collector metrics.MetricsCollector) *GalleryHandler {
	return &GalleryHandler{
		views:     views,
		gate:      gate,
		collector: collector,
	}
}

// ListAlbums は全アルバムまたは自分のアルバム一覧を写真付きで返す。
// GET /api/albums?mine=1
func (h *GalleryHandler) ListAlbums(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("mine") == "1" {
		identity := requireIdentity(w, r)
		if identity == nil {
			return
		}
		writeJSON(w, http.StatusOK, h.views.AlbumsByUser(identity.UserID))
		return
	}
	writeJSON(w, http.StatusOK, h.views.AllAlbums())
}

// GetAlbum は1件のアルバムを写真付きで返す。
// GET /api/albums/{id}
func (h *GalleryHandler) GetAlbum(w http.ResponseWriter, r *http.Request) {
	albumID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("アルバムIDが不正です"))
		return
	}

	merged := h.views.AlbumWithPhotos(albumID)
	if merged == nil {
		handleServiceError(w, model.NewAlbumNotFoundError(albumID), nil)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

// createAlbumRequest はアルバム作成リクエストのボディ。
type createAlbumRequest struct {
	Title string `json:"title"`
}

// CreateAlbum は認証済みユーザー自身のアルバムを作成する。
// POST /api/albums
func (h *GalleryHandler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	var req createAlbumRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	album, err := h.gate.CreateAlbum(identity.UserID, req.Title)
	if err != nil {
		handleServiceError(w, err, h.collector)
		return
	}

	if h.collector != nil {
		h.collector.RecordEntityCreated("albums")
	}
	writeJSON(w, http.StatusCreated, album)
}

// createPhotoRequest は写真追加リクエストのボディ。
// URIは画像ピッカーが返すローカルリソース参照、または公開http(s)のURL。
type createPhotoRequest struct {
	URI string `json:"uri"`
}

// CreatePhoto はアルバムに写真を追加する。アルバムの所有者のみ実行できる。
// POST /api/albums/{id}/photos
func (h *GalleryHandler) CreatePhoto(w http.ResponseWriter, r *http.Request) {
	albumID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("アルバムIDが不正です"))
		return
	}

	var req createPhotoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	photo, err := h.gate.CreatePhoto(albumID, req.URI)
	if err != nil {
		handleServiceError(w, err, h.collector)
		return
	}

	if h.collector != nil {
		h.collector.RecordEntityCreated("photos")
	}
	writeJSON(w, http.StatusCreated, photo)
}
