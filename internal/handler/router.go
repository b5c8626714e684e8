package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/posty/internal/metrics"
	"github.com/hitoshi/posty/internal/middleware"
	"github.com/hitoshi/posty/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Sessions          middleware.SessionValidator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthSessions SessionServiceInterface
	Registration RegistrationServiceInterface
	AuthConfig   AuthHandlerConfig

	// フィード
	FeedViews        FeedViewInterface
	PostMutations    PostMutationInterface
	FeedDefaultLimit int

	// ギャラリー
	GalleryViews     GalleryViewInterface
	GalleryMutations GalleryMutationInterface

	// タスク
	TodoViews     TodoViewInterface
	TodoMutations TodoMutationInterface

	// ユーザー
	UserDirectory UserDirectoryInterface
	AvatarViews   AvatarViewInterface
	URLGuard      security.URLGuardService
	UserConfig    UserHandlerConfig

	// 観測
	Collector      metrics.MetricsCollector
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを
// 構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → (SessionMiddleware → RateLimit)
//
// 認証ルート（/auth/*）とユーザーディレクトリはセッションミドルウェアの
// 外に配置する（元アプリのユーザー画面はログインなしで閲覧できる）。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	}

	authHandler := NewAuthHandler(deps.AuthSessions, deps.Registration, deps.Collector, deps.AuthConfig)
	feedHandler := NewFeedHandler(deps.FeedViews, deps.PostMutations, deps.Collector, deps.FeedDefaultLimit)
	galleryHandler := NewGalleryHandler(deps.GalleryViews, deps.GalleryMutations, deps.Collector)
	todoHandler := NewTodoHandler(deps.TodoViews, deps.TodoMutations, deps.Collector)
	userHandler := NewUserHandler(deps.UserDirectory, deps.AvatarViews, deps.URLGuard, deps.UserConfig)

	// --- 認証不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証・登録
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
		r.Post("/register", authHandler.Register)
	})

	// ユーザーディレクトリとアバター（公開）
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", userHandler.ListUsers)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/avatar", userHandler.GetAvatar)
			r.Get("/avatar/image", userHandler.ProxyAvatarImage)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Sessions))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		writeLimited := func(r chi.Router) chi.Router {
			if deps.RateLimiter != nil {
				return r.With(deps.RateLimiter.WriteMiddleware())
			}
			return r
		}

		// フィードと投稿
		r.Get("/api/feed", feedHandler.ListFeed)
		r.Route("/api/posts", func(r chi.Router) {
			writeLimited(r).Post("/", feedHandler.CreatePost)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", feedHandler.GetPost)
				writeLimited(r).Post("/comments", feedHandler.CreateComment)
			})
		})

		// ギャラリー
		r.Route("/api/albums", func(r chi.Router) {
			r.Get("/", galleryHandler.ListAlbums)
			writeLimited(r).Post("/", galleryHandler.CreateAlbum)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", galleryHandler.GetAlbum)
				writeLimited(r).Post("/photos", galleryHandler.CreatePhoto)
			})
		})

		// タスク
		r.Route("/api/todos", func(r chi.Router) {
			r.Get("/", todoHandler.ListTodos)
			writeLimited(r).Post("/", todoHandler.CreateTodo)
			r.Route("/{id}", func(r chi.Router) {
				writeLimited(r).Post("/toggle", todoHandler.ToggleTodo)
				writeLimited(r).Delete("/", todoHandler.DeleteTodo)
			})
		})
	})

	return r
}
