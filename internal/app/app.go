package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/posty/internal/config"
	"github.com/hitoshi/posty/internal/handler"
	"github.com/hitoshi/posty/internal/logger"
	"github.com/hitoshi/posty/internal/metrics"
	"github.com/hitoshi/posty/internal/middleware"
	"github.com/hitoshi/posty/internal/mutation"
	"github.com/hitoshi/posty/internal/security"
	"github.com/hitoshi/posty/internal/seed"
	"github.com/hitoshi/posty/internal/session"
	"github.com/hitoshi/posty/internal/store"
	"github.com/hitoshi/posty/internal/view"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// シードファイルをメモリにロードし、全依存関係をワイヤリングし、
// HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. シードのロードとストアの構築
	seedData, err := seed.Load(cfg.SeedPath)
	if err != nil {
		return fmt.Errorf("failed to load seed: %w", err)
	}

	entityStore := store.NewEntityStore(seedData)

	slog.Info("seed loaded",
		slog.String("path", cfg.SeedPath),
		slog.Int("users", len(entityStore.Users())),
		slog.Int("posts", len(entityStore.Posts())),
	)

	// 2. ビューエンジンとセッションの初期化
	views := view.NewEngine(entityStore)
	sessions := session.NewManager(entityStore)

	// 3. セキュリティサービスの初期化
	sanitizer := security.NewBodySanitizer()
	urlGuard := security.NewURLGuard()

	// 4. 書き込みゲートの初期化
	gate := mutation.NewGate(entityStore, sessions, sanitizer, urlGuard)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. レートリミッターの初期化
	limiterConfig := middleware.DefaultRateLimiterConfig()
	limiterConfig.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	limiterConfig.GeneralBurst = cfg.RateLimitGeneral
	limiterConfig.WriteRate = rate.Limit(float64(cfg.RateLimitWrite) / 60.0)
	limiterConfig.WriteBurst = cfg.RateLimitWrite
	limiter := middleware.NewRateLimiter(limiterConfig)
	defer limiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		Sessions:          sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		Logger:            slog.Default(),

		AuthSessions: sessions,
		Registration: gate,
		AuthConfig: handler.AuthHandlerConfig{
			SessionMaxAge: cfg.SessionMaxAge,
			CookieSecure:  cfg.CookieSecure,
			CookieDomain:  cfg.CookieDomain,
		},

		FeedViews:        views,
		PostMutations:    gate,
		FeedDefaultLimit: cfg.FeedDefaultLimit,

		GalleryViews:     views,
		GalleryMutations: gate,

		TodoViews:     views,
		TodoMutations: gate,

		UserDirectory: entityStore,
		AvatarViews:   views,
		URLGuard:      urlGuard,
		UserConfig: handler.UserHandlerConfig{
			ProxyTimeout: cfg.ProxyTimeout,
			ProxyMaxSize: cfg.ProxyMaxSize,
		},

		Collector:      collector,
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
