package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	WriteRate       rate.Limit    // 書き込み系のレート（req/sec）
	WriteBurst      int           // 書き込み系のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min、書き込み（作成・削除・トグル） 30 req/min
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0), // 2 req/sec
		GeneralBurst:    120,
		WriteRate:       rate.Limit(30.0 / 60.0), // 0.5 req/sec
		WriteBurst:      30,
		CleanupInterval: 5 * time.Minute,
	}
}

// callerLimiter は呼び出し元ごとのレートリミッターとアクセス時刻を保持する。
type callerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter は呼び出し元ごとのレート制限を管理する。
// API全般のレート制限と書き込み系のレート制限の2種類を提供する。
// 認証済みリクエストはユーザーID、未認証はリモートアドレスでキー付けする。
type RateLimiter struct {
	config RateLimiterConfig

	generalMu       sync.RWMutex
	generalLimiters map[string]*callerLimiter

	writeMu       sync.RWMutex
	writeLimiters map[string]*callerLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:          config,
		generalLimiters: make(map[string]*callerLimiter),
		writeLimiters:   make(map[string]*callerLimiter),
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// callerKey はレート制限のキーを決める。
// 認証済みならユーザーID、未認証ならリモートアドレスのホスト部。
func callerKey(r *http.Request) string {
	if identity, err := IdentityFromContext(r.Context()); err == nil {
		return "user:" + strconv.Itoa(identity.UserID)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.getOrCreate(&rl.generalMu, rl.generalLimiters, callerKey(r), rl.config.GeneralRate, rl.config.GeneralBurst)

			if !limiter.Allow() {
				slog.Warn("rate limit exceeded",
					slog.String("path", r.URL.Path),
				)
				writeRateLimitResponse(w, rl.config.GeneralRate)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteMiddleware は書き込み系エンドポイント用のレート制限ミドルウェアを返す。
// GeneralMiddlewareと併用し、作成・削除・トグル操作に追加で適用する。
func (rl *RateLimiter) WriteMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.getOrCreate(&rl.writeMu, rl.writeLimiters, callerKey(r), rl.config.WriteRate, rl.config.WriteBurst)

			if !limiter.Allow() {
				slog.Warn("write rate limit exceeded",
					slog.String("path", r.URL.Path),
				)
				writeRateLimitResponse(w, rl.config.WriteRate)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getOrCreate はキーに対応するリミッターを取得または生成し、
// アクセス時刻を更新する。
func (rl *RateLimiter) getOrCreate(mu *sync.RWMutex, limiters map[string]*callerLimiter, key string, r rate.Limit, burst int) *rate.Limiter {
	mu.RLock()
	entry, ok := limiters[key]
	mu.RUnlock()
	if ok {
		mu.Lock()
		entry.lastAccess = time.Now()
		mu.Unlock()
		return entry.limiter
	}

	mu.Lock()
	defer mu.Unlock()
	// 再確認: RLock解放とLock取得の間に他のgoroutineが生成した可能性がある
	if entry, ok := limiters[key]; ok {
		entry.lastAccess = time.Now()
		return entry.limiter
	}
	entry = &callerLimiter{
		limiter:    rate.NewLimiter(r, burst),
		lastAccess: time.Now(),
	}
	limiters[key] = entry
	return entry.limiter
}

// cleanupLoop は一定間隔でアクセスのないリミッターエントリを削除する。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.CleanupInterval)
			rl.cleanup(&rl.generalMu, rl.generalLimiters, cutoff)
			rl.cleanup(&rl.writeMu, rl.writeLimiters, cutoff)
		}
	}
}

// cleanup はcutoffより前にしかアクセスされていないエントリを削除する。
func (rl *RateLimiter) cleanup(mu *sync.RWMutex, limiters map[string]*callerLimiter, cutoff time.Time) {
	mu.Lock()
	defer mu.Unlock()
	for key, entry := range limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(limiters, key)
		}
	}
}

// writeRateLimitResponse は429レスポンスとRetry-Afterヘッダーを書き込む。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfter := 1
	if r > 0 {
		retryAfter = int(math.Ceil(1.0 / float64(r)))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    "RATE_LIMITED",
		"message": "リクエストが多すぎます。しばらく待ってから再度お試しください。",
	})
}
