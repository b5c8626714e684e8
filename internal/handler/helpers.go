// Package handler はHTTP APIハンドラーとルーティングを提供する。
// コア（store/view/mutation/session）に対する配信シェルにあたる。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/posty/internal/metrics"
	"github.com/hitoshi/posty/internal/middleware"
	"github.com/hitoshi/posty/internal/model"
)

// placeholderAvatarURL はアバターを持たないユーザーに表示する代替画像。
const placeholderAvatarURL = "https://via.placeholder.com/600/f1a745"

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをJSONとして読み取る。
// 失敗した場合は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディを解析できません"))
		return false
	}
	return true
}

// handleServiceError はサービス層のエラーを統一フォーマットで応答する。
// APIErrorはカテゴリに応じたステータスで返し、拒否された書き込みとして
// メトリクスに記録する。それ以外はログに残して500を返す。
func handleServiceError(w http.ResponseWriter, err error, collector metrics.MetricsCollector) {
	if apiErr, ok := model.AsAPIError(err); ok {
		if collector != nil {
			collector.RecordWriteRejected(apiErr.Category)
		}
		middleware.WriteErrorResponse(w, middleware.StatusForAPIError(apiErr), apiErr)
		return
	}
	slog.Error("unexpected service error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// requireIdentity はコンテキストから認証済みIdentityを取得する。
// 取得できない場合は401を書き込みnilを返す。
// セッションミドルウェアの内側でのみ呼ばれる想定の防衛線。
func requireIdentity(w http.ResponseWriter, r *http.Request) *model.Identity {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewLoginRequiredError())
		return nil
	}
	return identity
}
