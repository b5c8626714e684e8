package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/posty/internal/metrics"
	"github.com/hitoshi/posty/internal/middleware"
	"github.com/hitoshi/posty/internal/model"
)

// TodoViewInterface はタスクハンドラーが必要とするビュー計算インターフェース。
// view.Engineの部分集合として定義する。
type TodoViewInterface interface {
	// MyTodos は指定ユーザーのタスク一覧を新しい順で返す。
	MyTodos(userID int) []model.Todo
}

// TodoMutationInterface はタスク操作のインターフェース。
// mutation.Gateの部分集合として定義する。
type TodoMutationInterface interface {
	CreateTodo(userID int, title string) (model.Todo, error)
	ToggleTodo(id int) error
	DeleteTodo(id int) error
}

// TodoHandler はタスクのHTTPハンドラー。全エンドポイントが認証必須。
type TodoHandler struct {
	views     TodoViewInterface
	gate      TodoMutationInterface
	collector metrics.MetricsCollector
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(views TodoViewInterface, gate TodoMutationInterface, collector metrics.MetricsCollector) *TodoHandler {
	return &TodoHandler{
		views:     views,
		gate:      gate,
		collector: collector,
	}
}

// ListTodos は自分のタスク一覧を新しい順で返す。
// GET /api/todos
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}
	writeJSON(w, http.StatusOK, h.views.MyTodos(identity.UserID))
}

// createTodoRequest はタスク作成リクエストのボディ。
type createTodoRequest struct {
	Title string `json:"title"`
}

// CreateTodo は自分のタスクを作成する。
// POST /api/todos
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	var req createTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, err := h.gate.CreateTodo(identity.UserID, req.Title)
	if err != nil {
		handleServiceError(w, err, h.collector)
		return
	}

	if h.collector != nil {
		h.collector.RecordEntityCreated("todos")
	}
	writeJSON(w, http.StatusCreated, todo)
}

// ToggleTodo はタスクの完了状態を反転する。2回呼ぶと元に戻る。
// POST /api/todos/{id}/toggle
func (h *TodoHandler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	todoID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("タスクIDが不正です"))
		return
	}

	if err := h.gate.ToggleTodo(todoID); err != nil {
		handleServiceError(w, err, h.collector)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTodo はタスクを削除する。存在しないIDに対しても成功する（冪等）。
// DELETE /api/todos/{id}
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	todoID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("タスクIDが不正です"))
		return
	}

	if err := h.gate.DeleteTodo(todoID); err != nil {
		handleServiceError(w, err, h.collector)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
