// Package store は6コレクション（User, Post, Comment, Album, Photo, Todo)の
// 唯一の真実の源であるEntityStoreを提供する。
//
// 全コレクションはメモリ上のスライスとして保持され、プロセス再起動を跨ぐ
// 永続化は行わない。結合ロジックはここには置かず、view側が読み取り専用で
// 計算する。書き込みは必ず次の読み取りに可視になる（スナップショットの
// キャッシュは一切持たない）。
//
// コアの契約上は単一の論理スレッドで動作するが、HTTPサーバーの背後に
// 置かれるためRWMutexで保護する。読み取りは常に内部スライスのコピーを
// 返し、呼び出し側が参照を保持しても内部状態と共有されない。
package store

import (
	"sync"

	"github.com/hitoshi/posty/internal/model"
)

// Seed はEntityStore構築時に外部から与えられる初期スナップショット。
// 各スライスの並びがそのまま「挿入順」となり、全ビューの順序の基準になる。
type Seed struct {
	Users    []model.User
	Posts    []model.Post
	Comments []model.Comment
	Albums   []model.Album
	Photos   []model.Photo
	Todos    []model.Todo
}

// EntityStore は6コレクションを排他的に所有するインメモリストア。
type EntityStore struct {
	mu       sync.RWMutex
	users    []model.User
	posts    []model.Post
	comments []model.Comment
	albums   []model.Album
	photos   []model.Photo
	todos    []model.Todo
}

// NewEntityStore はシードからEntityStoreを構築する。
// シードの内容はコピーされ、呼び出し側のスライスとは共有されない。
func NewEntityStore(seed Seed) *EntityStore {
	return &EntityStore{
		users:    copyRows(seed.Users),
		posts:    copyRows(seed.Posts),
		comments: copyRows(seed.Comments),
		albums:   copyRows(seed.Albums),
		photos:   copyRows(seed.Photos),
		todos:    copyRows(seed.Todos),
	}
}

// copyRows はスライスの独立したコピーを返す。nilは空スライスに正規化する。
func copyRows[T any](rows []T) []T {
	out := make([]T, len(rows))
	copy(out, rows)
	return out
}

// nextID は既存行の最大ID+1を返す。空コレクションでは1を返す。
// length+1ではなくmax+1を使うことで、削除後もID一意性が保たれる。
func nextID[T any](rows []T, id func(T) int) int {
	maxID := 0
	for _, row := range rows {
		if id(row) > maxID {
			maxID = id(row)
		}
	}
	return maxID + 1
}

// findByID は指定IDの行のコピーを返す。見つからない場合はnilを返す。
func findByID[T any](rows []T, id func(T) int, want int) *T {
	for _, row := range rows {
		if id(row) == want {
			found := row
			return &found
		}
	}
	return nil
}

// hasID は指定IDの行が存在するかを返す。
func hasID[T any](rows []T, id func(T) int, want int) bool {
	return findByID(rows, id, want) != nil
}

// --- User ---

// Users は全ユーザーを挿入順のコピーで返す。
func (s *EntityStore) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.users)
}

// UserByID は指定IDのユーザーを返す。見つからない場合はnilを返す。
func (s *EntityStore) UserByID(id int) *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.users, func(u model.User) int { return u.ID }, id)
}

// UserByUsername はusernameの完全一致（大文字小文字区別）でユーザーを
// 検索する。見つからない場合はnilを返す。
func (s *EntityStore) UserByUsername(username string) *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			found := u
			return &found
		}
	}
	return nil
}

// AppendUser はユーザーを末尾に追加する。IDが未設定（0）の場合は
// max(既存ID)+1を割り当てる。ID重複はValidationErrorで拒否する。
func (s *EntityStore) AppendUser(u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := func(u model.User) int { return u.ID }
	if u.ID == 0 {
		u.ID = nextID(s.users, userID)
	} else if hasID(s.users, userID, u.ID) {
		return model.User{}, model.NewValidationError("ユーザーIDが重複しています")
	}
	s.users = append(s.users, u)
	return u, nil
}

// --- Post ---

// Posts は全投稿を挿入順のコピーで返す。
func (s *EntityStore) Posts() []model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.posts)
}

// PostByID は指定IDの投稿を返す。見つからない場合はnilを返す。
func (s *EntityStore) PostByID(id int) *model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.posts, func(p model.Post) int { return p.ID }, id)
}

// AppendPost は投稿を末尾に追加する。UserIDが既存ユーザーを参照して
// いない場合はコレクションに触れる前にValidationErrorで失敗する。
func (s *EntityStore) AppendPost(p model.Post) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !hasID(s.users, func(u model.User) int { return u.ID }, p.UserID) {
		return model.Post{}, model.NewDanglingReferenceError("users", p.UserID)
	}
	postID := func(p model.Post) int { return p.ID }
	if p.ID == 0 {
		p.ID = nextID(s.posts, postID)
	} else if hasID(s.posts, postID, p.ID) {
		return model.Post{}, model.NewValidationError("投稿IDが重複しています")
	}
	s.posts = append(s.posts, p)
	return p, nil
}

// --- Comment ---

// Comments は全コメントを挿入順のコピーで返す。
func (s *EntityStore) Comments() []model.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.comments)
}

// AppendComment はコメントを末尾に追加する。PostIDが既存投稿を参照して
// いない場合はValidationErrorで失敗する。
func (s *EntityStore) AppendComment(c model.Comment) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !hasID(s.posts, func(p model.Post) int { return p.ID }, c.PostID) {
		return model.Comment{}, model.NewDanglingReferenceError("posts", c.PostID)
	}
	commentID := func(c model.Comment) int { return c.ID }
	if c.ID == 0 {
		c.ID = nextID(s.comments, commentID)
	} else if hasID(s.comments, commentID, c.ID) {
		return model.Comment{}, model.NewValidationError("コメントIDが重複しています")
	}
	s.comments = append(s.comments, c)
	return c, nil
}

// --- Album ---

// Albums は全アルバムを挿入順のコピーで返す。
func (s *EntityStore) Albums() []model.Album {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.albums)
}

// AlbumByID は指定IDのアルバムを返す。見つからない場合はnilを返す。
func (s *EntityStore) AlbumByID(id int) *model.Album {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.albums, func(a model.Album) int { return a.ID }, id)
}

// AppendAlbum はアルバムを末尾に追加する。UserIDが既存ユーザーを参照して
// いない場合はValidationErrorで失敗する。
func (s *EntityStore) AppendAlbum(a model.Album) (model.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !hasID(s.users, func(u model.User) int { return u.ID }, a.UserID) {
		return model.Album{}, model.NewDanglingReferenceError("users", a.UserID)
	}
	albumID := func(a model.Album) int { return a.ID }
	if a.ID == 0 {
		a.ID = nextID(s.albums, albumID)
	} else if hasID(s.albums, albumID, a.ID) {
		return model.Album{}, model.NewValidationError("アルバムIDが重複しています")
	}
	s.albums = append(s.albums, a)
	return a, nil
}

// --- Photo ---

// Photos は全写真を挿入順のコピーで返す。
func (s *EntityStore) Photos() []model.Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.photos)
}

// AppendPhoto は写真を末尾に追加する。AlbumIDが既存アルバムを参照して
// いない場合はValidationErrorで失敗する。
func (s *EntityStore) AppendPhoto(p model.Photo) (model.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !hasID(s.albums, func(a model.Album) int { return a.ID }, p.AlbumID) {
		return model.Photo{}, model.NewDanglingReferenceError("albums", p.AlbumID)
	}
	photoID := func(p model.Photo) int { return p.ID }
	if p.ID == 0 {
		p.ID = nextID(s.photos, photoID)
	} else if hasID(s.photos, photoID, p.ID) {
		return model.Photo{}, model.NewValidationError("写真IDが重複しています")
	}
	s.photos = append(s.photos, p)
	return p, nil
}

// --- Todo ---

// Todos は全タスクを挿入順のコピーで返す。
func (s *EntityStore) Todos() []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.todos)
}

// TodoByID は指定IDのタスクを返す。見つからない場合はnilを返す。
func (s *EntityStore) TodoByID(id int) *model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.todos, func(t model.Todo) int { return t.ID }, id)
}

// AppendTodo はタスクを末尾に追加する。UserIDが既存ユーザーを参照して
// いない場合はValidationErrorで失敗する。
func (s *EntityStore) AppendTodo(t model.Todo) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !hasID(s.users, func(u model.User) int { return u.ID }, t.UserID) {
		return model.Todo{}, model.NewDanglingReferenceError("users", t.UserID)
	}
	todoID := func(t model.Todo) int { return t.ID }
	if t.ID == 0 {
		t.ID = nextID(s.todos, todoID)
	} else if hasID(s.todos, todoID, t.ID) {
		return model.Todo{}, model.NewValidationError("タスクIDが重複しています")
	}
	s.todos = append(s.todos, t)
	return t, nil
}

// ReplaceAllTodos はタスクコレクション全体を置き換える。
// 一括編集（多数のトグル等)用。変更のない行のIDはそのまま維持される。
func (s *EntityStore) ReplaceAllTodos(todos []model.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = copyRows(todos)
}

// RemoveTodoByID は指定IDのタスクを削除する。
// IDが存在しない場合は何もしない（削除は冪等）。
func (s *EntityStore) RemoveTodoByID(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos {
		if t.ID == id {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			return
		}
	}
}
