// Package mutation はコレクションを変更する唯一の経路であるMutationGateを
// 提供する。
//
// 全ての書き込みはここで検証・認可されてからEntityStoreに到達する。
// 失敗した操作はどのコレクションにも触れず、ストアとビューは直前の正常な
// 状態のまま残る（部分書き込みなし）。作成は全て同期的で、後の作成は常に
// より大きいIDを受け取り、そのコレクションの末尾に追加される。
package mutation

import (
	"github.com/hitoshi/posty/internal/model"
	"github.com/hitoshi/posty/internal/security"
	"github.com/hitoshi/posty/internal/store"
)

// placeholderTitle は本文のみで作成された投稿に与えるタイトル。
const placeholderTitle = "Title"

// placeholderEmail はコメント投稿者のメールが解決できない場合の代替値。
const placeholderEmail = "/"

// SessionControl はMutationGateが必要とするセッション操作インターフェース。
// session.Managerの部分集合として定義する。
type SessionControl interface {
	// CurrentUser は認証済みIdentityを返す。Anonymousではnilを返す。
	CurrentUser() *model.Identity
	// LoginAs は資格情報の照合なしで指定ユーザーのセッションを確立する。
	// 登録直後の自動ログイン専用。
	LoginAs(user model.User) (model.Identity, string, error)
}

// Gate はMutationGateの実装。
type Gate struct {
	store     *store.EntityStore
	sessions  SessionControl
	sanitizer security.BodySanitizerService
	urlGuard  security.URLGuardService
}

// NewGate はGateを生成する。
func NewGate(
	s *store.EntityStore,
	sessions SessionControl,
	sanitizer security.BodySanitizerService,
	urlGuard security.URLGuardService,
) *Gate {
	return &Gate{
		store:     s,
		sessions:  sessions,
		sanitizer: sanitizer,
		urlGuard:  urlGuard,
	}
}

// requireSession は認証済みIdentityを返す。Anonymousの場合は
// AuthorizationErrorを返す。
func (g *Gate) requireSession() (*model.Identity, error) {
	identity := g.sessions.CurrentUser()
	if identity == nil {
		return nil, model.NewLoginRequiredError()
	}
	return identity, nil
}

// CreatePost は投稿を作成する。
// 認証済みセッションが必要で、userIDは既存ユーザーでなければならない。
// タイトルはプレースホルダが設定される。
func (g *Gate) CreatePost(userID int, body string) (model.Post, error) {
	if _, err := g.requireSession(); err != nil {
		return model.Post{}, err
	}
	body = g.sanitizer.Sanitize(body)
	if body == "" {
		return model.Post{}, model.NewValidationError("本文が空です")
	}
	return g.store.AppendPost(model.Post{
		UserID: userID,
		Title:  placeholderTitle,
		Body:   body,
	})
}

// CreateComment は投稿へのコメントを作成する。
// コメント投稿者の情報はSessionManagerのIdentityから取り込む。
// Name/Emailはこの時点のスナップショットであり、以後Userの変更に追従しない。
// Emailは一致するユーザーから解決し、解決できない場合はプレースホルダを使う。
func (g *Gate) CreateComment(postID int, body string) (model.Comment, error) {
	identity, err := g.requireSession()
	if err != nil {
		return model.Comment{}, err
	}
	body = g.sanitizer.Sanitize(body)
	if body == "" {
		return model.Comment{}, model.NewValidationError("本文が空です")
	}

	email := placeholderEmail
	if u := g.store.UserByUsername(identity.Username); u != nil && u.Email != "" {
		email = u.Email
	}

	return g.store.AppendComment(model.Comment{
		PostID: postID,
		Name:   identity.Username,
		Email:  email,
		Body:   body,
	})
}

// CreateAlbum はアルバムを作成する。
// タイトルは空であってはならず、セッションのIDがuserIDと一致している
// 必要がある。
func (g *Gate) CreateAlbum(userID int, title string) (model.Album, error) {
	identity, err := g.requireSession()
	if err != nil {
		return model.Album{}, err
	}
	if identity.UserID != userID {
		return model.Album{}, model.NewOwnershipRequiredError("アルバム")
	}
	title = g.sanitizer.Sanitize(title)
	if title == "" {
		return model.Album{}, model.NewEmptyTitleError()
	}
	return g.store.AppendAlbum(model.Album{
		UserID: userID,
		Title:  title,
	})
}

// CreatePhoto はアルバムに写真を追加する。
// 呼び出し元がアルバムの所有者でなければならない（Album.UserIDと
// アクティブセッションのIDを突き合わせる）。URLとサムネイルURLには
// 同じローカルリソース参照が設定される。
func (g *Gate) CreatePhoto(albumID int, localURI string) (model.Photo, error) {
	identity, err := g.requireSession()
	if err != nil {
		return model.Photo{}, err
	}
	album := g.store.AlbumByID(albumID)
	if album == nil {
		return model.Photo{}, model.NewDanglingReferenceError("albums", albumID)
	}
	if album.UserID != identity.UserID {
		return model.Photo{}, model.NewOwnershipRequiredError("アルバム")
	}
	if err := g.urlGuard.ValidatePhotoURL(localURI); err != nil {
		return model.Photo{}, model.NewUnsafeURLError(err.Error())
	}
	return g.store.AppendPhoto(model.Photo{
		AlbumID:      albumID,
		Title:        placeholderTitle,
		URL:          localURI,
		ThumbnailURL: localURI,
	})
}

// CreateTodo はタスクを作成する。
// タスクの所有権はuserIDで暗黙に決まるため、セッションのIDと一致して
// いる必要がある。
func (g *Gate) CreateTodo(userID int, title string) (model.Todo, error) {
	identity, err := g.requireSession()
	if err != nil {
		return model.Todo{}, err
	}
	if identity.UserID != userID {
		return model.Todo{}, model.NewOwnershipRequiredError("タスク")
	}
	title = g.sanitizer.Sanitize(title)
	if title == "" {
		return model.Todo{}, model.NewEmptyTitleError()
	}
	return g.store.AppendTodo(model.Todo{
		UserID:    userID,
		Title:     title,
		Completed: false,
	})
}

// ToggleTodo は指定タスクのcompletedを反転する。
// 2回連続で呼ぶと元の値に戻る。自分のタスクに対してのみ実行できる。
// IDが存在しない場合は何もしない。
func (g *Gate) ToggleTodo(id int) error {
	identity, err := g.requireSession()
	if err != nil {
		return err
	}
	todo := g.store.TodoByID(id)
	if todo == nil {
		return nil
	}
	if todo.UserID != identity.UserID {
		return model.NewOwnershipRequiredError("タスク")
	}

	// 変更行以外のIDと並びを保ったまま全置換する
	todos := g.store.Todos()
	for i := range todos {
		if todos[i].ID == id {
			todos[i].Completed = !todos[i].Completed
		}
	}
	g.store.ReplaceAllTodos(todos)
	return nil
}

// DeleteTodo は指定タスクを削除する。自分のタスクに対してのみ実行できる。
// 既に削除済みのIDに対しては何もしない（削除は冪等でエラーにならない）。
func (g *Gate) DeleteTodo(id int) error {
	identity, err := g.requireSession()
	if err != nil {
		return err
	}
	todo := g.store.TodoByID(id)
	if todo == nil {
		return nil
	}
	if todo.UserID != identity.UserID {
		return model.NewOwnershipRequiredError("タスク")
	}
	g.store.RemoveTodoByID(id)
	return nil
}

// RegisterUser は新規ユーザーを登録し、即座にそのユーザーのセッションを
// 確立する（登録はログインを含意する）。
// usernameが既存と完全一致（大文字小文字区別）する場合はConflictErrorで
// 失敗し、コレクションは変更されない。
func (g *Gate) RegisterUser(name, username, email, website string) (model.User, string, error) {
	if username == "" {
		return model.User{}, "", model.NewValidationError("ユーザー名が空です")
	}
	if g.store.UserByUsername(username) != nil {
		return model.User{}, "", model.NewUsernameTakenError(username)
	}

	user, err := g.store.AppendUser(model.User{
		Name:     name,
		Username: username,
		Email:    email,
		Website:  website,
	})
	if err != nil {
		return model.User{}, "", err
	}

	_, token, err := g.sessions.LoginAs(user)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}
