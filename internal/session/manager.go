// Package session は認証状態を管理するSessionManagerを提供する。
//
// 状態機械は2状態のみ: Anonymous（初期状態）とAuthenticated（1ユーザー分の
// Identityを保持）。同時に有効なIdentityは常に最大1つで、再ログインは
// 前のセッションを無効化する。
//
// 資格情報の照合はEntityStoreのUserコレクションに対するusernameの完全
// 一致と、user.Websiteとパスワードの平文等値比較で行う。ハッシュ比較では
// ないが、これは既存の外部挙動との互換要件であり意図的に維持している。
// 認可判定（所有権チェック等）はここには置かず、MutationGate側が
// CurrentUser()のIDを突き合わせて行う。
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/hitoshi/posty/internal/model"
	"github.com/hitoshi/posty/internal/store"
)

// Manager はSessionManagerの実装。
type Manager struct {
	mu      sync.Mutex
	store   *store.EntityStore
	current *model.Identity
	token   string
}

// NewManager はAnonymous状態のManagerを生成する。
func NewManager(s *store.EntityStore) *Manager {
	return &Manager{store: s}
}

// Login はusernameとpasswordで認証を試みる。
// 成功すればAuthenticatedに遷移し、Identityとセッショントークンを返す。
// ユーザー不在または資格情報不一致の場合は状態を変えずに
// AuthenticationErrorを返す。
func (m *Manager) Login(username, password string) (model.Identity, string, error) {
	user := m.store.UserByUsername(username)
	if user == nil || user.Website != password {
		return model.Identity{}, "", model.NewLoginFailedError()
	}
	return m.establish(*user)
}

// LoginAs は資格情報の照合なしで指定ユーザーのセッションを確立する。
// 登録直後の自動ログイン（登録はログインを含意する）専用。
func (m *Manager) LoginAs(user model.User) (model.Identity, string, error) {
	return m.establish(user)
}

// establish はAuthenticated状態へ遷移し、新しいトークンを発行する。
func (m *Manager) establish(user model.User) (model.Identity, string, error) {
	identity := model.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
	}
	token := uuid.New().String()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &identity
	m.token = token
	return identity, token, nil
}

// Logout は無条件にAnonymousへ遷移する。既にAnonymousの場合も冪等に成功する。
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.token = ""
}

// CurrentUser はAuthenticated状態のIdentityを返す。Anonymousではnilを返す。
// 返り値はコピーで、内部状態と共有されない。
func (m *Manager) CurrentUser() *model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	identity := *m.current
	return &identity
}

// ValidateToken はトークンが現在有効なセッションのものであれば
// そのIdentityを返す。不一致またはAnonymousの場合はnilを返す。
// HTTPミドルウェアがCookieのトークン検証に使う。
func (m *Manager) ValidateToken(token string) *model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || token == "" || token != m.token {
		return nil
	}
	identity := *m.current
	return &identity
}
