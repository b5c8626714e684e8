package store

import (
	"testing"

	"github.com/hitoshi/posty/internal/model"
)

// --- テストフィクスチャ ---

func seedFixture() Seed {
	return Seed{
		Users: []model.User{
			{ID: 1, Name: "Ann Lee", Username: "ann", Email: "ann@example.com", Website: "pw1"},
			{ID: 2, Name: "Bob Tan", Username: "bob", Email: "bob@example.com", Website: "pw2"},
		},
		Posts: []model.Post{
			{ID: 1, UserID: 1, Title: "Title", Body: "first"},
			{ID: 5, UserID: 2, Title: "Title", Body: "second"},
		},
		Comments: []model.Comment{
			{ID: 1, PostID: 1, Name: "bob", Email: "bob@example.com", Body: "nice"},
		},
		Albums: []model.Album{
			{ID: 1, UserID: 1, Title: "trip"},
		},
		Photos: []model.Photo{
			{ID: 1, AlbumID: 1, Title: "p1", URL: "https://example.com/1.png", ThumbnailURL: "https://example.com/1t.png"},
		},
		Todos: []model.Todo{
			{ID: 1, UserID: 1, Title: "buy milk", Completed: false},
			{ID: 2, UserID: 2, Title: "walk dog", Completed: true},
		},
	}
}

// --- テスト ---

func TestNewEntityStore_CopiesSeedSlices(t *testing.T) {
	seed := seedFixture()
	s := NewEntityStore(seed)

	// シード側のスライスを書き換えてもストアに影響しないこと
	seed.Users[0].Username = "mutated"

	u := s.UserByID(1)
	if u == nil {
		t.Fatal("expected user 1 to exist")
	}
	if u.Username != "ann" {
		t.Errorf("Username = %q, want %q", u.Username, "ann")
	}
}

func TestUsers_ReturnedSliceIsIsolated(t *testing.T) {
	s := NewEntityStore(seedFixture())

	users := s.Users()
	users[0].Username = "mutated"

	if got := s.UserByID(1).Username; got != "ann" {
		t.Errorf("Username after external mutation = %q, want %q", got, "ann")
	}
}

func TestUserByUsername_ExactMatchOnly(t *testing.T) {
	s := NewEntityStore(seedFixture())

	if s.UserByUsername("ann") == nil {
		t.Error("expected exact match to find user")
	}
	// 大文字小文字は区別する
	if s.UserByUsername("Ann") != nil {
		t.Error("expected case-mismatched lookup to return nil")
	}
	if s.UserByUsername("nobody") != nil {
		t.Error("expected unknown username to return nil")
	}
}

func TestAppendUser_AssignsMaxIDPlusOne(t *testing.T) {
	s := NewEntityStore(seedFixture())

	u, err := s.AppendUser(model.User{Name: "Cara", Username: "cara", Email: "c@example.com", Website: "pw3"})
	if err != nil {
		t.Fatalf("AppendUser() error = %v", err)
	}
	if u.ID != 3 {
		t.Errorf("assigned ID = %d, want 3", u.ID)
	}
}

func TestAppendUser_EmptyCollectionStartsAtOne(t *testing.T) {
	s := NewEntityStore(Seed{})

	u, err := s.AppendUser(model.User{Username: "first"})
	if err != nil {
		t.Fatalf("AppendUser() error = %v", err)
	}
	if u.ID != 1 {
		t.Errorf("assigned ID = %d, want 1", u.ID)
	}
}

func TestAppendUser_DuplicatePresetIDRejected(t *testing.T) {
	s := NewEntityStore(seedFixture())

	_, err := s.AppendUser(model.User{ID: 1, Username: "dup"})
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Category != model.CategoryValidation {
		t.Errorf("Category = %q, want %q", apiErr.Category, model.CategoryValidation)
	}
}

func TestAppendPost_NextIDSkipsGaps(t *testing.T) {
	s := NewEntityStore(seedFixture())

	// 既存IDは{1, 5}。length+1=3ではなくmax+1=6が割り当てられること
	p, err := s.AppendPost(model.Post{UserID: 1, Title: "Title", Body: "third"})
	if err != nil {
		t.Fatalf("AppendPost() error = %v", err)
	}
	if p.ID != 6 {
		t.Errorf("assigned ID = %d, want 6", p.ID)
	}
}

func TestAppendPost_DanglingUserRejected(t *testing.T) {
	s := NewEntityStore(seedFixture())

	before := len(s.Posts())
	_, err := s.AppendPost(model.Post{UserID: 99, Title: "Title", Body: "x"})
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDanglingReference {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDanglingReference)
	}
	// 失敗した書き込みはコレクションに痕跡を残さないこと
	if got := len(s.Posts()); got != before {
		t.Errorf("post count after rejected write = %d, want %d", got, before)
	}
}

func TestAppendComment_DanglingPostRejected(t *testing.T) {
	s := NewEntityStore(seedFixture())

	_, err := s.AppendComment(model.Comment{PostID: 99, Body: "x"})
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDanglingReference {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDanglingReference)
	}
}

func TestAppendPhoto_DanglingAlbumRejected(t *testing.T) {
	s := NewEntityStore(seedFixture())

	_, err := s.AppendPhoto(model.Photo{AlbumID: 42, URL: "https://example.com/x.png"})
	if _, ok := model.AsAPIError(err); !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestAppendAlbum_AppendsInInsertionOrder(t *testing.T) {
	s := NewEntityStore(seedFixture())

	a, err := s.AppendAlbum(model.Album{UserID: 1, Title: "second album"})
	if err != nil {
		t.Fatalf("AppendAlbum() error = %v", err)
	}
	albums := s.Albums()
	if len(albums) != 2 {
		t.Fatalf("album count = %d, want 2", len(albums))
	}
	if albums[1].ID != a.ID {
		t.Errorf("last album ID = %d, want %d", albums[1].ID, a.ID)
	}
}

func TestReplaceAllTodos_PreservesIDs(t *testing.T) {
	s := NewEntityStore(seedFixture())

	todos := s.Todos()
	todos[0].Completed = !todos[0].Completed
	s.ReplaceAllTodos(todos)

	got := s.TodoByID(1)
	if got == nil {
		t.Fatal("expected todo 1 to survive replacement")
	}
	if !got.Completed {
		t.Error("expected todo 1 to be completed after replacement")
	}
	if s.TodoByID(2) == nil {
		t.Error("expected untouched todo 2 to survive replacement")
	}
}

func TestRemoveTodoByID_RemovesAndIsIdempotent(t *testing.T) {
	s := NewEntityStore(seedFixture())

	s.RemoveTodoByID(1)
	if s.TodoByID(1) != nil {
		t.Error("expected todo 1 to be removed")
	}

	// 2回目の削除は何も起こさない
	s.RemoveTodoByID(1)
	if got := len(s.Todos()); got != 1 {
		t.Errorf("todo count after double remove = %d, want 1", got)
	}
}

func TestAppendTodo_NextIDComputedFromRemainingRows(t *testing.T) {
	s := NewEntityStore(seedFixture())

	// max+1は残存行から計算されるため、最大IDの行を削除するとIDは再利用される
	s.RemoveTodoByID(2)
	todo, err := s.AppendTodo(model.Todo{UserID: 1, Title: "new task"})
	if err != nil {
		t.Fatalf("AppendTodo() error = %v", err)
	}
	if todo.ID != 2 {
		t.Errorf("assigned ID = %d, want 2", todo.ID)
	}
}
