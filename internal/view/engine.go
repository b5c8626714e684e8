// Package view は正規化コレクションを画面が必要とする非正規化形状へ
// 結合するRelationalViewEngineを提供する。
//
// 全ビュー関数は純粋な読み取りで、ストアを一切変更しない。結果は呼び出し
// 時点のストアスナップショットから毎回再計算され、キャッシュや増分無効化
// は行わない。書き込み直後の読み取りは常に最新状態を反映する。
//
// 読み取り時に欠損した外部キーはエラーにせず、結合の欠けた側を省略する
// （投稿者不在のMergedPost.Userはnil、アバター不在は("", false)）。
package view

import (
	"github.com/hitoshi/posty/internal/model"
	"github.com/hitoshi/posty/internal/store"
)

// Engine はRelationalViewEngineの実装。状態を持たず、呼び出しごとに
// ストアから読み取るだけで参照を保持しない。
type Engine struct {
	store *store.EntityStore
}

// NewEngine はEngineを生成する。
func NewEngine(s *store.EntityStore) *Engine {
	return &Engine{store: s}
}

// MergedPost は投稿と投稿者、コメント一覧を結合して返す。
// 投稿が存在しない場合はnilを返す。コメントは挿入の逆順（新しい順）。
// 投稿者が存在しない場合もエラーにせずUser=nilのまま返す。
func (e *Engine) MergedPost(postID int) *model.MergedPost {
	post := e.store.PostByID(postID)
	if post == nil {
		return nil
	}
	merged := e.merge(*post, e.store.Users(), e.store.Comments())
	return &merged
}

// merge は1投稿に投稿者とコメントを結合する。コメントは新しい順に並べる。
func (e *Engine) merge(post model.Post, users []model.User, comments []model.Comment) model.MergedPost {
	merged := model.MergedPost{Post: post, Comments: []model.Comment{}}
	for _, u := range users {
		if u.ID == post.UserID {
			author := u
			merged.User = &author
			break
		}
	}
	// コメントは挿入の逆順で積む
	for i := len(comments) - 1; i >= 0; i-- {
		if comments[i].PostID == post.ID {
			merged.Comments = append(merged.Comments, comments[i])
		}
	}
	return merged
}

// AlbumWithPhotos はアルバムと所属写真を結合して返す。
// アルバムが存在しない場合はnilを返す。写真は挿入順を保持する。
func (e *Engine) AlbumWithPhotos(albumID int) *model.AlbumWithPhotos {
	album := e.store.AlbumByID(albumID)
	if album == nil {
		return nil
	}
	merged := model.AlbumWithPhotos{Album: *album, Photos: []model.Photo{}}
	for _, p := range e.store.Photos() {
		if p.AlbumID == album.ID {
			merged.Photos = append(merged.Photos, p)
		}
	}
	return &merged
}

// AllAlbums は全アルバムを写真付きで挿入順に返す。ギャラリーの全体表示用。
func (e *Engine) AllAlbums() []model.AlbumWithPhotos {
	out := []model.AlbumWithPhotos{}
	for _, a := range e.store.Albums() {
		if merged := e.AlbumWithPhotos(a.ID); merged != nil {
			out = append(out, *merged)
		}
	}
	return out
}

// AlbumsByUser は指定ユーザーのアルバム一覧を写真付きで返す。挿入順。
func (e *Engine) AlbumsByUser(userID int) []model.AlbumWithPhotos {
	out := []model.AlbumWithPhotos{}
	for _, a := range e.store.Albums() {
		if a.UserID == userID {
			if merged := e.AlbumWithPhotos(a.ID); merged != nil {
				out = append(out, *merged)
			}
		}
	}
	return out
}

// AvatarURL はユーザーのアバターURLを解決する。
// 挿入順で最初のアルバム→そのアルバムの最初の写真のURL、という2段の
// 結合で、どちらかが欠けた時点で("", false)を返す。アバターを持たない
// ことはエラーではない。
func (e *Engine) AvatarURL(userID int) (string, bool) {
	var first *model.Album
	for _, a := range e.store.Albums() {
		if a.UserID == userID {
			album := a
			first = &album
			break
		}
	}
	if first == nil {
		return "", false
	}
	for _, p := range e.store.Photos() {
		if p.AlbumID == first.ID {
			return p.URL, true
		}
	}
	return "", false
}

// Feed はフィード（著者ごとの最新投稿一覧）を返す。
//
// ポリシーは2段階で、順序を入れ替えてはならない:
//  1. 全投稿を挿入順のまま末尾limit件に窓掛けする（limit<=0は全件）。
//  2. 新しい順に反転し、userIdで重複排除して最初の出現のみ残す。
//
// 窓掛けが重複排除より先に行われるため、投稿がすべて窓の外に落ちた
// 著者はフィードから消える。
func (e *Engine) Feed(limit int) []model.MergedPost {
	posts := e.store.Posts()
	if limit > 0 && len(posts) > limit {
		posts = posts[len(posts)-limit:]
	}

	users := e.store.Users()
	comments := e.store.Comments()

	seen := map[int]bool{}
	out := []model.MergedPost{}
	for i := len(posts) - 1; i >= 0; i-- {
		if seen[posts[i].UserID] {
			continue
		}
		seen[posts[i].UserID] = true
		out = append(out, e.merge(posts[i], users, comments))
	}
	return out
}

// MyTodos は指定ユーザーのタスク一覧を挿入の逆順（新しい順）で返す。
func (e *Engine) MyTodos(userID int) []model.Todo {
	todos := e.store.Todos()
	out := []model.Todo{}
	for i := len(todos) - 1; i >= 0; i-- {
		if todos[i].UserID == userID {
			out = append(out, todos[i])
		}
	}
	return out
}
