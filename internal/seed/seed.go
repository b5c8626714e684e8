// Package seed は起動時に1回だけ読み込まれる初期スナップショットの
// ロードと検証を提供する。
//
// シードはjsonplaceholder形状のJSONドキュメントで、6コレクションの配列を
// 持つ。配列の並びがそのまま挿入順となり、全ビューの順序の基準になる。
// シードのロードはコアの外（配信シェル側）の責務であり、コアが使われる
// 前に完了する。不正なシードは起動失敗として即座に報告する。
package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hitoshi/posty/internal/model"
	"github.com/hitoshi/posty/internal/store"
)

// Document はシードJSONのトップレベル構造。
type Document struct {
	Users    []model.User    `json:"users"`
	Posts    []model.Post    `json:"posts"`
	Comments []model.Comment `json:"comments"`
	Albums   []model.Album   `json:"albums"`
	Photos   []model.Photo   `json:"photos"`
	Todos    []model.Todo    `json:"todos"`
}

// Load は指定パスのシードファイルを読み込み、検証済みのstore.Seedを返す。
func Load(path string) (store.Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return store.Seed{}, fmt.Errorf("シードファイルを開けません: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse はシードJSONを読み取り、検証済みのstore.Seedを返す。
func Parse(r io.Reader) (store.Seed, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return store.Seed{}, fmt.Errorf("シードJSONの解析に失敗しました: %w", err)
	}

	if err := validate(&doc); err != nil {
		return store.Seed{}, err
	}

	return store.Seed{
		Users:    doc.Users,
		Posts:    doc.Posts,
		Comments: doc.Comments,
		Albums:   doc.Albums,
		Photos:   doc.Photos,
		Todos:    doc.Todos,
	}, nil
}

// validate はシードのID一意性と外部キーの解決可能性を検証する。
// 読み取りは欠損参照に寛容だが、不正なシードで起動することは
// 後続の全ビューを汚染するため、ここでは厳密に拒否する。
func validate(doc *Document) error {
	userIDs, err := collectIDs("users", len(doc.Users), func(i int) int { return doc.Users[i].ID })
	if err != nil {
		return err
	}
	postIDs, err := collectIDs("posts", len(doc.Posts), func(i int) int { return doc.Posts[i].ID })
	if err != nil {
		return err
	}
	albumIDs, err := collectIDs("albums", len(doc.Albums), func(i int) int { return doc.Albums[i].ID })
	if err != nil {
		return err
	}
	if _, err := collectIDs("comments", len(doc.Comments), func(i int) int { return doc.Comments[i].ID }); err != nil {
		return err
	}
	if _, err := collectIDs("photos", len(doc.Photos), func(i int) int { return doc.Photos[i].ID }); err != nil {
		return err
	}
	if _, err := collectIDs("todos", len(doc.Todos), func(i int) int { return doc.Todos[i].ID }); err != nil {
		return err
	}

	usernames := map[string]bool{}
	for _, u := range doc.Users {
		if usernames[u.Username] {
			return fmt.Errorf("シードが不正です: username重複 %q", u.Username)
		}
		usernames[u.Username] = true
	}

	for _, p := range doc.Posts {
		if !userIDs[p.UserID] {
			return fmt.Errorf("シードが不正です: posts/%d のuserId %d が未解決", p.ID, p.UserID)
		}
	}
	for _, c := range doc.Comments {
		if !postIDs[c.PostID] {
			return fmt.Errorf("シードが不正です: comments/%d のpostId %d が未解決", c.ID, c.PostID)
		}
	}
	for _, a := range doc.Albums {
		if !userIDs[a.UserID] {
			return fmt.Errorf("シードが不正です: albums/%d のuserId %d が未解決", a.ID, a.UserID)
		}
	}
	for _, p := range doc.Photos {
		if !albumIDs[p.AlbumID] {
			return fmt.Errorf("シードが不正です: photos/%d のalbumId %d が未解決", p.ID, p.AlbumID)
		}
	}
	for _, t := range doc.Todos {
		if !userIDs[t.UserID] {
			return fmt.Errorf("シードが不正です: todos/%d のuserId %d が未解決", t.ID, t.UserID)
		}
	}

	return nil
}

// collectIDs はコレクション内のIDが正の整数かつ一意であることを検証し、
// ID集合を返す。
func collectIDs(collection string, n int, id func(i int) int) (map[int]bool, error) {
	ids := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		v := id(i)
		if v <= 0 {
			return nil, fmt.Errorf("シードが不正です: %s に非正のID %d", collection, v)
		}
		if ids[v] {
			return nil, fmt.Errorf("シードが不正です: %s にID重複 %d", collection, v)
		}
		ids[v] = true
	}
	return ids, nil
}
