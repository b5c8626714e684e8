// Package model はドメインモデルを定義する。
package model

// Post はユーザーの投稿を表す。
type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Comment は投稿へのコメントを表す。
// Name/Emailはコメント投稿時点のユーザー情報のスナップショットであり、
// Userコレクションへの参照ではない。
type Comment struct {
	ID     int    `json:"id"`
	PostID int    `json:"postId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

// MergedPost は投稿と投稿者、コメント一覧を結合した非正規化ビュー。
// Userは投稿者が存在しない場合nil（空構造体で代用しない）。
type MergedPost struct {
	Post
	User     *User     `json:"user,omitempty"`
	Comments []Comment `json:"comments"`
}
