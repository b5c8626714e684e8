// Package model はドメインモデルを定義する。
package model

// Todo はユーザーのタスクを表す。
// 6コレクションのうち唯一、明示的な削除が許可されている。
type Todo struct {
	ID        int    `json:"id"`
	UserID    int    `json:"userId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}
