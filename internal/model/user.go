// Package model はドメインモデルを定義する。
package model

// User はサービス利用ユーザーを表す。
// Websiteはログイン資格情報を兼ねる（§仕様どおりの平文比較）。
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Website  string `json:"website"`
}

// Identity はログイン時に確定した認証済みユーザーの基本情報を表す。
// SessionManagerがAuthenticated状態で保持するスナップショット。
type Identity struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}
