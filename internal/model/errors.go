// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, resource, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ。書き込み系の4種の失敗分類に対応する。
const (
	CategoryValidation = "validation" // ValidationError: 入力不正・外部キー未解決
	CategoryConflict   = "conflict"   // ConflictError: username重複
	CategoryAuth       = "auth"       // AuthenticationError / AuthorizationError
	CategoryResource   = "resource"   // 読み取り対象が存在しない
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeDanglingReference = "DANGLING_REFERENCE"
	ErrCodeEmptyTitle        = "EMPTY_TITLE"
	ErrCodeUsernameTaken     = "USERNAME_TAKEN"
	ErrCodeLoginFailed       = "LOGIN_FAILED"
	ErrCodeLoginRequired     = "LOGIN_REQUIRED"
	ErrCodeOwnershipRequired = "OWNERSHIP_REQUIRED"
	ErrCodePostNotFound      = "POST_NOT_FOUND"
	ErrCodeAlbumNotFound     = "ALBUM_NOT_FOUND"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeUnsafeURL         = "UNSAFE_URL"
)

// NewValidationError は入力不正エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力が不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewDanglingReferenceError は未解決の外部キーエラーを生成する。
// 書き込み時のみ発生する。読み取り時の欠損参照はエラーにしない。
func NewDanglingReferenceError(collection string, id int) *APIError {
	return &APIError{
		Code:     ErrCodeDanglingReference,
		Message:  fmt.Sprintf("参照先が存在しません: %s/%d", collection, id),
		Category: CategoryValidation,
		Action:   "参照先のIDを確認してください。",
	}
}

// NewEmptyTitleError はタイトル未入力エラーを生成する。
func NewEmptyTitleError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyTitle,
		Message:  "タイトルが空です。",
		Category: CategoryValidation,
		Action:   "タイトルを入力してください。",
	}
}

// NewUsernameTakenError はusername重複エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使われています: %s", username),
		Category: CategoryConflict,
		Action:   "別のユーザー名を選んでください。",
	}
}

// NewLoginFailedError は認証失敗エラーを生成する。
// ユーザー不在と資格情報不一致を区別しない。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "ログインに失敗しました。",
		Category: CategoryAuth,
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewLoginRequiredError は未ログインでの書き込みエラーを生成する。
func NewLoginRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginRequired,
		Message:  "この操作にはログインが必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewOwnershipRequiredError は所有権のないリソースへの書き込みエラーを生成する。
func NewOwnershipRequiredError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeOwnershipRequired,
		Message:  fmt.Sprintf("自分の%sに対してのみ実行できます。", resource),
		Category: CategoryAuth,
		Action:   "対象の所有者でログインしてください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID int) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %d", postID),
		Category: CategoryResource,
		Action:   "投稿IDを確認してください。",
	}
}

// NewAlbumNotFoundError はアルバム未検出エラーを生成する。
func NewAlbumNotFoundError(albumID int) *APIError {
	return &APIError{
		Code:     ErrCodeAlbumNotFound,
		Message:  fmt.Sprintf("指定されたアルバムが見つかりません: %d", albumID),
		Category: CategoryResource,
		Action:   "アルバムIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID int) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %d", userID),
		Category: CategoryResource,
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewUnsafeURLError は安全でないURLへの参照エラーを生成する。
func NewUnsafeURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsafeURL,
		Message:  fmt.Sprintf("このURLは使用できません: %s", reason),
		Category: CategoryValidation,
		Action:   "公開されているhttp(s)のURL、またはローカルリソース参照を指定してください。",
	}
}

// AsAPIError はエラーチェーンからAPIErrorを取り出す。
// APIErrorでない場合はnilとfalseを返す。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
