// Package security はアプリケーションのセキュリティ機能を提供する。
//
// BodySanitizerService はユーザーが入力する投稿本文・コメント本文を
// サニタイズし、XSS等のセキュリティリスクから他のユーザーを保護する。
// 本文はアプリ上でプレーンテキストとして表示されるため、bluemondayの
// StrictPolicyで全てのHTMLタグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// BodySanitizerService は本文サニタイズ機能のインターフェースを定義する。
// MutationGateが投稿・コメントの保存前に使用する。
type BodySanitizerService interface {
	// Sanitize は本文から全てのHTMLタグを除去し、前後の空白を刈り取る。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// bodySanitizer はBodySanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type bodySanitizer struct {
	policy *bluemonday.Policy
}

// NewBodySanitizer はBodySanitizerServiceの新しいインスタンスを生成する。
// 本文は装飾なしのテキストとして扱うため、許可タグは一切ない。
func NewBodySanitizer() *bodySanitizer {
	return &bodySanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は本文から全てのHTMLタグを除去して返す。
func (s *bodySanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
