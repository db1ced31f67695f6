// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizerService は記事説明文のサニタイズ機能のインターフェースを定義する。
// 記事の実体化時およびプロキシ応答の正規化時に使用される。
type DescriptionSanitizerService interface {
	// Sanitize はフィード由来の説明文からHTMLタグを全て除去し、
	// プレーンテキストとして安全な文字列を返す。
	// エンティティ参照はデコードし、連続する空白は1つにまとめる。
	// 空文字列の入力には空文字列を返す。冪等である。
	Sanitize(raw string) string
}

// descriptionSanitizer はDescriptionSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフに動作する。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerServiceの新しいインスタンスを生成する。
// 記事説明文はUIでプレーンテキストとして表示されるため、
// 許可タグなしのStrictPolicyで全タグを除去する。
func NewDescriptionSanitizer() *descriptionSanitizer {
	return &descriptionSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は説明文からHTMLタグを除去してプレーンテキストを返す。
func (s *descriptionSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	stripped := s.policy.Sanitize(raw)

	// StrictPolicyは残したテキストをエスケープして返すためデコードし直す
	decoded := html.UnescapeString(stripped)

	// タグ除去で生じた連続空白・改行を1スペースに正規化する
	return strings.Join(strings.Fields(decoded), " ")
}
