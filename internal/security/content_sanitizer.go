// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizer は商品説明に含まれるHTMLをサニタイズし、
// 商品一覧を表示するクライアントへのXSSを防ぐ。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 書式用の安全なタグのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は文字列をサニタイズするインターフェース。
// catalog.Service が商品説明の保存前に使用する。
type Sanitizer interface {
	// Sanitize はHTMLを含みうる文字列から許可外のタグと属性を除去する。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// DescriptionSanitizer はSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使用する。
type DescriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, strong, em, b, i
//   - a, img, script, iframe, style および全てのon*イベント属性は除去
func NewDescriptionSanitizer() *DescriptionSanitizer {
	p := bluemonday.NewPolicy()

	// 許可リストにないタグはすべて除去される
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em", "b", "i",
	)

	return &DescriptionSanitizer{
		policy: p,
	}
}

// Sanitize は説明文をサニタイズする。
// タグを含まないプレーンテキストはエスケープせずそのまま返す。
func (s *DescriptionSanitizer) Sanitize(raw string) string {
	if !strings.ContainsRune(raw, '<') {
		return raw
	}
	return s.policy.Sanitize(raw)
}

// compile-time interface check
var _ Sanitizer = (*DescriptionSanitizer)(nil)
