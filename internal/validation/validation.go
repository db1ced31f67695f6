// Package validation はユーザー入力URLの正規化と検証を提供する。
// ネットワークアクセスもストアアクセスも行わない純粋関数のみを含む。
package validation

import (
	"net/url"
	"strings"

	"github.com/hitoshi/feedic/internal/model"
)

// Validate はユーザー入力のURL文字列を検証し、正規化済みURLを返す。
// 検証は次の順で行う:
//  1. 前後の空白を除去。空になった場合はEMPTY_INPUT。
//  2. URLとしてパース。失敗またはホスト欠落はMALFORMED_URL。
//  3. スキームがhttp/https以外の場合はUNSUPPORTED_SCHEME。
//
// 成功時はトリム済みのURL文字列をそのまま返す（それ以外の書き換えは行わない）。
func Validate(raw string) (string, error) {
	cleanURL := strings.TrimSpace(raw)
	if cleanURL == "" {
		return "", model.NewEmptyInputError()
	}

	parsed, err := url.Parse(cleanURL)
	if err != nil {
		return "", model.NewMalformedURLError(cleanURL)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "http", "https":
		// 許可スキーム
	case "":
		// スキームなし（"example.com/feed" など）はURL形式エラーとして扱う
		return "", model.NewMalformedURLError(cleanURL)
	default:
		return "", model.NewUnsupportedSchemeError(scheme)
	}

	if parsed.Host == "" {
		return "", model.NewMalformedURLError(cleanURL)
	}

	return cleanURL, nil
}
