// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, feed, store, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEmptyInput              = "EMPTY_INPUT"
	ErrCodeMalformedURL            = "MALFORMED_URL"
	ErrCodeUnsupportedScheme       = "UNSUPPORTED_SCHEME"
	ErrCodeDuplicateSubscription   = "DUPLICATE_SUBSCRIPTION"
	ErrCodeSubmissionInFlight      = "SUBMISSION_IN_FLIGHT"
	ErrCodeFetchFailed             = "FETCH_FAILED"
	ErrCodeSubscriptionWriteFailed = "SUBSCRIPTION_WRITE_FAILED"
	ErrCodeDeletionFailed          = "DELETION_FAILED"
	ErrCodeArticleNotFound         = "ARTICLE_NOT_FOUND"
	ErrCodeSubscriptionNotFound    = "SUBSCRIPTION_NOT_FOUND"
)

// NewEmptyInputError は空入力エラーを生成する。
func NewEmptyInputError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyInput,
		Message:  "URLが入力されていません。",
		Category: "validation",
		Action:   "フィードのURLを入力してください。",
	}
}

// NewMalformedURLError はURL形式エラーを生成する。
func NewMalformedURLError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedURL,
		Message:  fmt.Sprintf("有効なURL形式ではありません: %s", raw),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewUnsupportedSchemeError は非対応スキームエラーを生成する。
func NewUnsupportedSchemeError(scheme string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedScheme,
		Message:  fmt.Sprintf("対応していないスキームです: %s", scheme),
		Category: "validation",
		Action:   "HTTPまたはHTTPSのURLのみ登録できます。",
	}
}

// NewDuplicateSubscriptionError は既に購読済みのフィードを再度登録しようとした場合のエラーを生成する。
func NewDuplicateSubscriptionError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSubscription,
		Message:  "このフィードは既に購読しています。",
		Category: "feed",
		Action:   "購読一覧から該当フィードを確認してください。",
	}
}

// NewSubmissionInFlightError は同一URLの登録処理が進行中の場合のエラーを生成する。
func NewSubmissionInFlightError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeSubmissionInFlight,
		Message:  fmt.Sprintf("このURLの登録処理が進行中です: %s", url),
		Category: "feed",
		Action:   "処理が完了するまでお待ちください。",
	}
}

// NewFetchFailedError はフェッチ失敗エラーを生成する。
// 購読自体は作成済みのまま残る（部分失敗ポリシー）。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("フィードの取得に失敗しました: %s", reason),
		Category: "feed",
		Action:   "購読は作成されています。しばらく待ってから再度お試しください。",
	}
}

// NewSubscriptionWriteFailedError は購読の保存失敗エラーを生成する。
func NewSubscriptionWriteFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionWriteFailed,
		Message:  "購読の保存に失敗しました。",
		Category: "store",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewDeletionFailedError は削除失敗エラーを生成する。
func NewDeletionFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeDeletionFailed,
		Message:  "フィードの削除に失敗しました。",
		Category: "store",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleID),
		Category: "feed",
		Action:   "記事IDを確認してください。",
	}
}

// NewSubscriptionNotFoundError は購読が見つからない場合のエラーを生成する。
func NewSubscriptionNotFoundError(subscriptionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionNotFound,
		Message:  fmt.Sprintf("指定された購読が見つかりません: %s", subscriptionID),
		Category: "feed",
		Action:   "購読IDを確認してください。",
	}
}
