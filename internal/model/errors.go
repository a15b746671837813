// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 呼び出し元に提示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: config, auth, upstream, protocol, lookup, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeConfigMissing   = "CONFIG_MISSING"
	ErrCodeUpstreamError   = "UPSTREAM_ERROR"
	ErrCodeNonJSONResponse = "NON_JSON_RESPONSE"
	ErrCodeAuthFailed      = "AUTH_FAILED"
	ErrCodeParcelNotFound  = "PARCEL_NOT_FOUND"
)

// NewConfigMissingError は必須環境変数の欠落エラーを生成する。
func NewConfigMissingError(vars []string) *APIError {
	return &APIError{
		Code:     ErrCodeConfigMissing,
		Message:  fmt.Sprintf("必須環境変数が設定されていません: %v", vars),
		Category: "config",
		Action:   "DHL_USERNAME と DHL_PASSWORD を環境変数に設定してください。",
	}
}

// NewUpstreamError はDHL APIがエラーステータスを返した場合のエラーを生成する。
func NewUpstreamError(statusCode int) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamError,
		Message:  fmt.Sprintf("DHL APIがエラーステータスを返しました: %d", statusCode),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNonJSONResponseError はDHL APIが非JSONレスポンスを返した場合のエラーを生成する。
func NewNonJSONResponseError() *APIError {
	return &APIError{
		Code:     ErrCodeNonJSONResponse,
		Message:  "DHL APIが非JSONレスポンスを返しました。",
		Category: "protocol",
		Action:   "DHL APIの稼働状況を確認してください。",
	}
}

// NewAuthFailedError はDHLログイン失敗エラーを生成する。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "DHL APIへのログインに失敗しました。",
		Category: "auth",
		Action:   "DHL_USERNAME と DHL_PASSWORD が正しいか確認してください。",
	}
}

// NewParcelNotFoundError は荷物未検出エラーを生成する。
// システム障害ではなく検索ミスとして扱う。
func NewParcelNotFoundError(identifier string) *APIError {
	return &APIError{
		Code:     ErrCodeParcelNotFound,
		Message:  fmt.Sprintf("指定された荷物が見つかりません: %s", identifier),
		Category: "lookup",
		Action:   "荷物IDまたはバーコードを確認してください。",
	}
}
