package dhl

import "fmt"

// UpstreamError はDHL APIが2xx以外のステータスを返したことを表す。
// 再試行対象外のステータス、または再試行が尽きた場合に返される。
type UpstreamError struct {
	StatusCode int
	Body       string
}

// Error はerrorインターフェースを実装する。
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("DHL APIがステータス %d を返しました: %s", e.StatusCode, e.Body)
}

// ProtocolError は2xxレスポンスのボディがJSONとして解釈できないことを表す。
// 再試行しても回復しないため、即座に呼び出し元へ伝播する。
type ProtocolError struct {
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("DHL APIが非JSONレスポンスを返しました: %s", e.Reason)
}

// AuthenticationError はログイン呼び出しが利用可能なデータを返さなかったことを表す。
// HTTP層の失敗とは区別され、空のログインレスポンスのみがこのエラーになる。
type AuthenticationError struct {
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("DHLログインに失敗しました: %s", e.Reason)
}
