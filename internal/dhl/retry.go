package dhl

import "time"

const (
	// defaultMaxAttempts は初回を含む総試行回数の上限。
	defaultMaxAttempts = 5
	// defaultBaseDelay は初回再試行までの遅延。
	defaultBaseDelay = 1 * time.Second
	// defaultBackoffFactor は再試行ごとの遅延の増加係数。
	defaultBackoffFactor = 2
)

// RetryPolicy は一時的な上流障害に対する再試行方針を表す。
// 最大試行回数、バックオフ関数、再試行対象ステータスの判定をまとめ、
// トランスポート呼び出しに注入して使用する。
type RetryPolicy struct {
	MaxAttempts   int           // 総試行回数（初回を含む）
	BaseDelay     time.Duration // 初回再試行までの遅延
	BackoffFactor int           // 再試行ごとの遅延の増加係数
}

// DefaultRetryPolicy はデフォルトの再試行方針を返す。
// 総試行5回、初回遅延1秒、2倍ずつ増加。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   defaultMaxAttempts,
		BaseDelay:     defaultBaseDelay,
		BackoffFactor: defaultBackoffFactor,
	}
}

// IsRetryableStatus は一時的なサーバーエラーとして再試行対象の
// HTTPステータスコードかを返す。対象は500/502/503/504のみ。
// それ以外の非2xxステータスは即座に呼び出し元へ伝播する。
func (p RetryPolicy) IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// Delay はretry回目（0始まり）の再試行前の遅延を計算する。
// BaseDelayからBackoffFactor倍ずつ指数的に増加する。
func (p RetryPolicy) Delay(retry int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < retry; i++ {
		delay *= time.Duration(p.BackoffFactor)
	}
	return delay
}
