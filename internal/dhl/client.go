// Package dhl はDHL荷物APIへの認証付きHTTPセッションを提供する。
// 遅延ログイン、一時的障害の再試行、型付きエラーへの変換を含む。
package dhl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/parcelman/internal/model"
)

const (
	// loginPath はログインエンドポイントのパス。
	loginPath = "api/user/login"
	// userPath はユーザープロファイル取得エンドポイントのパス。
	userPath = "api/user"
	// parcelsPath は荷物コレクション取得エンドポイントのパス。
	parcelsPath = "receiver-parcel-api/parcels"
)

// Credentials はDHL APIへの接続情報を表す。構築後は変更しない。
type Credentials struct {
	Username string
	Password string
	BaseURL  string
}

// MetricsRecorder は上流API呼び出しのメトリクス記録のインターフェース。
type MetricsRecorder interface {
	RecordUpstreamStatus(statusCode int)
	RecordUpstreamLatency(duration time.Duration)
	RecordRetry()
	RecordLogin()
}

// Client はDHL荷物APIの薄いラッパー。
//
// プロセス全体で1つのhttp.Clientを使い回し、コネクションプールを共有する。
// ログインは遅延実行され、最初のデータ要求時に1回だけ行われる。
// authenticatedフラグはmutexで保護され、自動的にfalseへ戻ることはない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    MetricsRecorder
	creds      Credentials
	retry      RetryPolicy

	// sleep は再試行間のバックオフ待機。テストで差し替え可能。
	sleep func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex
	authenticated bool
}

// NewClient はClientの新しいインスタンスを生成する。
// metricsはnilでもよく、その場合メトリクスは記録されない。
//
// httpClientにクッキージャーが無い場合はここで設定する。ログインの
// Set-Cookieを保持して後続リクエストへ送り返すことがセッション認証の
// 実体であり、ジャー無しではログインが後続の取得に反映されない。
func NewClient(httpClient *http.Client, logger *slog.Logger, metrics MetricsRecorder, creds Credentials) *Client {
	if httpClient.Jar == nil {
		if jar, err := cookiejar.New(nil); err == nil {
			httpClient.Jar = jar
		}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
		creds:      creds,
		retry:      DefaultRetryPolicy(),
		sleep:      sleepContext,
	}
}

// joinURL はベースURLとパスを、両者の前後スラッシュに関わらず
// ちょうど1つのスラッシュで連結する。
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// sleepContext はコンテキストのキャンセルを尊重して待機する。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Request はDHL APIへHTTPリクエストを発行し、JSONレスポンスボディを返す。
//
// ステータス500/502/503/504は一時的障害として指数バックオフ付きで
// 最大MaxAttempts回まで再試行する。それ以外の非2xxは即座にUpstreamErrorとして返す。
// 2xxレスポンスのボディがJSONとして不正な場合はProtocolErrorを返す（再試行しない）。
func (c *Client) Request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
	}

	reqURL := joinURL(c.creds.BaseURL, path)

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "Parcelman/1.0 DHL Reader")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			// ネットワークエラーも一時的障害として再試行する
			lastErr = fmt.Errorf("HTTPリクエストに失敗しました: %w", err)
			c.logger.Warn("DHL APIへのリクエストに失敗しました",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			if backoffErr := c.backoff(ctx, attempt); backoffErr != nil {
				return nil, backoffErr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if c.metrics != nil {
			c.metrics.RecordUpstreamStatus(resp.StatusCode)
			c.metrics.RecordUpstreamLatency(time.Since(start))
		}

		if readErr != nil {
			lastErr = fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", readErr)
			if backoffErr := c.backoff(ctx, attempt); backoffErr != nil {
				return nil, backoffErr
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if !json.Valid(respBody) {
				c.logger.Error("DHL APIが非JSONレスポンスを返しました",
					slog.String("method", method),
					slog.String("path", path),
					slog.Int("http_status", resp.StatusCode),
				)
				return nil, &ProtocolError{Reason: "非JSONレスポンス"}
			}
			return json.RawMessage(respBody), nil
		}

		if c.retry.IsRetryableStatus(resp.StatusCode) {
			lastErr = &UpstreamError{
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(respBody)),
			}
			c.logger.Warn("DHL APIが一時的エラーステータスを返しました",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("http_status", resp.StatusCode),
				slog.Int("attempt", attempt),
			)
			if backoffErr := c.backoff(ctx, attempt); backoffErr != nil {
				return nil, backoffErr
			}
			continue
		}

		// 再試行対象外のステータスは即座に伝播する
		c.logger.Error("DHL APIがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	return nil, lastErr
}

// backoff は次の試行まで待機する。最終試行後は待機せずlastErrの返却に任せる。
// attemptは1始まりの現在の試行番号。
func (c *Client) backoff(ctx context.Context, attempt int) error {
	if attempt >= c.retry.MaxAttempts {
		return nil
	}
	if c.metrics != nil {
		c.metrics.RecordRetry()
	}
	return c.sleep(ctx, c.retry.Delay(attempt-1))
}

// EnsureAuthenticated はセッションがログイン済みであることを保証する。
//
// 既にログイン済みの場合は何もしない。未ログインの場合は認証情報をJSONボディ
// としてログインエンドポイントへPOSTし、成功時にauthenticatedフラグを立てる。
// フラグはmutexで保護され、このコンポーネントがfalseへ戻すことはない。
// HTTP層の失敗はそのまま伝播し、空のログインレスポンスはAuthenticationErrorになる。
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authenticated {
		return nil
	}

	c.logger.Debug("DHL APIへログインします",
		slog.String("username", c.creds.Username),
	)

	payload := map[string]string{
		"email":    c.creds.Username,
		"password": c.creds.Password,
	}

	data, err := c.Request(ctx, http.MethodPost, loginPath, payload)
	if err != nil {
		return err
	}

	if isEmptyJSON(data) {
		return &AuthenticationError{Reason: "ログインがデータを返しませんでした"}
	}

	c.authenticated = true
	if c.metrics != nil {
		c.metrics.RecordLogin()
	}
	c.logger.Info("DHL APIへログインしました",
		slog.String("username", c.creds.Username),
	)
	return nil
}

// Authenticated はログイン済みかを返す。
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// isEmptyJSON はJSON値が「空」（null、空オブジェクト、空配列、空文字列、
// 0、false）かを判定する。ログインレスポンスの妥当性チェックに使用する。
func isEmptyJSON(data []byte) bool {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return true
	}
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// GetUser は認証済みユーザーのプロファイルを取得する。
// レスポンスのJSONを無加工のまま返す。
func (c *Client) GetUser(ctx context.Context) (json.RawMessage, error) {
	if err := c.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}
	return c.Request(ctx, http.MethodGet, userPath, nil)
}

// ListParcels は荷物コレクションを取得する。
// レスポンスにparcelsフィールドが無い場合は空スライスを返す。
func (c *Client) ListParcels(ctx context.Context) ([]model.Parcel, error) {
	if err := c.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	data, err := c.Request(ctx, http.MethodGet, parcelsPath, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Parcels []model.Parcel `json:"parcels"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("荷物一覧のデコードに失敗しました: %w", err)
	}

	if payload.Parcels == nil {
		return []model.Parcel{}, nil
	}
	return payload.Parcels, nil
}
