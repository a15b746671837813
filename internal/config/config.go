// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/parcelman/internal/model"
)

// defaultBaseURL はDHL APIのデフォルトエンドポイント。
const defaultBaseURL = "https://my.dhlecommerce.nl/"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// DHL API
	DHLUsername string
	DHLPassword string
	DHLBaseURL  string

	// Server
	ServerPort    string
	ServerVersion string

	// HTTP
	RequestTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数（DHL_USERNAMEとDHL_PASSWORD）が未設定の場合はエラーを返す。
// 環境変数の読み取り以外の副作用は持たない。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DHLUsername = os.Getenv("DHL_USERNAME")
	if cfg.DHLUsername == "" {
		missing = append(missing, "DHL_USERNAME")
	}

	cfg.DHLPassword = os.Getenv("DHL_PASSWORD")
	if cfg.DHLPassword == "" {
		missing = append(missing, "DHL_PASSWORD")
	}

	if len(missing) > 0 {
		return nil, model.NewConfigMissingError(missing)
	}

	// Optional fields with defaults
	cfg.DHLBaseURL = getEnvString("DHL_BASE_URL", defaultBaseURL)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.ServerVersion = getEnvString("MCP_SERVER_VERSION", "0.0.0-dev")
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)

	// 末尾にスラッシュの無いベースURLも許容する
	cfg.DHLBaseURL = strings.TrimSpace(cfg.DHLBaseURL)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
