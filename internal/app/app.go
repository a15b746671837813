// Package app はアプリケーションの初期化と起動を担う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/parcelman/internal/config"
	"github.com/hitoshi/parcelman/internal/dhl"
	"github.com/hitoshi/parcelman/internal/handler"
	"github.com/hitoshi/parcelman/internal/logger"
	"github.com/hitoshi/parcelman/internal/mcpserver"
	"github.com/hitoshi/parcelman/internal/metrics"
	"github.com/hitoshi/parcelman/internal/middleware"
	"github.com/hitoshi/parcelman/internal/parcel"
)

// Init はアプリケーションの初期化を行う。
// .envファイルがあれば読み込んだうえで環境変数からConfigを構築し、
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envファイルの読み込み（存在しない場合は環境変数のみ使用）
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	// MCPモードでは標準出力をトランスポートに使うため、ログは標準エラーに出す
	if cmd == CommandMCP && w == nil {
		w = os.Stderr
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.DHLBaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMCP:
		return runMCP(cfg)
	default:
		return runServe(cfg)
	}
}

// buildParcelService はDHLクライアントと荷物サービスをワイヤリングする。
func buildParcelService(cfg *config.Config, collector *metrics.Collector) *parcel.Service {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	client := dhl.NewClient(httpClient, slog.Default(), collector, dhl.Credentials{
		Username: cfg.DHLUsername,
		Password: cfg.DHLPassword,
		BaseURL:  cfg.DHLBaseURL,
	})
	return parcel.NewService(client, slog.Default())
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. DHLクライアントとサービスのワイヤリング
	service := buildParcelService(cfg, collector)

	// 3. レートリミッターの初期化
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	// 4. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:         slog.Default(),
		RateLimiter:    rateLimiter,
		ParcelService:  service,
		UserService:    service,
		MetricsHandler: metrics.Handler(registry),
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMCP はMCPサーバーモードで起動する。
// 標準入出力をトランスポートとして荷物照会のリソースとツールを公開する。
func runMCP(cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	service := buildParcelService(cfg, collector)
	srv := mcpserver.NewServer(service, slog.Default(), cfg.ServerVersion)

	slog.Info("MCP server starting (stdio)",
		slog.String("version", cfg.ServerVersion),
	)

	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck failed with status %d", resp.StatusCode)
	}
	return nil
}
