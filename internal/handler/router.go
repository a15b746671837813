package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/parcelman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger      *slog.Logger
	RateLimiter *middleware.RateLimiter

	// サービス
	ParcelService ParcelServiceInterface
	UserService   UserServiceInterface

	// メトリクス公開用ハンドラー（省略可）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → RateLimitMiddleware
//
// ヘルスチェックとメトリクスはミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	parcelHandler := NewParcelHandler(deps.ParcelService)
	userHandler := NewUserHandler(deps.UserService)

	// --- 運用系のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	// ミドルウェアスタック: Recovery → Logging → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
		r.Use(deps.RateLimiter.Middleware())

		// 荷物照会
		r.Route("/api/parcels", func(r chi.Router) {
			r.Get("/", parcelHandler.ListParcels)
			r.Get("/filter", parcelHandler.FilterParcels)
			r.Get("/{identifier}", parcelHandler.GetParcelSummary)
		})

		// ユーザープロフィール
		r.Get("/api/user/profile", userHandler.GetProfile)
	})

	return r
}
