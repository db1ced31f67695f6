package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/feedic/internal/metrics"
	"github.com/hitoshi/feedic/internal/middleware"
)

// ProxyHandlerInterface はフィード取得プロキシのハンドラーインターフェース。
type ProxyHandlerInterface interface {
	ParseFeed(w http.ResponseWriter, r *http.Request)
}

// HealthChecker はバックエンドストアの疎通確認のインターフェース。
// *sql.DB がそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger            *slog.Logger
	HealthChecker     HealthChecker // nil可（疎通確認なしで常にok）
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder // nil可
	MetricsGatherer   prometheus.Gatherer       // nil可（/metricsを公開しない）

	ProxyHandler        ProxyHandlerInterface
	IngestService       IngestServiceInterface
	SubscriptionService SubscriptionServiceInterface
	ArticleService      ArticleServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// グローバルなミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging
//
// CORSとレート制限はルートグループ単位で適用する。
// フィード取得プロキシ（/rss-parser）は全オリジン許可のCORS、
// /api配下は固定オリジンのCORSと一般レート制限
// （POST /api/feedsには登録専用レート制限を追加）を使う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))

	feedHandler := NewFeedHandler(deps.IngestService, deps.SubscriptionService)
	articleHandler := NewArticleHandler(deps.ArticleService)

	// --- フィード取得プロキシ（全オリジン許可） ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewPermissiveCORSMiddleware())
		r.Get("/rss-parser", deps.ProxyHandler.ParseFeed)
		// プリフライトはCORSミドルウェアが204で応答する
		r.Options("/rss-parser", func(w http.ResponseWriter, r *http.Request) {})
	})

	// --- アプリAPI（固定オリジンCORS + レート制限） ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 購読管理
		r.Route("/api/feeds", func(r chi.Router) {
			// POST /api/feeds - 購読登録（登録専用レート制限を追加）
			r.With(deps.RateLimiter.IngestMiddleware()).Post("/", feedHandler.CreateFeed)
			r.Get("/", feedHandler.ListFeeds)
			r.Delete("/{id}", feedHandler.DeleteFeed)
		})

		// 記事管理
		r.Route("/api/articles", func(r chi.Router) {
			r.Get("/", articleHandler.ListArticles)
			r.Post("/read-all", articleHandler.MarkAllRead)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", articleHandler.GetArticle)
				r.Put("/read", articleHandler.MarkRead)
			})
		})
	})

	// --- 運用エンドポイント ---
	r.Get("/health", newHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	return r
}

// newHealthHandler はヘルスチェックハンドラーを返す。
// GET /health
// checkerが指定された場合はDB疎通確認を行い、失敗時は503を返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := checker.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
