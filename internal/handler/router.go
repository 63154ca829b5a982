package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/catalog/internal/middleware"
)

// CatalogService はルーターに必要なサービスインターフェースをまとめたもの。
type CatalogService interface {
	ProductServiceInterface
	CategoryServiceInterface
	UserServiceInterface
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           middleware.HTTPMetricsRecorder
	TrustProxy        bool

	// サービス
	Catalog        CatalogService
	Validate       *validator.Validate
	MaxUploadBytes int64

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 静的ファイル
	UploadsDir string
	StaticDir  string
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → (RealIP) → Logging → Metrics → Recovery → SecurityHeaders → CORS
//
// /api 以下にはさらにRateLimit(General)を適用し、商品の作成・更新にはRateLimit(Upload)を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	validate := deps.Validate
	if validate == nil {
		validate = validator.New()
	}

	productHandler := NewProductHandler(deps.Catalog, validate, deps.MaxUploadBytes)
	categoryHandler := NewCategoryHandler(deps.Catalog)
	userHandler := NewUserHandler(deps.Catalog, validate)

	// --- 運用エンドポイント ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		uploadLimit := func(next http.Handler) http.Handler { return next }
		if deps.RateLimiter != nil {
			uploadLimit = deps.RateLimiter.UploadMiddleware()
		}

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.With(uploadLimit).Post("/", productHandler.CreateProduct)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", productHandler.GetProduct)
				r.With(uploadLimit).Put("/", productHandler.UpdateProduct)
				r.Delete("/", productHandler.DeleteProduct)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.ListCategories)
			r.Post("/", categoryHandler.CreateCategory)
			r.Delete("/{id}", categoryHandler.DeleteCategory)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.Post("/", userHandler.RecordLogin)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			middleware.WriteNotFound(w)
		})
	})

	// --- 画像 ---
	if deps.UploadsDir != "" {
		r.Get("/uploads/*", newUploadsHandler(deps.UploadsDir))
	}

	// --- フロントエンド ---
	if deps.StaticDir != "" {
		r.NotFound(newSPAHandler(deps.StaticDir))
	} else {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			middleware.WriteNotFound(w)
		})
	}

	return r
}
