package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/catalog/internal/catalog"
	"github.com/hitoshi/catalog/internal/config"
	"github.com/hitoshi/catalog/internal/database"
	"github.com/hitoshi/catalog/internal/handler"
	"github.com/hitoshi/catalog/internal/logger"
	"github.com/hitoshi/catalog/internal/media"
	"github.com/hitoshi/catalog/internal/metrics"
	"github.com/hitoshi/catalog/internal/middleware"
	"github.com/hitoshi/catalog/internal/repository"
	"github.com/hitoshi/catalog/internal/security"
	"github.com/hitoshi/catalog/internal/worker/sweep"
)

const (
	dbPingTimeout   = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
// 戻り値のCloserはログファイルを閉じるためにプロセス終了時に呼ぶこと。
func Init(w io.Writer) (*config.Config, io.Closer, error) {
	// 1. 設定読み込み前にもログを使えるようにする
	logger.SetupDefault(w, logger.Options{Level: slog.LevelInfo})

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に従ってロガーを作り直す
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	closer := logger.SetupDefault(w, logger.Options{Level: level, File: cfg.LogFile})

	return cfg, closer, nil
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
			port = "5000"
		}
		return runHealthcheck(port)
	}

	cfg, logCloser, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer logCloser.Close()

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("store_backend", cfg.StoreBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSweep:
		return runSweep(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openBackend はSTORE_BACKENDに応じたドキュメントのバックエンドを開く。
func openBackend(ctx context.Context, cfg *config.Config) (repository.DocumentBackend, error) {
	switch cfg.StoreBackend {
	case config.BackendBolt:
		backend, err := repository.OpenBoltBackend(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		slog.Info("bolt store opened", slog.String("path", cfg.BoltPath))
		return backend, nil

	case config.BackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		return repository.NewPostgresBackend(db), nil

	default:
		slog.Info("file store selected", slog.String("path", cfg.DBFile))
		return repository.NewFileBackend(cfg.DBFile), nil
	}
}

// components はserveモードで組み立てる依存関係。
type components struct {
	store   *repository.Store
	limiter *middleware.RateLimiter
	handler http.Handler
}

// Close はレートリミッターを停止し、ストアを閉じる。
func (c *components) Close() error {
	c.limiter.Stop()
	return c.store.Close()
}

// buildComponents はストア、サービス、ルーターをワイヤリングする。
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. ストアとコンテンツディレクトリ
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	store := repository.NewStore(backend, collector)

	sink, err := media.NewSink(cfg.UploadsDir)
	if err != nil {
		store.Close()
		return nil, err
	}

	// 3. ドメインサービス
	var sanitizer security.Sanitizer
	if cfg.SanitizeDescription {
		sanitizer = security.NewDescriptionSanitizer()
	}
	service := catalog.NewService(store, sink, sanitizer, collector)

	// 4. ルーター
	limiter := middleware.NewRateLimiter(middleware.PerMinuteConfig(cfg.RateLimitGeneral, cfg.RateLimitUpload))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		Metrics:           collector,
		TrustProxy:        cfg.TrustProxy,

		Catalog:        service,
		Validate:       validator.New(),
		MaxUploadBytes: cfg.UploadMaxBytes,

		HealthChecker: handler.HealthCheckFunc(func(ctx context.Context) error {
			_, err := store.Load(ctx)
			return err
		}),
		MetricsHandler: metrics.Handler(registry),

		UploadsDir: sink.Dir(),
		StaticDir:  cfg.StaticDir,
	})

	return &components{
		store:   store,
		limiter: limiter,
		handler: router,
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			slog.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	ln, err := net.Listen("tcp", ":"+cfg.ServerPort)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", cfg.ServerPort, err)
	}

	return serve(ctx, ln, c.handler)
}

// serve はlnでHTTPサーバーを起動し、ctxがキャンセルされるまでブロックする。
func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", ln.Addr().String()))
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runSweep は孤立した画像ファイルの削除を1回実行する。
func runSweep(ctx context.Context, cfg *config.Config) error {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	store := repository.NewStore(backend, nil)
	defer store.Close()

	sink, err := media.NewSink(cfg.UploadsDir)
	if err != nil {
		return err
	}

	job := sweep.NewSweepJob(store, sink, nil, slog.Default())
	job.GracePeriod = cfg.SweepGracePeriod

	if _, err := job.Run(ctx); err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
