package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// ストアのバックエンド種別
const (
	BackendFile     = "file"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
)

// DotEnvFile は起動時に読み込む.envファイルのパス。
const DotEnvFile = ".env"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreBackend string
	DBFile       string
	BoltPath     string
	DatabaseURL  string

	// Media
	UploadsDir       string
	UploadMaxBytes   int64
	SweepGracePeriod time.Duration

	// Content
	SanitizeDescription bool

	// Rate Limit
	RateLimitGeneral int
	RateLimitUpload  int

	// Logging
	LogLevel string
	LogFile  string

	// Server
	ServerPort string
	StaticDir  string
	TrustProxy bool

	// CORS
	CORSAllowedOrigin string
}

// Load はカレントディレクトリの.envを読み込んだうえで、環境変数からConfigを読み込む。
// 既に設定されている環境変数は.envの値で上書きしない。
func Load() (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	return FromEnv()
}

// loadDotEnv はpathの.envファイルを環境変数に読み込む。ファイルがなければ何もしない。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// FromEnv は環境変数からConfigを読み込む。
// STORE_BACKENDが不正な場合や、postgresでDATABASE_URLが未設定の場合はエラーを返す。
func FromEnv() (*Config, error) {
	cfg := &Config{}

	cfg.StoreBackend = strings.ToLower(getEnvString("STORE_BACKEND", BackendFile))
	switch cfg.StoreBackend {
	case BackendFile, BackendBolt, BackendPostgres:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be one of %s, %s, %s: got %q",
			BackendFile, BackendBolt, BackendPostgres, cfg.StoreBackend)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}

	// Optional fields with defaults
	cfg.DBFile = getEnvString("DB_FILE", "data/db.json")
	cfg.BoltPath = getEnvString("BOLT_PATH", "data/catalog.db")
	cfg.UploadsDir = getEnvString("UPLOADS_DIR", "uploads")
	cfg.UploadMaxBytes = getEnvInt64("UPLOAD_MAX_BYTES", 10<<20)
	cfg.SweepGracePeriod = getEnvDuration("SWEEP_GRACE_PERIOD", time.Hour)
	cfg.SanitizeDescription = getEnvBool("SANITIZE_DESCRIPTION", true)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 30)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFile = getEnvString("LOG_FILE", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "5000")
	cfg.StaticDir = getEnvString("STATIC_DIR", "")
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.UploadMaxBytes <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_BYTES must be positive: got %d", cfg.UploadMaxBytes)
	}
	if cfg.RateLimitGeneral <= 0 || cfg.RateLimitUpload <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_GENERAL and RATE_LIMIT_UPLOAD must be positive")
	}

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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

// getEnvBool は "true", "1", "false", "0" などを真偽値として解釈する。
func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := cast.ToBoolE(strings.ToLower(v))
	if err != nil {
		return defaultVal
	}
	return b
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
