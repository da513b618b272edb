package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is only acceptable outside prod.
const DefaultJWTSecret = "supersecretkey"

type Config struct {
	Port string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int

	JWTSecret string

	// Env is "dev" (default) or "prod". When "prod", JWT_SECRET must be set and not the default.
	Env string

	// JWTExpireHours is the token lifetime in hours (default 24). Set via JWT_EXPIRE_HOURS.
	JWTExpireHours int

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json".
	LogFormat string

	// CORSAllowedOrigins is set via CORS_ALLOWED_ORIGINS (comma-separated). Empty means same-origin only.
	CORSAllowedOrigins []string

	// DataDir holds uploaded inspection images under DataDir/uploads.
	DataDir string

	// ReportTimezone is the IANA zone used for due dates, report headers and schedule matching.
	ReportTimezone string

	ZaloAPIBase      string
	ZaloPollInterval time.Duration

	// PublicBaseURL is used for QR links when no domain_url is stored in system config.
	PublicBaseURL string

	TunnelEnabled    bool
	TunnelBackendURL string
	CloudflaredPath  string
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()

	port := getEnv("PORT", "3000")
	return Config{
		Port: port,

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBName: getEnv("DB_NAME", "meddevice"),
		DBUser: getEnv("DB_USER", "meddevice"),
		DBPass: getEnv("DB_PASS", "meddevice"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		JWTSecret:      getEnv("JWT_SECRET", DefaultJWTSecret),
		Env:            getEnv("ENV", "dev"),
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),

		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),

		CORSAllowedOrigins: parseCORSOrigins(getEnv("CORS_ALLOWED_ORIGINS", "")),

		DataDir:        getEnv("DATA_DIR", "data"),
		ReportTimezone: getEnv("REPORT_TIMEZONE", "Asia/Ho_Chi_Minh"),

		ZaloAPIBase:      getEnv("ZALO_API_BASE", "https://bot-api.zaloplatforms.com"),
		ZaloPollInterval: time.Duration(getEnvInt("ZALO_POLL_INTERVAL", 1)) * time.Second,

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),

		TunnelEnabled:    getEnvBool("TUNNEL_ENABLED", false),
		TunnelBackendURL: getEnv("TUNNEL_BACKEND_URL", "https://nport.tuanngocptn.workers.dev"),
		CloudflaredPath:  getEnv("CLOUDFLARED_PATH", "cloudflared"),
	}
}

// Validate reports configuration that must stop startup.
func (c Config) Validate() error {
	if c.Env == "prod" && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return errors.New("JWT_SECRET must be set to a non-default value when ENV=prod")
	}
	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		return fmt.Errorf("REPORT_TIMEZONE %q: %w", c.ReportTimezone, err)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// Location returns the reporting timezone, falling back to UTC when it cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UploadsDir is where inspection images are stored.
func (c Config) UploadsDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// DatabaseURL is the postgres URL form used by the migrator.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

// parseCORSOrigins splits a comma-separated list of origins and trims spaces. Empty strings are omitted.
func parseCORSOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
