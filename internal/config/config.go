package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	// ErrStoreURLMissing 在未配置 STORE_URL 时返回。
	ErrStoreURLMissing = errors.New("STORE_URL is required")
	// ErrStoreAPIKeyMissing 在未配置 STORE_API_KEY 时返回。
	ErrStoreAPIKeyMissing = errors.New("STORE_API_KEY is required")
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	StoreURL          string
	StoreAPIKey       string
	SessionSecret     string
	GinMode           string
	LogLevel          string
	LogDevelopment    bool
	StoreTimeout      time.Duration
	LeadPacing        time.Duration
	LeadDisplay       time.Duration
	AdminWorkspaceTTL time.Duration
	AdminWorkspaces   int
	SiteName          string
}

// LoadDotEnv 依次读取 .env.local 与 .env；已存在的环境变量不会被覆盖，缺失的文件会被忽略。
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := env("PORT", "8080")

	return AppConfig{
		ListenAddr:        env("LISTEN_ADDR", fmt.Sprintf(":%s", port)),
		Port:              port,
		StoreURL:          env("STORE_URL", ""),
		StoreAPIKey:       env("STORE_API_KEY", ""),
		SessionSecret:     env("SESSION_SECRET", "nexsite-dev-secret"),
		GinMode:           env("GIN_MODE", "release"),
		LogLevel:          env("LOG_LEVEL", "info"),
		LogDevelopment:    envBool("LOG_DEVELOPMENT", false),
		StoreTimeout:      envDuration("STORE_TIMEOUT", 5*time.Second),
		LeadPacing:        envDuration("LEAD_PACING", 1500*time.Millisecond),
		LeadDisplay:       envDuration("LEAD_DISPLAY", 5*time.Second),
		AdminWorkspaceTTL: envDuration("ADMIN_WORKSPACE_TTL", 2*time.Hour),
		AdminWorkspaces:   envInt("ADMIN_WORKSPACE_LIMIT", 64),
		SiteName:          env("SITE_NAME", "Nex Solutions"),
	}
}

// Validate 检查必填项，缺失时返回合并后的错误。
func (c AppConfig) Validate() error {
	var errs []error
	if c.StoreURL == "" {
		errs = append(errs, ErrStoreURLMissing)
	}
	if c.StoreAPIKey == "" {
		errs = append(errs, ErrStoreAPIKeyMissing)
	}
	return errors.Join(errs...)
}

func env(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(env(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(env(key, ""))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := env(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
