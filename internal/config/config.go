package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the reader's tunables. Pagination size, list TTL and
// the request cap are deliberately configuration, not behavior.
type Config struct {
	DBPath          string
	LogPath         string
	Category        string
	ListTTL         time.Duration
	RequestTimeout  time.Duration
	MaxConcurrent   int
	PageSize        int
	AutoExpandDepth int
}

// Default returns the baseline configuration. The item store lives in
// memory; nothing survives a restart.
func Default() Config {
	return Config{
		DBPath:          ":memory:",
		LogPath:         filepath.Join(stateDir(), "lurk.log"),
		Category:        "top",
		ListTTL:         60 * time.Second,
		RequestTimeout:  10 * time.Second,
		MaxConcurrent:   10,
		PageSize:        30,
		AutoExpandDepth: 3,
	}
}

// FromEnv loads Default overridden by LURK_* environment variables,
// reading a .env file first if one is present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("LURK_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LURK_LOG_PATH"); v != "" {
		cfg.LogPath = v
	}
	if v := os.Getenv("LURK_CATEGORY"); v != "" {
		cfg.Category = v
	}
	if v := os.Getenv("LURK_LIST_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ListTTL = d
		}
	}
	if v := os.Getenv("LURK_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if n := intEnv("LURK_MAX_CONCURRENT"); n > 0 {
		cfg.MaxConcurrent = n
	}
	if n := intEnv("LURK_PAGE_SIZE"); n > 0 {
		cfg.PageSize = n
	}
	if n := intEnv("LURK_AUTO_EXPAND_DEPTH"); n > 0 {
		cfg.AutoExpandDepth = n
	}
	return cfg
}

func intEnv(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func stateDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "lurk")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lurk")
}
