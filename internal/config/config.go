package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	// Local document store (SQLite file)
	LocalDBPath string
	// StaticDataFile seeds an empty store on first run
	StaticDataFile string
	// Backup medium
	BackupBackend       string // "sqlite" or "redis"
	BackupDBPath        string
	BackupQuotaBytes    int64 // 0 = unlimited
	BackupMaxValueBytes int64 // 0 = unlimited
	BackupSchedule      string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RedisKeyPrefix      string
	// Remote document mirror (Postgres)
	RemoteDBURL string
	TablePrefix string
	// Admin access
	AppMode string // "admin" or "reader"
	JWKSURL string
	// Logging
	LogDir      string
	LogMaxFiles int
	// Debug flags
	Debug bool
}

// Load reads configuration from the environment. When CONFIG_FILE names a
// YAML file of KEY: value pairs, its values act as defaults that the
// environment still overrides.
func Load() (*Config, error) {
	file := map[string]string{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		file, err = readConfigFile(path)
		if err != nil {
			return nil, err
		}
	}
	get := func(key, defaultValue string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		if value, ok := file[key]; ok && value != "" {
			return value
		}
		return defaultValue
	}

	env := get("ENVIRONMENT", "dev")
	cfg := &Config{
		Port:           get("PORT", "8080"),
		Environment:    env,
		CORSOrigins:    get("CORS_ORIGINS", "http://localhost:3000"),
		LocalDBPath:    get("LOCAL_DB_PATH", "data/dressline.db"),
		StaticDataFile: get("STATIC_DATA_FILE", "data/static-data.json"),
		BackupBackend:  get("BACKUP_BACKEND", "sqlite"),
		BackupDBPath:   get("BACKUP_DB_PATH", "data/dressline-backup.db"),
		BackupSchedule: get("BACKUP_SCHEDULE", "@every 10m"),
		RedisAddr:      get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  get("REDIS_PASSWORD", ""),
		RedisKeyPrefix: get("REDIS_KEY_PREFIX", "dressline:"),
		RemoteDBURL:    get("REMOTE_DB_URL", ""),
		TablePrefix:    getTablePrefix(env, get("TABLE_PREFIX", "")),
		AppMode:        get("APP_MODE", "admin"),
		JWKSURL:        get("JWKS_URL", ""),
		LogDir:         get("LOG_DIR", ""),
		Debug:          get("DEBUG", getDefaultDebug(env)) == "true",
	}

	var err error
	if cfg.BackupQuotaBytes, err = parseInt64("BACKUP_QUOTA_BYTES", get("BACKUP_QUOTA_BYTES", "0")); err != nil {
		return nil, err
	}
	if cfg.BackupMaxValueBytes, err = parseInt64("BACKUP_MAX_VALUE_BYTES", get("BACKUP_MAX_VALUE_BYTES", "0")); err != nil {
		return nil, err
	}
	redisDB, err := parseInt64("REDIS_DB", get("REDIS_DB", "0"))
	if err != nil {
		return nil, err
	}
	cfg.RedisDB = int(redisDB)
	maxFiles, err := parseInt64("LOG_MAX_FILES", get("LOG_MAX_FILES", "10"))
	if err != nil {
		return nil, err
	}
	cfg.LogMaxFiles = int(maxFiles)

	switch cfg.BackupBackend {
	case "sqlite", "redis":
	default:
		return nil, fmt.Errorf("BACKUP_BACKEND must be sqlite or redis, got %q", cfg.BackupBackend)
	}
	switch cfg.AppMode {
	case "admin", "reader":
	default:
		return nil, fmt.Errorf("APP_MODE must be admin or reader, got %q", cfg.AppMode)
	}

	return cfg, nil
}

func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return values, nil
}

func parseInt64(key, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
	}
	return n, nil
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the remote table prefix based on environment
func getTablePrefix(env, override string) string {
	if override != "" {
		return override
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}
