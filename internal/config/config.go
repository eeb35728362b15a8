package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var DefaultEnvConfig *envConfig

// Session store backends.
const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreSQLite    = "sqlite"
	StoreDatastore = "datastore"
)

type envConfig struct {
	// server config
	APP_PORT           string
	CORS_ALLOW_ORIGINS []string
	SHUTDOWN_TIMEOUT   time.Duration
	// wage config
	RATE_TABLE_PATH string
	ROUNDING_MODE   string
	// session store config
	SESSION_STORE string
	SQLITE_PATH   string
	// database config
	DB_HOST              string
	DB_PORT              int
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_CONN_MAX_LIFETIME time.Duration
	DB_MAX_IDLE_CONNS    int
	DB_MAX_OPEN_CONNS    int
	// datastore config
	DATASTORE_PROJECT_ID string
	// history config
	HISTORY_ENABLED bool
	ELASTIC_URL     string
	ELASTIC_INDEX   string
	HISTORY_LIMIT   int
	// logger config
	LOG_FILE_PATH string
	LOG_LEVEL     string
}

// LoadEnvConfig reads the optional .env file and the process environment
// into DefaultEnvConfig.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	DefaultEnvConfig = &envConfig{
		APP_PORT:             getEnvString("APP_PORT", "8080"),
		CORS_ALLOW_ORIGINS:   getEnvList("CORS_ALLOW_ORIGINS", []string{"*"}),
		SHUTDOWN_TIMEOUT:     getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RATE_TABLE_PATH:      getEnvString("RATE_TABLE_PATH", ""),
		ROUNDING_MODE:        getEnvString("ROUNDING_MODE", "half_up"),
		SESSION_STORE:        strings.ToLower(getEnvString("SESSION_STORE", StoreMemory)),
		SQLITE_PATH:          getEnvString("SQLITE_PATH", "wagecalc.db"),
		DB_HOST:              getEnvString("DB_HOST", "localhost"),
		DB_PORT:              getEnvInt("DB_PORT", 5432),
		DB_USER:              getEnvString("DB_USER", "postgres"),
		DB_PASSWORD:          getEnvString("DB_PASSWORD", "postgres"),
		DB_NAME:              getEnvString("DB_NAME", "postgres"),
		DB_SSL_MODE:          getEnvString("DB_SSL_MODE", "disable"),
		DB_CONN_MAX_LIFETIME: getEnvDuration("DB_CONN_MAX_LIFETIME", 20*time.Minute),
		DB_MAX_IDLE_CONNS:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DB_MAX_OPEN_CONNS:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
		DATASTORE_PROJECT_ID: getEnvString("DATASTORE_PROJECT_ID", ""),
		HISTORY_ENABLED:      getEnvBool("HISTORY_ENABLED", true),
		ELASTIC_URL:          getEnvString("ELASTIC_URL", ""),
		ELASTIC_INDEX:        getEnvString("ELASTIC_INDEX", "wage_calculations"),
		HISTORY_LIMIT:        getEnvInt("HISTORY_LIMIT", 100),
		LOG_FILE_PATH:        getEnvString("LOG_FILE_PATH", ""),
		LOG_LEVEL:            getEnvString("LOG_LEVEL", "info"),
	}
	return nil
}

func getEnvString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if i, err := strconv.Atoi(val); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
