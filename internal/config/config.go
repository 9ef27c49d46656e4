package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var DefaultEnvConfig *envConfig

type envConfig struct {
	// server config
	APP_PORT         string
	SHUTDOWN_TIMEOUT time.Duration
	STATIC_DIR       string
	// logger config
	LOG_FILE_PATH string
	LOG_LEVEL     string
	// mongodb config
	MONGODB_URI        string
	MONGODB_DATABASE   string
	MONGODB_COLLECTION string
	MONGODB_TIMEOUT    time.Duration
	MONGODB_MAX_POOL   int
	// datastore config
	DATASTORE_PROJECT_ID string
	DATASTORE_NAMESPACE  string
	// file backend config
	DATA_FILE string
	// seed the sample employees at startup when the store is empty
	SEED_ON_START bool
	// search mirror config
	ELASTICSEARCH_URL   string
	ELASTICSEARCH_INDEX string
	// export config
	EXPORT_CONFIG_PATH string
}

// LoadEnvConfig reads .env when present and fills DefaultEnvConfig.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	DefaultEnvConfig = &envConfig{
		APP_PORT:             getEnvString("APP_PORT", "3000"),
		SHUTDOWN_TIMEOUT:     getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		STATIC_DIR:           getEnvString("STATIC_DIR", ""),
		LOG_FILE_PATH:        getEnvString("LOG_FILE_PATH", ""),
		LOG_LEVEL:            getEnvString("LOG_LEVEL", "info"),
		MONGODB_URI:          getEnvString("MONGODB_URI", ""),
		MONGODB_DATABASE:     getEnvString("MONGODB_DATABASE", "employee_directory"),
		MONGODB_COLLECTION:   getEnvString("MONGODB_COLLECTION", "employees"),
		MONGODB_TIMEOUT:      getEnvDuration("MONGODB_TIMEOUT", 10*time.Second),
		MONGODB_MAX_POOL:     getEnvInt("MONGODB_MAX_POOL", 100),
		DATASTORE_PROJECT_ID: getEnvString("DATASTORE_PROJECT_ID", ""),
		DATASTORE_NAMESPACE:  getEnvString("DATASTORE_NAMESPACE", ""),
		DATA_FILE:            getEnvString("DATA_FILE", "data/employees.json"),
		SEED_ON_START:        getEnvBool("SEED_ON_START", false),
		ELASTICSEARCH_URL:    getEnvString("ELASTICSEARCH_URL", ""),
		ELASTICSEARCH_INDEX:  getEnvString("ELASTICSEARCH_INDEX", "employees"),
		EXPORT_CONFIG_PATH:   getEnvString("EXPORT_CONFIG_PATH", ""),
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
