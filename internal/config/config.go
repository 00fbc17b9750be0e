// Package config читает настройки из флагов; переменные окружения задают значения по умолчанию.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Виды хранилища блога.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMongo    = "mongo"
)

// Server - настройки блога.
type Server struct {
	Port           string
	Storage        string
	DatabaseURL    string
	SQLitePath     string
	MongoURI       string
	MongoDatabase  string
	CacheSize      int
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
}

// Sidecar - настройки сервиса логирования user-agent.
type Sidecar struct {
	Port        string
	Token       string
	LogPath     string
	PublicDir   string
	Rate        float64
	Burst       int
	CORSOrigins []string
	LogLevel    string
	LogFormat   string
}

// LoadServer разбирает args (без имени программы).
func LoadServer(args []string, getenv func(string) string) (*Server, error) {
	env := envOrDefault(getenv)
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	var c Server
	var cacheSize, timeout string
	fs.StringVar(&c.Port, "port", env("PORT", "3000"), "HTTP port")
	fs.StringVar(&c.Storage, "storage", env("STORAGE", StorageMemory), "Storage type (memory, postgres, sqlite or mongo)")
	fs.StringVar(&c.DatabaseURL, "database-url", env("DATABASE_URL", ""), "PostgreSQL DSN")
	fs.StringVar(&c.SQLitePath, "sqlite-path", env("SQLITE_PATH", "./data/blog.db"), "SQLite database file")
	fs.StringVar(&c.MongoURI, "mongo-uri", env("MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection string")
	fs.StringVar(&c.MongoDatabase, "mongo-database", env("MONGO_DATABASE", "blogAPI"), "MongoDB database name")
	fs.StringVar(&cacheSize, "cache-size", env("CACHE_SIZE", "256"), "Post lookup cache entries, 0 disables")
	fs.StringVar(&timeout, "request-timeout", env("REQUEST_TIMEOUT", "10s"), "Per-request timeout")
	fs.StringVar(&c.LogLevel, "log-level", env("LOG_LEVEL", "info"), "Log level")
	fs.StringVar(&c.LogFormat, "log-format", env("LOG_FORMAT", "json"), "Log format (json or console)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if c.CacheSize, err = strconv.Atoi(cacheSize); err != nil || c.CacheSize < 0 {
		return nil, fmt.Errorf("invalid cache size %q", cacheSize)
	}
	if c.RequestTimeout, err = time.ParseDuration(timeout); err != nil || c.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid request timeout %q", timeout)
	}

	switch c.Storage {
	case StorageMemory, StorageSQLite, StorageMongo:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL must be set for postgres storage")
		}
	default:
		return nil, fmt.Errorf("unknown storage type %q", c.Storage)
	}
	return &c, nil
}

// LoadSidecar разбирает args (без имени программы).
func LoadSidecar(args []string, getenv func(string) string) (*Sidecar, error) {
	env := envOrDefault(getenv)
	fs := flag.NewFlagSet("uasidecar", flag.ContinueOnError)

	var c Sidecar
	var rate, burst, origins string
	fs.StringVar(&c.Port, "port", env("PORT", "5000"), "HTTP port")
	fs.StringVar(&c.Token, "token", env("UA_TOKEN", "123"), "Access token for /user routes")
	fs.StringVar(&c.LogPath, "log-path", env("UA_LOG_PATH", "./loggerDB.json"), "User-agent log file")
	fs.StringVar(&c.PublicDir, "public-dir", env("UA_PUBLIC_DIR", "./public"), "Directory with index.html")
	fs.StringVar(&rate, "rate", env("UA_RATE", "5"), "Requests per second per client, 0 disables")
	fs.StringVar(&burst, "burst", env("UA_BURST", "10"), "Burst size per client")
	fs.StringVar(&origins, "cors-origins", env("CORS_ORIGINS", "*"), "Comma separated allowed origins")
	fs.StringVar(&c.LogLevel, "log-level", env("LOG_LEVEL", "info"), "Log level")
	fs.StringVar(&c.LogFormat, "log-format", env("LOG_FORMAT", "json"), "Log format (json or console)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if c.Rate, err = strconv.ParseFloat(rate, 64); err != nil || c.Rate < 0 {
		return nil, fmt.Errorf("invalid rate %q", rate)
	}
	if c.Burst, err = strconv.Atoi(burst); err != nil || c.Burst < 1 {
		return nil, fmt.Errorf("invalid burst %q", burst)
	}
	if c.Token == "" {
		return nil, errors.New("UA_TOKEN must not be empty")
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.CORSOrigins = append(c.CORSOrigins, o)
		}
	}
	return &c, nil
}

func envOrDefault(getenv func(string) string) func(key, def string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	return func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
}
