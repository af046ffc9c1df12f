// Package config loads application configuration from environment
// variables. Values arrive either from the process environment or from
// a .env file loaded by the entrypoint.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Database settings are required; the rest
// fall back to development defaults.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	StorageDir     string // directory attachment blobs are written to
	PublicBaseURL  string // externally reachable origin, used to derive attachment URLs
	MaxUploadBytes int64  // per-file attachment size cap
	LogDir         string // directory the event consumer writes its audit log to
	ConsumerOn     bool   // whether to run the ticket event consumer in-process
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	port := getenv("APP_PORT", "8080")
	return Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           port,
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		StorageDir:     getenv("STORAGE_DIR", "storage"),
		PublicBaseURL:  getenv("PUBLIC_BASE_URL", "http://localhost:"+port),
		MaxUploadBytes: int64(atoi(getenv("MAX_UPLOAD_BYTES", "10485760"))), // 10 MB
		LogDir:         getenv("LOG_DIR", "logs"),
		ConsumerOn:     getenv("TICKET_CONSUMER_ENABLED", "true") == "true",
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}
