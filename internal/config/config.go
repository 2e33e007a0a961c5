// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Required variables are enforced by must()
// and missing values cause the program to exit with a fatal log message.
type Config struct {
	Env                 string        // application environment (e.g. "dev", "prod")
	Port                string        // HTTP port to listen on
	DBUser              string        // database username
	DBPass              string        // database password (optional)
	DBHost              string        // database host address
	DBPort              string        // database port number
	DBName              string        // database name
	JWTSecret           string        // secret used to verify access tokens
	EventServiceBaseURL string        // base URL of the external event catalog
	KafkaBrokers        []string      // broker addresses for booking events
	KafkaTopic          string        // topic for booking state changes
	KafkaGroupID        string        // consumer group for the audit consumer
	LockTTL             time.Duration // lease duration for per-event locks
	FullPolicy          string        // what Create does at capacity: reject|waitlist
}

// Load reads configuration from the environment and returns a Config.
func Load() Config {
	cfg := Config{
		Env:                 must("APP_ENV"),
		Port:                must("APP_PORT"),
		DBUser:              must("DB_USER"),
		DBPass:              os.Getenv("DB_PASS"), // empty allowed
		DBHost:              must("DB_HOST"),
		DBPort:              must("DB_PORT"),
		DBName:              must("DB_NAME"),
		JWTSecret:           must("JWT_SECRET"),
		EventServiceBaseURL: must("EVENT_SERVICE_BASE_URL"),
		KafkaBrokers:        splitList(envStr("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:          envStr("KAFKA_TOPIC", "booking-events"),
		KafkaGroupID:        envStr("KAFKA_GROUP_ID", "booking-audit"),
		LockTTL:             envDur("LOCK_TTL", 10*time.Second),
		FullPolicy:          envStr("ADMISSION_FULL_POLICY", "reject"),
	}
	if cfg.FullPolicy != "reject" && cfg.FullPolicy != "waitlist" {
		log.Fatalf("invalid ADMISSION_FULL_POLICY: %q (want reject or waitlist)", cfg.FullPolicy)
	}
	if cfg.LockTTL <= 0 {
		log.Fatalf("LOCK_TTL must be positive, got %s", cfg.LockTTL)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
