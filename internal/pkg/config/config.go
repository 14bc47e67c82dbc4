package config

import (
	"os"
	"time"
)

// Config carries the environment-driven settings. An empty MySQLDSN selects
// the in-memory store.
type Config struct {
	ServiceName    string
	Env            string
	HTTPAddr       string
	MySQLDSN       string
	LockWait       time.Duration
	AuditQueueSize int
}

func Load() Config {
	return Config{
		ServiceName:    getenvDefault("SERVICE_NAME", "orderstock"),
		Env:            getenvDefault("ENV", "dev"),
		HTTPAddr:       getenvDefault("HTTP_ADDR", ":8080"),
		MySQLDSN:       os.Getenv("MYSQL_DSN"),
		LockWait:       getenvDuration("LOCK_WAIT_TIMEOUT", 3*time.Second),
		AuditQueueSize: 256,
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
