package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "orderstock", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.LockWait)
	assert.Empty(t, cfg.MySQLDSN)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "orders-dev")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOCK_WAIT_TIMEOUT", "250ms")
	t.Setenv("MYSQL_DSN", "root@tcp(localhost)/orders")

	cfg := Load()
	assert.Equal(t, "orders-dev", cfg.ServiceName)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.LockWait)
	assert.Equal(t, "root@tcp(localhost)/orders", cfg.MySQLDSN)
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("LOCK_WAIT_TIMEOUT", "soon")
	assert.Equal(t, 3*time.Second, Load().LockWait)
}
