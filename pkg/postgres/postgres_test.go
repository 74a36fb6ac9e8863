package postgres

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewFailsWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := New(ctx, Config{
		DSN:          "host=127.0.0.1 port=1 user=u password=p dbname=astro sslmode=disable connect_timeout=1",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	if err == nil {
		t.Fatal("expected ping to fail against a closed port")
	}
}
