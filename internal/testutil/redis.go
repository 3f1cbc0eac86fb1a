//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the address of the test Redis instance from
// LLDPSYNC_TEST_REDIS_ADDR, defaulting to 127.0.0.1:6379.
func RedisAddr() string {
	if addr := os.Getenv("LLDPSYNC_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "127.0.0.1:6379"
}

// RedisTestDB is the database index integration tests write to.
const RedisTestDB = 9

// SkipIfNoRedis skips the test if the test Redis instance is not reachable.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: RedisTestDB})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", RedisAddr(), err)
	}
}

// RedisClient returns a client on the test database, flushed before use and
// closed on cleanup.
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()
	SkipIfNoRedis(t)

	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: RedisTestDB})
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		client.Close()
		t.Fatalf("failed to flush DB %d: %v", RedisTestDB, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}
