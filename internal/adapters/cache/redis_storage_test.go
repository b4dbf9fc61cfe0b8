package cache

import (
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testClient connects to AQUORA_TEST_REDIS_URL or skips
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("AQUORA_TEST_REDIS_URL")
	if url == "" {
		t.Skip("AQUORA_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisStorage_EmptyKeysSkipRedis(t *testing.T) {
	// an unreachable client proves nothing is sent for empty keys
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer client.Close()
	s := NewRedisStorage(client, "test:")

	if val, err := s.Get(""); val != nil || err != nil {
		t.Errorf("Get(\"\") = %v, %v", val, err)
	}
	if err := s.Set("", []byte("x"), time.Minute); err != nil {
		t.Errorf("Set(\"\") error = %v", err)
	}
	if err := s.Delete(""); err != nil {
		t.Errorf("Delete(\"\") error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRedisStorage_RoundTrip(t *testing.T) {
	s := NewRedisStorage(testClient(t), "aquora:test:")
	t.Cleanup(func() { s.Reset() })

	if err := s.Set("ip-1", []byte("3"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get("ip-1")
	if err != nil || string(got) != "3" {
		t.Fatalf("Get() = %q, %v; want 3", got, err)
	}

	if err := s.Delete("ip-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := s.Get("ip-1"); got != nil {
		t.Errorf("Get() after Delete = %q, want nil", got)
	}

	s.Set("a", []byte("1"), 0) //nolint:errcheck // test setup
	s.Set("b", []byte("1"), 0) //nolint:errcheck // test setup
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if got, _ := s.Get("a"); got != nil {
		t.Error("Reset() should remove prefixed keys")
	}
}
