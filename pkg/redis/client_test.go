package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/stayregistry-backend/pkg/config"
)

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	set, err := client.SetNX(ctx, "k", "v", time.Minute)
	if err != nil || !set {
		t.Fatalf("expected first SetNX to succeed, got set=%v err=%v", set, err)
	}
	set, err = client.SetNX(ctx, "k", "other", time.Minute)
	if err != nil || set {
		t.Fatalf("expected second SetNX to be rejected, got set=%v err=%v", set, err)
	}
	got, err := client.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("expected original value, got %q err=%v", got, err)
	}

	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "k"); err != ErrNil {
		t.Fatalf("expected ErrNil after delete, got %v", err)
	}
}

func TestPublishRecordsChannel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	receivers, err := client.Publish(ctx, "sr:events:stay_settled", []byte(`{"amount":1000}`))
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if receivers != 1 {
		t.Fatalf("expected one receiver, got %d", receivers)
	}
	if len(mock.published) != 1 || mock.published[0].channel != "sr:events:stay_settled" {
		t.Fatalf("unexpected publish calls %+v", mock.published)
	}

	if _, err := client.Publish(ctx, "", []byte("x")); err == nil {
		t.Fatalf("expected error for empty channel")
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "sr:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.IdempotencyKey("scope", ""); got != "sr:idempotency:scope" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 4 {
		t.Fatalf("unexpected options %+v", opts)
	}
	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://:secret@cache:6380/3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 3 || opts.Password != "secret" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type publishCall struct {
	channel string
	message any
}

type mockCmdable struct {
	data      map[string]string
	counters  map[string]int64
	ttls      map[string]time.Duration
	published []publishCall
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:     make(map[string]string),
		counters: make(map[string]int64),
		ttls:     make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	m.published = append(m.published, publishCall{channel: channel, message: message})
	return redis.NewIntResult(1, nil)
}

func TestIncrWithTTLSetsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, "sr:ratelimit:ip:1.2.3.4", time.Minute)
		if err != nil || got != want {
			t.Fatalf("expected count %d, got %d err=%v", want, got, err)
		}
		if want == 1 {
			mock.ttls["sr:ratelimit:ip:1.2.3.4"] = 0
		}
	}
	if ttl := mock.ttls["sr:ratelimit:ip:1.2.3.4"]; ttl != 0 {
		t.Fatalf("expiry must only be set on the first increment, got %s", ttl)
	}
}

func TestKeyNamespacesParts(t *testing.T) {
	if got := Key("cron-worker", "lock", "prod"); got != "sr:cron-worker:lock:prod" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := Key(); got != "sr" {
		t.Fatalf("expected bare namespace, got %s", got)
	}
}

func TestNilClientReportsNotInitialized(t *testing.T) {
	var client *Client
	if _, err := client.Get(context.Background(), "k"); err != errNotInitialized {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}
