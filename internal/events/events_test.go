package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	channel string
	payload []byte
	err     error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisherEncodesEvent(t *testing.T) {
	fake := &fakeRedis{}
	pub := newRedisPublisher(fake, nil, "")
	at := time.Date(2024, 2, 2, 10, 0, 0, 0, time.FixedZone("x", 3600))
	event := New(ConsentRevoked, "consent_1_a", "company_1", "0xabc", "0xmocktx_1", at)

	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if fake.channel != "proofbench:consent-events" {
		t.Fatalf("unexpected channel %q", fake.channel)
	}
	var decoded Event
	if err := json.Unmarshal(fake.payload, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != ConsentRevoked || decoded.ConsentID != "consent_1_a" || decoded.OccurredAt.Location() != time.UTC {
		t.Fatalf("unexpected event: %+v", decoded)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRedisPublisherWrapsErrors(t *testing.T) {
	pub := newRedisPublisher(&fakeRedis{err: errors.New("boom")}, nil, "c")
	if err := pub.Publish(context.Background(), Event{}); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestMemoryPublisher(t *testing.T) {
	pub := NewMemoryPublisher()
	_ = pub.Publish(context.Background(), Event{ID: "1"})
	pub.FailWith(errors.New("down"))
	if err := pub.Publish(context.Background(), Event{ID: "2"}); err == nil {
		t.Fatal("expected injected failure")
	}
	if got := pub.Events(); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestRoutingKey(t *testing.T) {
	if got := RoutingKey("proofbench", ConsentMinted); got != "proofbench.consent.minted" {
		t.Fatalf("unexpected routing key %q", got)
	}
}

func TestConstructorsRequireAddress(t *testing.T) {
	if _, err := NewRabbitMQPublisher(RabbitMQConfig{}); err == nil {
		t.Fatal("expected error for empty URL")
	}
	if _, err := NewRedisPublisher(context.Background(), RedisConfig{}); err == nil {
		t.Fatal("expected error for empty address")
	}
}
