package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestChannelName(t *testing.T) {
	got := channelName("session123")
	if got != "voxbridge:session:session123:status" {
		t.Fatalf("unexpected channel name: %s", got)
	}
}

func TestRedisStatusPublisherAndSubscriber(t *testing.T) {
	client, _ := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	subscriber := NewRedisStatusSubscriber(client)
	stream, err := subscriber.Subscribe(ctx, "session123")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer stream.Close()

	publisher := NewRedisStatusPublisher(client)
	event := Event{
		SessionID: "session123",
		Category:  Processing,
		Message:   "Translating...",
		Timestamp: time.Now().UTC(),
	}
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-stream.Events():
		if got.SessionID != event.SessionID || got.Category != Processing || got.Message != "Translating..." {
			t.Fatalf("unexpected event: %+v", got)
		}
	case err := <-stream.Errors():
		t.Fatalf("unexpected stream error: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for status event")
	}
}

func TestRedisStatusPublisherStoresLast(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	publisher := NewRedisStatusPublisher(client)
	subscriber := NewRedisStatusSubscriber(client)

	if _, ok, err := subscriber.Last(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected no last event, got ok=%v err=%v", ok, err)
	}

	for _, msg := range []string{"Translating...", "Translation complete!"} {
		if err := publisher.Publish(ctx, Event{SessionID: "s1", Category: Success, Message: msg}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	last, ok, err := subscriber.Last(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected last event, got ok=%v err=%v", ok, err)
	}
	if last.Message != "Translation complete!" {
		t.Fatalf("unexpected last event: %+v", last)
	}
	if ttl := mini.TTL(lastKey("s1")); ttl <= 0 {
		t.Fatalf("expected ttl on last event key, got %v", ttl)
	}
}

func TestRedisStatusPublisherRequiresSession(t *testing.T) {
	client, _ := newTestClient(t)

	if err := NewRedisStatusPublisher(client).Publish(context.Background(), Event{Message: "x"}); err == nil {
		t.Fatal("expected error for missing session id")
	}
}

func TestRedisStatusStreamCloses(t *testing.T) {
	client, _ := newTestClient(t)

	stream, err := NewRedisStatusSubscriber(client).Subscribe(context.Background(), "s2")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	select {
	case _, ok := <-stream.Events():
		if ok {
			t.Fatal("expected closed events channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestMultiPublisherJoinsErrors(t *testing.T) {
	t.Parallel()

	var got []string
	ok := PublisherFunc(func(_ context.Context, e Event) error {
		got = append(got, e.Message)
		return nil
	})
	failA := errors.New("a failed")
	failB := errors.New("b failed")

	multi := MultiPublisher{
		ok,
		PublisherFunc(func(context.Context, Event) error { return failA }),
		nil,
		PublisherFunc(func(context.Context, Event) error { return failB }),
		ok,
	}

	err := multi.Publish(context.Background(), Event{Message: "Ready to translate"})
	if !errors.Is(err, failA) || !errors.Is(err, failB) {
		t.Fatalf("expected joined errors, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected delivery to both healthy publishers, got %v", got)
	}
}
