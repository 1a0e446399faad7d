package main

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"

	"voxbridge/packages/go/backend/status"
	"voxbridge/packages/go/backend/translation"
)

func TestSessionStatusHandler_MirrorsRedis(t *testing.T) {
	t.Parallel()

	mini := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	publisher := status.NewRedisStatusPublisher(client)
	sessionID := uuid.NewString()
	ctx := context.Background()

	if err := publisher.Publish(ctx, status.Event{SessionID: sessionID, Category: status.Idle, Message: "Ready to translate", Timestamp: time.Now().UTC()}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	srv := newTestServer(t, translation.NewStubTranslator(nil), status.NewRedisStatusSubscriber(client))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sessions/" + sessionID + "/status"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	first := readStatus(t, ws)
	if first.Message != "Ready to translate" || first.Category != status.Idle {
		t.Fatalf("expected last event first, got %+v", first)
	}

	if err := publisher.Publish(ctx, status.Event{SessionID: sessionID, Category: status.Listening, Message: "Listening..."}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	second := readStatus(t, ws)
	if second.Message != "Listening..." || second.SessionID != sessionID {
		t.Fatalf("unexpected live event %+v", second)
	}
}

func TestSessionStatusHandler_NotConfigured(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, translation.NewStubTranslator(nil), nil)
	resp, err := http.Get(srv.URL + "/v1/sessions/" + uuid.NewString() + "/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSessionStatusHandler_InvalidID(t *testing.T) {
	t.Parallel()

	mini := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	srv := newTestServer(t, translation.NewStubTranslator(nil), status.NewRedisStatusSubscriber(client))
	resp, err := http.Get(srv.URL + "/v1/sessions/not-a-session/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

type fixedSubscriber struct {
	last   status.Event
	stream []status.Event
}

func (f fixedSubscriber) Last(context.Context, string) (status.Event, bool, error) {
	return f.last, true, nil
}

func (f fixedSubscriber) Subscribe(context.Context, string) (status.StatusStream, error) {
	events := make(chan status.Event, len(f.stream))
	for _, e := range f.stream {
		events <- e
	}
	return &fixedStream{events: events, errs: make(chan error)}, nil
}

type fixedStream struct {
	events chan status.Event
	errs   chan error
}

func (s *fixedStream) Events() <-chan status.Event { return s.events }
func (s *fixedStream) Errors() <-chan error        { return s.errs }
func (s *fixedStream) Close() error                { return nil }

func TestSessionStatusHandler_SkipsEventAlreadySentAsLast(t *testing.T) {
	t.Parallel()

	sessionID := uuid.NewString()
	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	listening := status.Event{SessionID: sessionID, Category: status.Listening, Message: "Listening...", Timestamp: at}
	done := status.Event{SessionID: sessionID, Category: status.Success, Message: "Translation complete!", Timestamp: at.Add(time.Second)}

	srv := newTestServer(t, translation.NewStubTranslator(nil), fixedSubscriber{last: listening, stream: []status.Event{listening, done}})
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/sessions/"+sessionID+"/status", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	if first := readStatus(t, ws); first.Message != listening.Message {
		t.Fatalf("expected last event first, got %+v", first)
	}
	if second := readStatus(t, ws); second.Message != done.Message {
		t.Fatalf("expected duplicate to be skipped, got %+v", second)
	}
}

func readStatus(t *testing.T, ws *websocket.Conn) status.Event {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event status.Event
	if err := ws.ReadJSON(&event); err != nil {
		t.Fatalf("read status: %v", err)
	}
	return event
}
