package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// lastEventTTL bounds how long the most recent status survives a session.
const lastEventTTL = 10 * time.Minute

// RedisStatusPublisher mirrors status events to a Redis channel so observers
// outside the session can follow it.
type RedisStatusPublisher struct {
	client goredis.UniversalClient
}

func NewRedisStatusPublisher(client goredis.UniversalClient) *RedisStatusPublisher {
	return &RedisStatusPublisher{client: client}
}

func (p *RedisStatusPublisher) Publish(ctx context.Context, event Event) error {
	if event.SessionID == "" {
		return fmt.Errorf("session id required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, lastKey(event.SessionID), payload, lastEventTTL)
	pipe.Publish(ctx, channelName(event.SessionID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

type RedisStatusSubscriber struct {
	client goredis.UniversalClient
}

func NewRedisStatusSubscriber(client goredis.UniversalClient) *RedisStatusSubscriber {
	return &RedisStatusSubscriber{client: client}
}

// Last returns the most recent event published for the session, if any.
func (s *RedisStatusSubscriber) Last(ctx context.Context, sessionID string) (Event, bool, error) {
	payload, err := s.client.Get(ctx, lastKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, fmt.Errorf("redis get: %w", err)
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, false, fmt.Errorf("decode status event: %w", err)
	}
	return event, true, nil
}

func (s *RedisStatusSubscriber) Subscribe(ctx context.Context, sessionID string) (StatusStream, error) {
	pubsub := s.client.Subscribe(ctx, channelName(sessionID))
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	stream := &redisStatusStream{
		pubsub:    pubsub,
		events:    make(chan Event, 8),
		errors:    make(chan error, 1),
		done:      make(chan struct{}),
		sessionID: sessionID,
	}
	go stream.run(ctx)
	return stream, nil
}

type StatusStream interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

type redisStatusStream struct {
	pubsub    *goredis.PubSub
	events    chan Event
	errors    chan error
	done      chan struct{}
	closeOnce sync.Once
	sessionID string
}

func (s *redisStatusStream) Events() <-chan Event {
	return s.events
}

func (s *redisStatusStream) Errors() <-chan error {
	return s.errors
}

func (s *redisStatusStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

func (s *redisStatusStream) run(ctx context.Context) {
	defer close(s.errors)
	defer close(s.events)
	defer func() { _ = s.Close() }()

	messages := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.reportError(fmt.Errorf("decode status event: %w", err))
				continue
			}
			if event.SessionID == "" {
				event.SessionID = s.sessionID
			}
			select {
			case s.events <- event:
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisStatusStream) reportError(err error) {
	select {
	case s.errors <- err:
	default:
	}
}
