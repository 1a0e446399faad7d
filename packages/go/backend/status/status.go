package status

import (
	"context"
	"errors"
	"time"
)

// Category is the visual class of a status message.
type Category string

const (
	Idle       Category = "idle"
	Listening  Category = "listening"
	Processing Category = "processing"
	Success    Category = "success"
	Error      Category = "error"
)

// Event is one status line shown to the user.
type Event struct {
	SessionID string    `json:"sessionId"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers status events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// MultiPublisher fans an event out to every publisher and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) error { return nil })

func channelName(sessionID string) string {
	return "voxbridge:session:" + sessionID + ":status"
}

func lastKey(sessionID string) string {
	return "voxbridge:session:" + sessionID + ":last"
}
