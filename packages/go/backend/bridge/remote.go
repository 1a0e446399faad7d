package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"voxbridge/packages/go/backend/asr"
	"voxbridge/packages/go/backend/output"
	"voxbridge/packages/go/backend/status"
	"voxbridge/packages/go/backend/tts"
)

const remoteEventBuffer = 32

// Recognizer returns an asr.Recognizer backed by the page's speech
// recognition engine.
func (c *Conn) Recognizer() asr.Recognizer {
	return remoteRecognizer{conn: c}
}

// Synthesizer returns a tts.Synthesizer backed by the page's speech
// synthesis engine.
func (c *Conn) Synthesizer() tts.Synthesizer {
	return remoteSynthesizer{conn: c}
}

// Publish forwards a status event to the page.
func (c *Conn) Publish(ctx context.Context, event status.Event) error {
	return c.Send(ctx, ServerStatus{Type: TypeStatus, Category: event.Category, Message: event.Message})
}

// Render forwards the view to the page.
func (c *Conn) Render(ctx context.Context, view output.View) error {
	return c.Send(ctx, ServerView{Type: TypeView, View: view})
}

func (c *Conn) healthy() (bool, string) {
	select {
	case <-c.closed:
		return false, "page disconnected"
	default:
		return true, "page connected"
	}
}

type remoteRecognizer struct {
	conn *Conn
}

func (r remoteRecognizer) Start(ctx context.Context, locale string) (asr.Session, error) {
	c := r.conn
	s := &remoteSession{
		id:     uuid.NewString(),
		conn:   c,
		events: make(chan asr.Event, remoteEventBuffer),
	}

	c.mu.Lock()
	c.recognitions[s.id] = s
	c.mu.Unlock()

	if err := c.Send(ctx, ServerRecognitionStart{Type: TypeRecognitionStart, Session: s.id, Lang: locale}); err != nil {
		c.takeRecognition(s.id)
		if errors.Is(err, ErrConnClosed) {
			return nil, fmt.Errorf("%w: %w", asr.ErrUnavailable, err)
		}
		return nil, err
	}
	return s, nil
}

func (r remoteRecognizer) Health() asr.HealthStatus {
	ok, msg := r.conn.healthy()
	return asr.HealthStatus{Healthy: ok, Message: msg}
}

// remoteSession relays one page recognition run. The page reports events
// tagged with the session id; ended closes the event channel.
type remoteSession struct {
	id     string
	conn   *Conn
	events chan asr.Event

	mu     sync.Mutex
	closed bool
}

func (s *remoteSession) Events() <-chan asr.Event {
	return s.events
}

func (s *remoteSession) Stop() error {
	return s.conn.Send(context.Background(), ServerRecognitionStop{Type: TypeRecognitionStop, Session: s.id})
}

func (s *remoteSession) Abort() error {
	s.conn.takeRecognition(s.id)
	s.finishSilently()
	return s.conn.Send(context.Background(), ServerRecognitionStop{Type: TypeRecognitionAbort, Session: s.id})
}

func (s *remoteSession) deliver(ev asr.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.conn.logger.Warnw("dropping recognition event", "session", s.id, "kind", ev.Kind)
	}
}

// finish delivers ended and closes the session.
func (s *remoteSession) finish() {
	s.deliver(asr.Event{Kind: asr.EventEnded})
	s.finishSilently()
}

func (s *remoteSession) finishSilently() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

func (c *Conn) routeRecognition(id string, ev asr.Event) {
	c.mu.Lock()
	s := c.recognitions[id]
	c.mu.Unlock()
	if s == nil {
		c.logger.Debugw("recognition event for unknown session", "session", id, "kind", ev.Kind)
		return
	}
	s.deliver(ev)
}

func (c *Conn) takeRecognition(id string) *remoteSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.recognitions[id]
	delete(c.recognitions, id)
	return s
}

func recognitionStarted() asr.Event {
	return asr.Event{Kind: asr.EventStarted}
}

func recognitionResult(results []asr.Result) asr.Event {
	return asr.Event{Kind: asr.EventResult, Results: results}
}

func recognitionError(code string) asr.Event {
	return asr.Event{Kind: asr.EventError, Code: asr.ErrorCode(code)}
}

type remoteSynthesizer struct {
	conn *Conn
}

func (r remoteSynthesizer) Speak(ctx context.Context, u tts.Utterance) (<-chan tts.PlaybackEvent, error) {
	c := r.conn
	p := &remotePlayback{id: u.ID, events: make(chan tts.PlaybackEvent, 4)}

	c.mu.Lock()
	c.playbacks[u.ID] = p
	c.mu.Unlock()

	frame := ServerSynthesisSpeak{
		Type:   TypeSynthesisSpeak,
		ID:     u.ID,
		Text:   u.Text,
		Lang:   u.Locale,
		Rate:   u.Rate,
		Pitch:  u.Pitch,
		Volume: u.Volume,
	}
	if u.Voice != nil {
		frame.Voice = u.Voice.Name
	}
	if err := c.Send(ctx, frame); err != nil {
		c.takePlayback(u.ID)
		if errors.Is(err, ErrConnClosed) {
			return nil, fmt.Errorf("%w: %w", tts.ErrUnavailable, err)
		}
		return nil, err
	}
	return p.events, nil
}

// Cancel stops page playback and fails every pending utterance.
func (r remoteSynthesizer) Cancel() error {
	c := r.conn
	c.mu.Lock()
	playbacks := c.playbacks
	c.playbacks = make(map[string]*remotePlayback)
	c.mu.Unlock()

	for _, p := range playbacks {
		p.fail("interrupted")
	}
	return c.Send(context.Background(), ServerSynthesisCancel{Type: TypeSynthesisCancel})
}

func (r remoteSynthesizer) Voices() []tts.Voice {
	c := r.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tts.Voice(nil), c.voices...)
}

func (r remoteSynthesizer) Health() tts.HealthStatus {
	ok, msg := r.conn.healthy()
	return tts.HealthStatus{Healthy: ok, Message: msg}
}

type remotePlayback struct {
	id     string
	events chan tts.PlaybackEvent

	mu     sync.Mutex
	closed bool
}

func (p *remotePlayback) deliver(ev tts.PlaybackEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
	}
}

func (p *remotePlayback) fail(reason string) {
	p.deliver(tts.PlaybackEvent{Kind: tts.PlaybackError, UtteranceID: p.id, Error: reason})
	p.close()
}

func (p *remotePlayback) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.events)
}

func (c *Conn) routePlayback(id string, ev tts.PlaybackEvent) {
	c.mu.Lock()
	p := c.playbacks[id]
	c.mu.Unlock()
	if p != nil {
		p.deliver(ev)
	}
}

func (c *Conn) takePlayback(id string) *remotePlayback {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.playbacks[id]
	delete(c.playbacks, id)
	return p
}
