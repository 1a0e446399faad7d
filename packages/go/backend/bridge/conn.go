package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxbridge/packages/go/backend/pipeline"
	"voxbridge/packages/go/backend/tts"
)

// ErrConnClosed is returned when sending on a connection that has shut down.
var ErrConnClosed = errors.New("bridge connection closed")

// ErrUnsupportedVersion rejects a hello with an unknown protocol version.
var ErrUnsupportedVersion = errors.New("unsupported protocol_version")

// Config tunes the websocket connection.
type Config struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	SendBuffer   int
}

// DefaultConfig returns the production connection settings.
func DefaultConfig() Config {
	return Config{
		PingInterval: 20 * time.Second,
		WriteTimeout: 5 * time.Second,
		ReadLimit:    64 << 10,
		SendBuffer:   64,
	}
}

// Handler receives the page's user operations. *pipeline.Controller
// satisfies it.
type Handler interface {
	Press() error
	Release(reason string) error
	ToggleDirection() error
	Replay() error
	SetCapabilities(caps pipeline.Capabilities) error
}

// Conn is one page connection. It carries user operations in and drives the
// page's speech engines out.
type Conn struct {
	ws     *websocket.Conn
	cfg    Config
	logger *zap.SugaredLogger

	out       chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu           sync.Mutex
	recognitions map[string]*remoteSession
	playbacks    map[string]*remotePlayback
	voices       []tts.Voice
}

// NewConn wraps an upgraded websocket.
func NewConn(ws *websocket.Conn, cfg Config, logger *zap.SugaredLogger) *Conn {
	defaults := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaults.ReadLimit
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ws.SetReadLimit(cfg.ReadLimit)

	return &Conn{
		ws:           ws,
		cfg:          cfg,
		logger:       logger,
		out:          make(chan []byte, cfg.SendBuffer),
		closed:       make(chan struct{}),
		recognitions: make(map[string]*remoteSession),
		playbacks:    make(map[string]*remotePlayback),
	}
}

// ReadHello waits for the page's hello frame.
func (c *Conn) ReadHello(timeout time.Duration) (ClientHello, error) {
	_ = c.ws.SetReadDeadline(time.Now().Add(timeout))
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return ClientHello{}, fmt.Errorf("read hello: %w", err)
	}
	if messageType != websocket.TextMessage {
		return ClientHello{}, badRequest("first frame must be hello", "type")
	}

	decoded, err := DecodeClientMessage(data)
	if err != nil {
		return ClientHello{}, err
	}
	hello, ok := decoded.(ClientHello)
	if !ok {
		return ClientHello{}, badRequest("first frame must be hello", "type")
	}
	if strings.TrimSpace(hello.ProtocolVersion) != ProtocolVersion1 {
		return ClientHello{}, ErrUnsupportedVersion
	}

	c.setVoices(hello.Voices)
	return hello, nil
}

// WriteError writes an error frame directly and closes the socket. It is used
// for handshake failures, before Serve starts the writer.
func (c *Conn) WriteError(code, message string) {
	payload, err := json.Marshal(ServerError{Type: TypeError, Code: code, Message: message})
	if err == nil {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		_ = c.ws.WriteMessage(websocket.TextMessage, payload)
	}
	deadline := time.Now().Add(c.cfg.WriteTimeout)
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), deadline)
	_ = c.ws.Close()
}

// Send queues a frame for the writer.
func (c *Conn) Send(ctx context.Context, frame any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- payload:
		return nil
	case <-c.closed:
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve runs the reader and writer until the page disconnects or ctx ends.
func (c *Conn) Serve(ctx context.Context, h Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writerDone := make(chan error, 1)
	go func() { writerDone <- c.writeLoop(ctx) }()

	err := c.readLoop(ctx, h)
	cancel()
	c.Close()
	if werr := <-writerDone; err == nil {
		err = werr
	}
	return err
}

// Close tears the connection down and ends every pending session and
// playback.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()

		c.mu.Lock()
		sessions := c.recognitions
		playbacks := c.playbacks
		c.recognitions = make(map[string]*remoteSession)
		c.playbacks = make(map[string]*remotePlayback)
		c.mu.Unlock()

		for _, s := range sessions {
			s.finish()
		}
		for _, p := range playbacks {
			p.fail("connection closed")
		}
	})
}

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

func (c *Conn) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = c.ws.Close()
			return nil
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				_ = c.ws.Close()
				return err
			}
		case payload := <-c.out:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				_ = c.ws.Close()
				return err
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = c.ws.Close()
				return err
			}
		}
	}
}

func (c *Conn) readLoop(ctx context.Context, h Handler) error {
	pongWait := 2 * c.cfg.PingInterval
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		if messageType != websocket.TextMessage {
			c.sendError(ctx, "bad_request", "binary frames are not supported")
			continue
		}

		decoded, err := DecodeClientMessage(data)
		if err != nil {
			code := "bad_request"
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				code = decodeErr.Code
			}
			c.sendError(ctx, code, err.Error())
			continue
		}

		if err := c.dispatch(ctx, h, decoded); err != nil {
			if errors.Is(err, pipeline.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (c *Conn) dispatch(ctx context.Context, h Handler, msg any) error {
	switch msg := msg.(type) {
	case ClientHello:
		c.sendError(ctx, "bad_request", "unexpected hello")
	case ClientPress:
		return h.Press()
	case ClientRelease:
		return h.Release(msg.Reason)
	case ClientToggleDirection:
		return h.ToggleDirection()
	case ClientReplay:
		return h.Replay()
	case ClientVoices:
		c.setVoices(msg.Voices)
	case ClientCapabilities:
		return h.SetCapabilities(msg.Capabilities.Pipeline())
	case ClientRecognitionStarted:
		c.routeRecognition(msg.Session, recognitionStarted())
	case ClientRecognitionResult:
		c.routeRecognition(msg.Session, recognitionResult(msg.Results))
	case ClientRecognitionError:
		c.routeRecognition(msg.Session, recognitionError(msg.Error))
	case ClientRecognitionEnded:
		if s := c.takeRecognition(msg.Session); s != nil {
			s.finish()
		}
	case ClientSynthesisStarted:
		c.routePlayback(msg.ID, tts.PlaybackEvent{Kind: tts.PlaybackStarted, UtteranceID: msg.ID})
	case ClientSynthesisEnded:
		if p := c.takePlayback(msg.ID); p != nil {
			p.deliver(tts.PlaybackEvent{Kind: tts.PlaybackEnded, UtteranceID: msg.ID})
			p.close()
		}
	case ClientSynthesisError:
		if p := c.takePlayback(msg.ID); p != nil {
			p.fail(msg.Error)
		}
	}
	return nil
}

func (c *Conn) sendError(ctx context.Context, code, message string) {
	if err := c.Send(ctx, ServerError{Type: TypeError, Code: code, Message: message}); err != nil {
		c.logger.Debugw("failed to send error frame", "code", code, "error", err)
	}
}

func (c *Conn) setVoices(voices []tts.Voice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voices = append([]tts.Voice(nil), voices...)
}
