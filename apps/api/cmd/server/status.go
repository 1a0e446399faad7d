package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxbridge/packages/go/backend/status"
)

const statusWriteTimeout = 5 * time.Second

type statusSubscriber interface {
	Last(ctx context.Context, sessionID string) (status.Event, bool, error)
	Subscribe(ctx context.Context, sessionID string) (status.StatusStream, error)
}

// sessionStatusHandler mirrors a session's status channel to a websocket. The
// latest stored event is sent first.
func sessionStatusHandler(subscriber statusSubscriber, upgrader websocket.Upgrader, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if subscriber == nil {
			writeError(w, logger, http.StatusNotFound, errors.New("status mirror is not configured"))
			return
		}

		sessionID := chi.URLParam(r, "id")
		if _, err := uuid.Parse(sessionID); err != nil {
			writeError(w, logger, http.StatusBadRequest, fmt.Errorf("invalid session id"))
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnw("websocket upgrade failed", "error", err, "sessionID", sessionID)
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		stream, err := subscriber.Subscribe(ctx, sessionID)
		if err != nil {
			logger.Errorw("failed to subscribe to status stream", "error", err, "sessionID", sessionID)
			writeClose(ws, websocket.CloseInternalServerErr, "status stream unavailable")
			_ = ws.Close()
			return
		}
		defer func() {
			if err := stream.Close(); err != nil {
				logger.Errorw("failed to close status stream", "error", err, "sessionID", sessionID)
			}
			writeClose(ws, websocket.CloseNormalClosure, "")
			_ = ws.Close()
		}()

		go statusReadLoop(ws, cancel)

		last, ok, err := subscriber.Last(ctx, sessionID)
		if err != nil {
			logger.Warnw("failed to load last status", "error", err, "sessionID", sessionID)
		}
		if ok {
			if err := writeStatus(ws, last); err != nil {
				logger.Warnw("failed to write status event", "error", err, "sessionID", sessionID)
				return
			}
		}

		// An event published between Subscribe and Last arrives on the stream
		// as well; skip that one copy.
		skip := ok

		errs := stream.Errors()
		for {
			select {
			case event, ok := <-stream.Events():
				if !ok {
					return
				}
				if skip {
					skip = false
					if sameEvent(event, last) {
						continue
					}
				}
				if err := writeStatus(ws, event); err != nil {
					logger.Warnw("failed to write status event", "error", err, "sessionID", sessionID)
					return
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Errorw("status stream error", "error", err, "sessionID", sessionID)
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func sameEvent(a, b status.Event) bool {
	return a.Timestamp.Equal(b.Timestamp) && a.Category == b.Category && a.Message == b.Message
}

// statusReadLoop drains client frames so control messages are handled and a
// closed socket cancels the stream.
func statusReadLoop(ws *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := ws.NextReader(); err != nil {
			return
		}
	}
}

func writeStatus(ws *websocket.Conn, event status.Event) error {
	if err := ws.SetWriteDeadline(time.Now().Add(statusWriteTimeout)); err != nil {
		return err
	}
	return ws.WriteJSON(event)
}

func writeClose(ws *websocket.Conn, code int, text string) {
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(statusWriteTimeout))
}
