package main

import (
	"context"
	"errors"
	"net/http"

	"voxbridge/packages/go/backend/bridge"
	"voxbridge/packages/go/backend/di"
	"voxbridge/packages/go/backend/session"
	"voxbridge/packages/go/backend/status"
)

// liveHandler upgrades to the page bridge and runs one push-to-talk session
// for the lifetime of the socket.
func liveHandler(s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warnw("websocket upgrade failed", "error", err)
			return
		}

		conn := bridge.NewConn(ws, s.bridge, s.logger)
		hello, err := conn.ReadHello(s.cfg.HandshakeTimeout)
		if err != nil {
			code := "bad_request"
			if errors.Is(err, bridge.ErrUnsupportedVersion) {
				code = "unsupported_version"
			}
			s.logger.Warnw("live handshake failed", "error", err)
			conn.WriteError(code, err.Error())
			return
		}

		sessionID := session.NewID()
		logger := s.logger.With("sessionID", sessionID)
		caps := hello.Capabilities.Pipeline()

		controller, err := s.container.NewController(sessionID, caps,
			di.WithRecognizer(conn.Recognizer()),
			di.WithSynthesizer(conn.Synthesizer()),
			di.WithRenderer(conn),
			di.WithPublisher(status.MultiPublisher{conn, s.container.Publisher}),
			di.WithLogger(logger),
		)
		if err != nil {
			logger.Errorw("failed to create session controller", "error", err)
			conn.WriteError("internal", "failed to start session")
			return
		}

		ctx, cancel := context.WithCancel(s.baseCtx)
		defer cancel()

		ready := bridge.ServerReady{
			Type:            bridge.TypeReady,
			SessionID:       sessionID,
			Direction:       s.container.Pair.Forward().String(),
			ProtocolVersion: bridge.ProtocolVersion1,
		}
		if err := conn.Send(ctx, ready); err != nil {
			logger.Warnw("failed to queue ready frame", "error", err)
			conn.Close()
			return
		}

		runDone := make(chan error, 1)
		go func() { runDone <- controller.Run(ctx) }()
		logger.Infow("live session started", "recognition", caps.Recognition, "synthesis", caps.Synthesis, "voices", len(hello.Voices))

		serveErr := conn.Serve(ctx, controller)
		_ = controller.Close()
		cancel()
		if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnw("session controller stopped with error", "error", err)
		}

		if serveErr != nil {
			logger.Infow("live session ended", "error", serveErr)
			return
		}
		logger.Infow("live session ended")
	}
}
