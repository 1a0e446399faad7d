package di

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"voxbridge/packages/go/backend/asr"
	"voxbridge/packages/go/backend/output"
	"voxbridge/packages/go/backend/pipeline"
	"voxbridge/packages/go/backend/session"
	"voxbridge/packages/go/backend/status"
	"voxbridge/packages/go/backend/translation"
	"voxbridge/packages/go/backend/tts"
)

// Container holds the shared dependencies of the translator service. The
// speech engines and renderer are usually per-connection and supplied to
// NewController as overrides.
type Container struct {
	Translator    translation.Translator
	Publisher     status.Publisher
	Logger        *zap.SugaredLogger
	Pair          session.Pair
	AutoPlayDelay time.Duration
	ProbeOnStart  bool

	Recognizer  asr.Recognizer
	Synthesizer tts.Synthesizer
	Renderer    output.Renderer
}

// ContainerOption configures a container during construction.
type ContainerOption func(*Container)

// WithTranslator sets the translator implementation.
func WithTranslator(t translation.Translator) ContainerOption {
	return func(c *Container) { c.Translator = t }
}

// WithPublisher sets the shared status publisher, e.g. the Redis mirror.
func WithPublisher(p status.Publisher) ContainerOption {
	return func(c *Container) { c.Publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) ContainerOption {
	return func(c *Container) { c.Logger = l }
}

// WithPair sets the language pair for new sessions.
func WithPair(p session.Pair) ContainerOption {
	return func(c *Container) { c.Pair = p }
}

// WithAutoPlayDelay sets the delay between a translation and its playback.
func WithAutoPlayDelay(d time.Duration) ContainerOption {
	return func(c *Container) { c.AutoPlayDelay = d }
}

// WithProbeOnStart enables the translation service probe for new sessions.
func WithProbeOnStart(enabled bool) ContainerOption {
	return func(c *Container) { c.ProbeOnStart = enabled }
}

// WithRecognizer sets the speech recognizer.
func WithRecognizer(r asr.Recognizer) ContainerOption {
	return func(c *Container) { c.Recognizer = r }
}

// WithSynthesizer sets the speech synthesizer.
func WithSynthesizer(s tts.Synthesizer) ContainerOption {
	return func(c *Container) { c.Synthesizer = s }
}

// WithRenderer sets the view renderer.
func WithRenderer(r output.Renderer) ContainerOption {
	return func(c *Container) { c.Renderer = r }
}

// NewContainer creates a container with the given options.
func NewContainer(opts ...ContainerOption) *Container {
	c := &Container{
		Publisher:     status.Discard,
		Logger:        zap.NewNop().Sugar(),
		Pair:          session.DefaultPair(),
		AutoPlayDelay: pipeline.DefaultAutoPlayDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewTestContainer creates a container with all stub implementations
// for testing without external dependencies.
func NewTestContainer() *Container {
	return NewContainer(
		WithTranslator(translation.NewStubTranslator(nil)),
		WithRecognizer(asr.NewStubRecognizer(nil)),
		WithSynthesizer(tts.NewStubSynthesizer(nil)),
		WithRenderer(output.NewStubRenderer()),
	)
}

// NewController builds a session controller from the container. Overrides
// apply to a copy, so per-connection engines do not leak into the container.
func (c *Container) NewController(sessionID string, caps pipeline.Capabilities, overrides ...ContainerOption) (*pipeline.Controller, error) {
	scoped := *c
	for _, opt := range overrides {
		opt(&scoped)
	}
	if scoped.Recognizer == nil {
		return nil, fmt.Errorf("container: %w", asr.ErrUnavailable)
	}

	cfg := pipeline.Config{
		SessionID:     sessionID,
		Pair:          scoped.Pair,
		AutoPlayDelay: scoped.AutoPlayDelay,
		Capabilities:  caps,
		ProbeOnStart:  scoped.ProbeOnStart,
	}
	return pipeline.New(cfg, pipeline.Dependencies{
		Recognizer:  scoped.Recognizer,
		Translator:  scoped.Translator,
		Synthesizer: scoped.Synthesizer,
		Publisher:   scoped.Publisher,
		Renderer:    scoped.Renderer,
		Logger:      scoped.Logger,
	})
}
