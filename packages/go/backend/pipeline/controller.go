package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"voxbridge/packages/go/backend/asr"
	"voxbridge/packages/go/backend/output"
	"voxbridge/packages/go/backend/session"
	"voxbridge/packages/go/backend/status"
	"voxbridge/packages/go/backend/translation"
	"voxbridge/packages/go/backend/tts"
)

// DefaultAutoPlayDelay is the pause between a successful translation and
// speaking it.
const DefaultAutoPlayDelay = 500 * time.Millisecond

const publishTimeout = 2 * time.Second

var (
	// ErrClosed is returned by operations once the controller has stopped.
	ErrClosed = errors.New("controller closed")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("controller already running")
)

// Capabilities reports which speech engines the page offers.
type Capabilities struct {
	Recognition bool `json:"recognition"`
	Synthesis   bool `json:"synthesis"`
}

// FullCapabilities is a page with both engines available.
func FullCapabilities() Capabilities {
	return Capabilities{Recognition: true, Synthesis: true}
}

// Config configures one controller.
type Config struct {
	SessionID     string
	Pair          session.Pair
	AutoPlayDelay time.Duration
	Capabilities  Capabilities
	// ProbeOnStart checks the translation service in the background when Run
	// begins.
	ProbeOnStart bool
}

// DefaultConfig returns a config for a fresh Japanese/English session.
func DefaultConfig() Config {
	return Config{
		SessionID:     session.NewID(),
		Pair:          session.DefaultPair(),
		AutoPlayDelay: DefaultAutoPlayDelay,
		Capabilities:  FullCapabilities(),
		ProbeOnStart:  true,
	}
}

// Dependencies are the engines and sinks a controller drives. Recognizer and
// Translator are required.
type Dependencies struct {
	Recognizer  asr.Recognizer
	Translator  translation.Translator
	Synthesizer tts.Synthesizer
	Publisher   status.Publisher
	Renderer    output.Renderer
	Logger      *zap.SugaredLogger
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	SessionID       string                 `json:"sessionId"`
	Direction       session.Direction      `json:"direction"`
	State           session.RecordingState `json:"state"`
	LastTranslation string                 `json:"lastTranslation"`
	View            output.View            `json:"view"`
	Status          status.Event           `json:"status"`
	Capabilities    Capabilities           `json:"capabilities"`
}

type recognition struct {
	session       asr.Session
	cycle         uint64
	heard         bool
	errorReported bool
}

// Controller is the push-to-talk translator for one session. All state is
// owned by the goroutine executing Run; the exported operations only post
// events to it.
type Controller struct {
	id          string
	autoPlay    time.Duration
	recognizer  asr.Recognizer
	translator  translation.Translator
	synthesizer tts.Synthesizer
	publisher   status.Publisher
	renderer    output.Renderer
	logger      *zap.SugaredLogger
	probe       bool

	events    chan any
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool

	// loop-owned state
	ctx             context.Context
	direction       session.Direction
	state           session.RecordingState
	lastTranslation string
	caps            Capabilities
	view            output.View
	rendered        output.View
	current         status.Event
	rec             *recognition
	cycle           uint64
	gen             uint64
	seq             uint64
	appliedSeq      uint64
	pending         map[uint64]context.CancelFunc
	autoPlayTimer   *time.Timer
	utteranceID     string
}

// New creates a controller. Call Run to start it.
func New(cfg Config, deps Dependencies) (*Controller, error) {
	if deps.Recognizer == nil {
		return nil, fmt.Errorf("recognizer required")
	}
	if deps.Translator == nil {
		return nil, fmt.Errorf("translator required")
	}
	if cfg.SessionID == "" {
		cfg.SessionID = session.NewID()
	}
	if cfg.Pair == (session.Pair{}) {
		cfg.Pair = session.DefaultPair()
	}
	if cfg.AutoPlayDelay <= 0 {
		cfg.AutoPlayDelay = DefaultAutoPlayDelay
	}
	if deps.Synthesizer == nil {
		cfg.Capabilities.Synthesis = false
	}
	if deps.Publisher == nil {
		deps.Publisher = status.Discard
	}
	if deps.Renderer == nil {
		deps.Renderer = output.RendererFunc(func(context.Context, output.View) error { return nil })
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}

	direction := cfg.Pair.Forward()
	return &Controller{
		id:          cfg.SessionID,
		autoPlay:    cfg.AutoPlayDelay,
		recognizer:  deps.Recognizer,
		translator:  deps.Translator,
		synthesizer: deps.Synthesizer,
		publisher:   deps.Publisher,
		renderer:    deps.Renderer,
		logger:      deps.Logger.With("sessionID", cfg.SessionID),
		probe:       cfg.ProbeOnStart,
		events:      make(chan any, 64),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		direction:   direction,
		caps:        cfg.Capabilities,
		view:        output.InitialView(cfg.SessionID, direction),
		pending:     make(map[uint64]context.CancelFunc),
	}, nil
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Press starts a recording cycle.
func (c *Controller) Press() error {
	return c.post(pressEvent{})
}

// Release stops the current recording. The reason is only logged; pointer-up,
// pointer-leave, touch-end and touch-cancel all behave the same.
func (c *Controller) Release(reason string) error {
	return c.post(releaseEvent{reason: reason})
}

// ToggleDirection swaps source and target languages.
func (c *Controller) ToggleDirection() error {
	return c.post(toggleEvent{})
}

// Replay speaks the last translation again.
func (c *Controller) Replay() error {
	return c.post(replayEvent{})
}

// SetCapabilities records which engines the page offers. Pages report changes
// after hello, e.g. once their voice list has loaded.
func (c *Controller) SetCapabilities(caps Capabilities) error {
	return c.post(capabilitiesEvent{caps: caps})
}

// Snapshot returns the current state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := c.post(snapshotEvent{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-c.done:
		return Snapshot{}, ErrClosed
	}
}

// Close stops the event loop. It is safe to call more than once.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	return nil
}

// Run processes events until ctx is canceled or Close is called.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.ctx = ctx
	defer close(c.done)
	defer cancel()
	defer c.shutdown()

	c.logEngineHealth()

	c.applyCapabilities(c.caps, true)
	c.flush()

	if c.probe {
		go func() {
			health := c.translator.Probe(ctx)
			c.post(probeEvent{health: health})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.quit:
			return nil
		case ev := <-c.events:
			c.handle(ev)
			c.flush()
		}
	}
}

func (c *Controller) post(ev any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *Controller) handle(ev any) {
	switch ev := ev.(type) {
	case pressEvent:
		c.handlePress()
	case releaseEvent:
		c.handleRelease(ev.reason)
	case toggleEvent:
		c.handleToggle()
	case replayEvent:
		if c.view.ReplayEnabled {
			c.speak()
		}
	case capabilitiesEvent:
		c.applyCapabilities(ev.caps, false)
	case snapshotEvent:
		ev.reply <- c.snapshot()
	case recognitionEvent:
		c.handleRecognition(ev)
	case translationEvent:
		c.handleTranslation(ev)
	case autoPlayEvent:
		c.handleAutoPlay(ev)
	case playbackEvent:
		c.handlePlayback(ev.event)
	case probeEvent:
		c.view.ServiceNotice = noticeForProbe(ev.health)
		c.logger.Infow("translation service probed",
			"provider", c.translator.Name(),
			"healthy", ev.health.Healthy,
			"statusCode", ev.health.StatusCode,
		)
	default:
		c.logger.Warnw("unknown controller event", "event", fmt.Sprintf("%T", ev))
	}
}

func (c *Controller) handlePress() {
	if !c.caps.Recognition {
		c.publish(status.Error, MsgRecognitionUnsupported)
		return
	}
	if c.state == session.Recording {
		return
	}

	c.abortRecognition()
	c.cancelTranslations()
	c.cancelPlayback()

	c.view.Transcript = output.ListeningText
	c.view.Translation = output.TranslationPlaceholder
	c.view.ReplayEnabled = false
	c.lastTranslation = ""

	c.cycle++
	locale := c.direction.Source.RecognitionLocale
	sess, err := c.recognizer.Start(c.ctx, locale)
	if err != nil {
		c.logger.Errorw("failed to start recognition", "locale", locale, "error", err)
		c.view.Transcript = output.TranscriptPlaceholder
		c.publish(status.Error, MsgStartFailed)
		return
	}

	c.setState(session.Recording)
	c.rec = &recognition{session: sess, cycle: c.cycle}
	c.logger.Infow("recording started", "cycle", c.cycle, "locale", locale)
	go c.forwardRecognition(c.cycle, sess)
}

func (c *Controller) handleRelease(reason string) {
	if c.state != session.Recording {
		return
	}
	c.setState(session.Idle)
	c.logger.Infow("recording released", "cycle", c.cycle, "reason", reason)
	if c.rec != nil {
		if err := c.rec.session.Stop(); err != nil {
			c.logger.Warnw("failed to stop recognition", "error", err)
		}
	}
}

func (c *Controller) handleToggle() {
	c.direction = c.direction.Toggle()
	c.cancelTranslations()
	c.cancelPlayback()

	c.view.SetDirection(c.direction)
	c.view.ResetFields()
	c.lastTranslation = ""

	c.logger.Infow("direction changed", "direction", c.direction.String())
	c.publish(status.Idle, MsgDirectionChanged)
}

func (c *Controller) forwardRecognition(cycle uint64, sess asr.Session) {
	for ev := range sess.Events() {
		if c.post(recognitionEvent{cycle: cycle, event: ev}) != nil {
			return
		}
	}
	_ = c.post(recognitionEvent{cycle: cycle, closed: true})
}

func (c *Controller) handleRecognition(ev recognitionEvent) {
	rec := c.rec
	if rec == nil || rec.cycle != ev.cycle {
		return
	}
	if ev.closed {
		c.finishRecognition()
		return
	}

	switch ev.event.Kind {
	case asr.EventStarted:
		c.publish(status.Listening, MsgListening)
	case asr.EventResult:
		interim, final := ev.event.Transcripts()
		if interim != "" {
			rec.heard = true
			c.view.Transcript = interim
		}
		if final != "" {
			rec.heard = true
			c.view.Transcript = final
			c.translate(final, c.direction)
		}
	case asr.EventError:
		rec.errorReported = true
		c.logger.Warnw("recognition error", "cycle", rec.cycle, "code", ev.event.Code)
		c.publish(status.Error, ev.event.Code.Message())
		c.setState(session.Idle)
	case asr.EventEnded:
		c.finishRecognition()
	}
}

func (c *Controller) finishRecognition() {
	rec := c.rec
	c.rec = nil
	c.setState(session.Idle)

	if !rec.heard {
		c.view.Transcript = output.TranscriptPlaceholder
		if !rec.errorReported {
			c.publish(status.Error, MsgNoSpeech)
		}
	}
	c.logger.Debugw("recognition ended", "cycle", rec.cycle, "heard", rec.heard)
}

func (c *Controller) abortRecognition() {
	if c.rec == nil {
		return
	}
	if err := c.rec.session.Abort(); err != nil {
		c.logger.Warnw("failed to abort recognition", "error", err)
	}
	c.rec = nil
}

func (c *Controller) translate(text string, dir session.Direction) {
	if strings.TrimSpace(text) == "" {
		c.publish(status.Error, MsgNoText)
		return
	}

	c.publish(status.Processing, MsgTranslating)
	c.view.Translation = output.TranslatingText

	c.seq++
	seq, gen := c.seq, c.gen
	ctx, cancel := context.WithCancel(c.ctx)
	c.pending[seq] = cancel

	go func() {
		result, err := c.translator.Translate(ctx, text, dir.Source.Code, dir.Target.Code)
		_ = c.post(translationEvent{gen: gen, seq: seq, result: result, err: err})
	}()
}

func (c *Controller) handleTranslation(ev translationEvent) {
	if cancel, ok := c.pending[ev.seq]; ok {
		cancel()
		delete(c.pending, ev.seq)
	}
	if ev.gen != c.gen || ev.seq < c.appliedSeq {
		c.logger.Debugw("dropping stale translation", "seq", ev.seq, "appliedSeq", c.appliedSeq)
		return
	}
	c.appliedSeq = ev.seq

	if ev.err != nil {
		c.logger.Errorw("translation failed",
			"provider", c.translator.Name(),
			"failure", translation.Classify(ev.err),
			"error", ev.err,
		)
		message := statusForTranslationError(ev.err)
		c.view.Translation = output.TranslationFailedText
		if message != MsgTranslationFailed {
			c.view.Translation = message
		}
		c.view.ServiceNotice = NoticeUnavailable
		c.publish(status.Error, message)
		return
	}

	c.lastTranslation = ev.result.TranslatedText
	c.view.Translation = ev.result.TranslatedText
	c.view.ReplayEnabled = true
	c.publish(status.Success, MsgTranslationComplete)
	c.scheduleAutoPlay()
}

func (c *Controller) cancelTranslations() {
	c.gen++
	for seq, cancel := range c.pending {
		cancel()
		delete(c.pending, seq)
	}
	if c.autoPlayTimer != nil {
		c.autoPlayTimer.Stop()
		c.autoPlayTimer = nil
	}
}

func (c *Controller) scheduleAutoPlay() {
	if c.autoPlayTimer != nil {
		c.autoPlayTimer.Stop()
	}
	gen := c.gen
	c.autoPlayTimer = time.AfterFunc(c.autoPlay, func() {
		_ = c.post(autoPlayEvent{gen: gen})
	})
}

func (c *Controller) handleAutoPlay(ev autoPlayEvent) {
	if ev.gen != c.gen {
		return
	}
	c.autoPlayTimer = nil
	c.speak()
}

func (c *Controller) speak() {
	if c.lastTranslation == "" || !c.caps.Synthesis || c.synthesizer == nil {
		return
	}

	c.utteranceID = ""
	if err := c.synthesizer.Cancel(); err != nil {
		c.logger.Warnw("failed to cancel playback", "error", err)
	}

	target := c.direction.Target
	voice := tts.SelectVoice(c.synthesizer.Voices(), target.Code)
	utterance := tts.NewUtterance(c.lastTranslation, target.SynthesisLocale, voice)

	events, err := c.synthesizer.Speak(c.ctx, utterance)
	if err != nil {
		c.logger.Errorw("failed to start playback", "locale", target.SynthesisLocale, "error", err)
		c.view.ReplayEnabled = true
		c.publish(status.Error, MsgPlaybackFailed)
		return
	}

	c.utteranceID = utterance.ID
	go func() {
		for ev := range events {
			if c.post(playbackEvent{event: ev}) != nil {
				return
			}
		}
	}()
}

func (c *Controller) cancelPlayback() {
	if c.utteranceID == "" {
		return
	}
	c.utteranceID = ""
	if err := c.synthesizer.Cancel(); err != nil {
		c.logger.Warnw("failed to cancel playback", "error", err)
	}
}

func (c *Controller) handlePlayback(ev tts.PlaybackEvent) {
	if ev.UtteranceID == "" || ev.UtteranceID != c.utteranceID {
		return
	}

	switch ev.Kind {
	case tts.PlaybackStarted:
		c.view.ReplayEnabled = false
		c.publish(status.Processing, MsgPlaying)
	case tts.PlaybackEnded:
		c.utteranceID = ""
		c.view.ReplayEnabled = true
		c.publish(status.Idle, MsgReady)
	case tts.PlaybackError:
		c.utteranceID = ""
		c.view.ReplayEnabled = true
		c.logger.Warnw("playback failed", "utteranceID", ev.UtteranceID, "error", ev.Error)
		c.publish(status.Error, MsgPlaybackFailed)
	}
}

func (c *Controller) applyCapabilities(caps Capabilities, initial bool) {
	if c.synthesizer == nil {
		caps.Synthesis = false
	}
	c.caps = caps
	c.view.RecordEnabled = caps.Recognition

	switch {
	case !caps.Recognition:
		c.publish(status.Error, MsgRecognitionUnsupported)
	case !caps.Synthesis:
		c.publish(status.Error, MsgSynthesisUnsupported)
	case initial:
		c.publish(status.Idle, MsgReady)
	}
}

func (c *Controller) logEngineHealth() {
	rec := c.recognizer.Health()
	fields := []any{
		"direction", c.direction.String(),
		"recognizerHealthy", rec.Healthy,
		"recognizer", rec.Message,
	}
	if c.synthesizer != nil {
		syn := c.synthesizer.Health()
		fields = append(fields, "synthesizerHealthy", syn.Healthy, "synthesizer", syn.Message)
	}
	c.logger.Infow("session started", fields...)
}

func (c *Controller) setState(state session.RecordingState) {
	c.state = state
	c.view.Recording = state == session.Recording
}

func (c *Controller) publish(category status.Category, message string) {
	c.current = status.Event{
		SessionID: c.id,
		Category:  category,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(c.ctx, publishTimeout)
	defer cancel()
	if err := c.publisher.Publish(ctx, c.current); err != nil {
		c.logger.Warnw("failed to publish status", "message", message, "error", err)
	}
}

func (c *Controller) flush() {
	if c.view == c.rendered {
		return
	}
	c.rendered = c.view

	ctx, cancel := context.WithTimeout(c.ctx, publishTimeout)
	defer cancel()
	if err := c.renderer.Render(ctx, c.view); err != nil {
		c.logger.Warnw("failed to render view", "error", err)
	}
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		SessionID:       c.id,
		Direction:       c.direction,
		State:           c.state,
		LastTranslation: c.lastTranslation,
		View:            c.view,
		Status:          c.current,
		Capabilities:    c.caps,
	}
}

func (c *Controller) shutdown() {
	c.cancelTranslations()
	c.abortRecognition()
	c.cancelPlayback()
	c.logger.Infow("session closed")
}
