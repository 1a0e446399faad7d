package pipeline

import (
	"voxbridge/packages/go/backend/asr"
	"voxbridge/packages/go/backend/translation"
	"voxbridge/packages/go/backend/tts"
)

type pressEvent struct{}

type releaseEvent struct {
	reason string
}

type toggleEvent struct{}

type replayEvent struct{}

type capabilitiesEvent struct {
	caps Capabilities
}

type snapshotEvent struct {
	reply chan<- Snapshot
}

// recognitionEvent carries the cycle that started the session so events from
// an aborted or superseded session are dropped.
type recognitionEvent struct {
	cycle  uint64
	event  asr.Event
	closed bool
}

// translationEvent carries the generation current when the request was made.
// Press and Toggle bump the generation, discarding anything older. Within a
// generation a response older than one already applied is dropped too.
type translationEvent struct {
	gen    uint64
	seq    uint64
	result translation.Translation
	err    error
}

type autoPlayEvent struct {
	gen uint64
}

type playbackEvent struct {
	event tts.PlaybackEvent
}

type probeEvent struct {
	health translation.HealthStatus
}
