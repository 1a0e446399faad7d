package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"voxbridge/packages/go/backend/asr"
	"voxbridge/packages/go/backend/output"
	"voxbridge/packages/go/backend/pipeline"
	"voxbridge/packages/go/backend/status"
	"voxbridge/packages/go/backend/tts"
)

const ProtocolVersion1 = "1"

// Frame types sent by the page.
const (
	TypeHello              = "hello"
	TypePress              = "press"
	TypeRelease            = "release"
	TypeToggleDirection    = "toggle_direction"
	TypeReplay             = "replay"
	TypeRecognitionStarted = "recognition.started"
	TypeRecognitionResult  = "recognition.result"
	TypeRecognitionError   = "recognition.error"
	TypeRecognitionEnded   = "recognition.ended"
	TypeSynthesisStarted   = "synthesis.started"
	TypeSynthesisEnded     = "synthesis.ended"
	TypeSynthesisError     = "synthesis.error"
	TypeVoices             = "voices"
	TypeCapabilities       = "capabilities"
)

// Frame types sent by the server.
const (
	TypeReady            = "ready"
	TypeRecognitionStart = "recognition.start"
	TypeRecognitionStop  = "recognition.stop"
	TypeRecognitionAbort = "recognition.abort"
	TypeSynthesisSpeak   = "synthesis.speak"
	TypeSynthesisCancel  = "synthesis.cancel"
	TypeStatus           = "status"
	TypeView             = "view"
	TypeError            = "error"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// HelloCapabilities reports the speech engines available in the page.
type HelloCapabilities struct {
	Recognition bool `json:"recognition"`
	Synthesis   bool `json:"synthesis"`
}

// Pipeline converts the report into controller capabilities.
func (c HelloCapabilities) Pipeline() pipeline.Capabilities {
	return pipeline.Capabilities{Recognition: c.Recognition, Synthesis: c.Synthesis}
}

type ClientHello struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	Capabilities    HelloCapabilities `json:"capabilities"`
	Voices          []tts.Voice       `json:"voices,omitempty"`
}

type ClientPress struct {
	Type string `json:"type"`
}

type ClientRelease struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

type ClientToggleDirection struct {
	Type string `json:"type"`
}

type ClientReplay struct {
	Type string `json:"type"`
}

type ClientRecognitionStarted struct {
	Type    string `json:"type"`
	Session string `json:"session"`
}

type ClientRecognitionResult struct {
	Type    string       `json:"type"`
	Session string       `json:"session"`
	Results []asr.Result `json:"results"`
}

type ClientRecognitionError struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Error   string `json:"error"`
}

type ClientRecognitionEnded struct {
	Type    string `json:"type"`
	Session string `json:"session"`
}

type ClientSynthesisStarted struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type ClientSynthesisEnded struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type ClientSynthesisError struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type ClientVoices struct {
	Type   string      `json:"type"`
	Voices []tts.Voice `json:"voices"`
}

// ClientCapabilities reports a change in the page's speech engines after
// hello.
type ClientCapabilities struct {
	Type         string            `json:"type"`
	Capabilities HelloCapabilities `json:"capabilities"`
}

type ServerReady struct {
	Type            string `json:"type"`
	SessionID       string `json:"session_id"`
	Direction       string `json:"direction"`
	ProtocolVersion string `json:"protocol_version"`
}

type ServerRecognitionStart struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Lang    string `json:"lang"`
}

type ServerRecognitionStop struct {
	Type    string `json:"type"`
	Session string `json:"session"`
}

type ServerSynthesisSpeak struct {
	Type   string  `json:"type"`
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Lang   string  `json:"lang"`
	Voice  string  `json:"voice,omitempty"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

type ServerSynthesisCancel struct {
	Type string `json:"type"`
}

type ServerStatus struct {
	Type     string          `json:"type"`
	Category status.Category `json:"category"`
	Message  string          `json:"message"`
}

type ServerView struct {
	Type string `json:"type"`
	output.View
}

type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeClientMessage parses one page frame into its typed form.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case TypeHello:
		var msg ClientHello
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid hello frame", "")
		}
		if strings.TrimSpace(msg.ProtocolVersion) == "" {
			return nil, badRequest("hello.protocol_version is required", "protocol_version")
		}
		return msg, nil
	case TypePress:
		return ClientPress{Type: typ}, nil
	case TypeRelease:
		var msg ClientRelease
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid release frame", "")
		}
		return msg, nil
	case TypeToggleDirection:
		return ClientToggleDirection{Type: typ}, nil
	case TypeReplay:
		return ClientReplay{Type: typ}, nil
	case TypeRecognitionStarted:
		var msg ClientRecognitionStarted
		if err := decodeWithSession(data, &msg, &msg.Session); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeRecognitionResult:
		var msg ClientRecognitionResult
		if err := decodeWithSession(data, &msg, &msg.Session); err != nil {
			return nil, err
		}
		if len(msg.Results) == 0 {
			return nil, badRequest("recognition.result.results is required", "results")
		}
		return msg, nil
	case TypeRecognitionError:
		var msg ClientRecognitionError
		if err := decodeWithSession(data, &msg, &msg.Session); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Error) == "" {
			return nil, badRequest("recognition.error.error is required", "error")
		}
		return msg, nil
	case TypeRecognitionEnded:
		var msg ClientRecognitionEnded
		if err := decodeWithSession(data, &msg, &msg.Session); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeSynthesisStarted:
		var msg ClientSynthesisStarted
		if err := decodeWithID(data, &msg, &msg.ID); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeSynthesisEnded:
		var msg ClientSynthesisEnded
		if err := decodeWithID(data, &msg, &msg.ID); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeSynthesisError:
		var msg ClientSynthesisError
		if err := decodeWithID(data, &msg, &msg.ID); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeVoices:
		var msg ClientVoices
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid voices frame", "")
		}
		return msg, nil
	case TypeCapabilities:
		var msg ClientCapabilities
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid capabilities frame", "")
		}
		return msg, nil
	default:
		return nil, &DecodeError{Code: "unsupported", Message: "unsupported frame type", Param: typ}
	}
}

func decodeWithSession(data []byte, msg any, session *string) error {
	if err := json.Unmarshal(data, msg); err != nil {
		return badRequest("invalid recognition frame", "")
	}
	if strings.TrimSpace(*session) == "" {
		return badRequest("session is required", "session")
	}
	return nil
}

func decodeWithID(data []byte, msg any, id *string) error {
	if err := json.Unmarshal(data, msg); err != nil {
		return badRequest("invalid synthesis frame", "")
	}
	if strings.TrimSpace(*id) == "" {
		return badRequest("id is required", "id")
	}
	return nil
}
