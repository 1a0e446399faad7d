package output

import (
	"context"

	"voxbridge/packages/go/backend/session"
)

// Display placeholders.
const (
	TranscriptPlaceholder  = "Your speech will appear here..."
	TranslationPlaceholder = "Translation will appear here..."
	ListeningText          = "Listening..."
	TranslatingText        = "Translating..."
	TranslationFailedText  = "Translation failed. Please try again."
)

// View is everything the page displays for one session. It carries no
// behavior; the controller owns the state and renders a fresh copy on change.
type View struct {
	SessionID     string `json:"sessionId"`
	Transcript    string `json:"transcript"`
	Translation   string `json:"translation"`
	ReplayEnabled bool   `json:"replayEnabled"`
	Recording     bool   `json:"recording"`
	RecordEnabled bool   `json:"recordEnabled"`
	SourceLabel   string `json:"sourceLabel"`
	TargetLabel   string `json:"targetLabel"`
	Direction     string `json:"direction"`
	ServiceNotice string `json:"serviceNotice,omitempty"`
}

// InitialView is the view of a fresh session in the given direction.
func InitialView(sessionID string, dir session.Direction) View {
	v := View{
		SessionID:     sessionID,
		RecordEnabled: true,
	}
	v.ResetFields()
	v.SetDirection(dir)
	return v
}

// ResetFields puts both text fields back to their placeholders and disables
// replay.
func (v *View) ResetFields() {
	v.Transcript = TranscriptPlaceholder
	v.Translation = TranslationPlaceholder
	v.ReplayEnabled = false
}

// SetDirection updates the direction labels.
func (v *View) SetDirection(dir session.Direction) {
	v.SourceLabel = dir.Source.Label
	v.TargetLabel = dir.Target.Label
	v.Direction = dir.String()
}

// Renderer displays views.
type Renderer interface {
	Render(ctx context.Context, view View) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, view View) error

func (f RendererFunc) Render(ctx context.Context, view View) error {
	return f(ctx, view)
}
