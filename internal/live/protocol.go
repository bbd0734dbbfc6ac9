package live

import (
	"encoding/json"
	"fmt"
)

// Client events.
const (
	EventSubmit  = "submit"
	EventClick   = "click"
	EventDismiss = "dismiss"
)

// Patch operations.
const (
	OpHTML     = "html"
	OpDisabled = "disabled"
	OpReset    = "reset"
	OpBusy     = "busy"
)

// Frame is a message from the browser.
type Frame struct {
	Event  string            `json:"event"`
	Target string            `json:"target"`
	Values map[string]string `json:"values,omitempty"`
}

// DecodeFrame parses and checks a client frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	switch f.Event {
	case EventSubmit, EventClick, EventDismiss:
	default:
		return Frame{}, fmt.Errorf("decode frame: unknown event %q", f.Event)
	}
	if f.Target == "" {
		return Frame{}, fmt.Errorf("decode frame: missing target")
	}
	return f, nil
}

// Patch is one DOM change sent to the browser.
type Patch struct {
	Op     string `json:"op"`
	Target string `json:"target"`
	HTML   string `json:"html,omitempty"`
	Value  bool   `json:"value,omitempty"`
}

// Message carries a batch of patches.
type Message struct {
	Patches []Patch `json:"patches"`
}
