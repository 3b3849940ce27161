// Package chat defines the contract between the conversational core and the
// external messaging transport. The transport delivers typed inbound events and
// renders outbound messages; the core never sees the wire protocol.
package chat

import "context"

// EventKind distinguishes free text from pressed menu buttons.
type EventKind string

const (
	KindText  EventKind = "text"
	KindToken EventKind = "token"
)

// Event is one inbound message tagged with the requesting identity assigned by
// the messaging platform.
type Event struct {
	Identity int64     `json:"identity"`
	Kind     EventKind `json:"kind"`
	Payload  string    `json:"payload"`
}

// IsToken reports whether the event carries the given action token. Menu
// presses arrive as tokens; typed commands arrive as text and are matched
// case-insensitively by the dispatcher before reaching flows.
func (e Event) IsToken(token string) bool {
	return e.Kind == KindToken && e.Payload == token
}

// MenuRow is one selectable option: a human label plus the opaque token the
// transport echoes back when pressed.
type MenuRow struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Menu is the logical button layout attached to an outbound message. Rendering
// is the transport's concern; order is meaningful.
type Menu struct {
	Rows []MenuRow `json:"rows"`
}

// NewMenu builds a menu from label/token pairs.
func NewMenu(rows ...MenuRow) *Menu {
	return &Menu{Rows: rows}
}

// Sender delivers outbound messages to a requesting identity. Implementations
// must be safe for concurrent use.
type Sender interface {
	SendMessage(ctx context.Context, identity int64, text string, menu *Menu) error
}
