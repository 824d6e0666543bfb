package chat

import "time"

// Message types accepted by the chat room.
const (
	TypeMessage        = "message"
	TypePrivateMessage = "private_message"
	TypeStatus         = "status"
)

// Broadcast is the recipient used for messages addressed to the whole room.
const Broadcast = "Todos"

// TimeLayout formats message timestamps as HH:mm:ss.
const TimeLayout = "15:04:05"

// Message is a single chat line as stored and served.
type Message struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

// VisibleTo reports whether viewer may read the message. Public and status
// messages are visible to everyone, private ones only to their two ends.
func (m Message) VisibleTo(viewer string) bool {
	switch m.Type {
	case TypeMessage, TypeStatus:
		return true
	}
	return m.To == viewer || m.From == viewer
}

// OwnedBy reports whether name is the original sender.
func (m Message) OwnedBy(name string) bool {
	return m.From == name
}

// Texts of the system-generated status messages.
const (
	JoinText  = "entra na sala..."
	LeaveText = "sai da sala..."
)

// NewStatus builds the broadcast notice announcing that name joined or left.
func NewStatus(name, text string, at time.Time) Message {
	return Message{
		From: name,
		To:   Broadcast,
		Text: text,
		Type: TypeStatus,
		Time: at.Format(TimeLayout),
	}
}
