package view

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventRefreshed      EventType = "refreshed"
	EventRefreshFailed  EventType = "refresh_failed"
	EventNotification   EventType = "notification"
	EventSessionChanged EventType = "session_changed"
)

// Event is one state change pushed to presentations.
type Event struct {
	Type EventType
	Data interface{}
}

// Subscriber is a channel that receives events.
type Subscriber chan Event

// NotificationEvent is the payload of EventNotification.
type NotificationEvent struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Visible  bool   `json:"visible"`
}
