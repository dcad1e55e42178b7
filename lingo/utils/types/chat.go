// lingo/utils/types/chat.go
package types

import "encoding/json"

// Inbound and outbound websocket event names.
const (
	EventUserOnline              = "userOnline"
	EventUserOffline             = "userOffline"
	EventGroupTranslateEnMessage = "groupTranslateEnMessage"
	EventGroupTranslateMessage   = "groupTranslateMessage"
	EventException               = "exception"
	EventJoinRoom                = "joinRoom"
	EventLeaveRoom               = "leaveRoom"
)

// Frame is one websocket text message in either direction.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// TranslateRequest is the body of groupTranslateEnMessage. Fields keeps
// every key the client sent so the echo can hand them back untouched.
type TranslateRequest struct {
	Content string         `json:"content" validate:"required"`
	Fields  map[string]any `json:"-" validate:"-"`
}

func (r *TranslateRequest) UnmarshalJSON(b []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	// a non-string content decodes to "" and fails validation later
	content, _ := fields["content"].(string)
	r.Content = content
	r.Fields = fields
	return nil
}

// TranslationUpdate is the live-growing translation pushed to the room.
type TranslationUpdate struct {
	TContent string `json:"tContent"`
	ID       string `json:"id"`
}

// MessageView is the history shape returned by GET /messages.
type MessageView struct {
	ID          string `json:"id"`
	UserID      int    `json:"userId"`
	RoomID      string `json:"roomId"`
	Content     string `json:"content"`
	TContent    string `json:"tContent"`
	MessageType string `json:"messageType"`
	Status      string `json:"status"`
	CreateTime  int64  `json:"createTime"`
}

// InboundFrame keeps data raw until the event name picks its shape.
type InboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RoomRequest is the body of joinRoom and leaveRoom.
type RoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}
