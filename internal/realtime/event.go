package realtime

import "encoding/json"

// Client -> server events.
const (
	EventAuthenticate = "authenticate"
	EventJoinChat     = "join_chat"
	EventTyping       = "typing"
	EventStopTyping   = "stop_typing"
)

// Server -> client events.
const (
	EventReceiveMessage = "receive_message"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventUserStatus     = "user_status"
)

// ClientEvent is the single inbound frame shape. Fields are optional per
// event: authenticate carries Token, join_chat carries OtherUserID,
// typing/stop_typing carry ReceiverID (or fall back to the joined chat).
type ClientEvent struct {
	Event       string `json:"event"`
	Token       string `json:"token,omitempty"`
	OtherUserID string `json:"other_user_id,omitempty"`
	ReceiverID  string `json:"receiver_id,omitempty"`
}

// ServerEvent is the outbound frame shape, mirroring the {event, data}
// envelope of the reference protocol.
type ServerEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func marshalEvent(event string, data interface{}) ([]byte, bool) {
	payload, err := json.Marshal(ServerEvent{Event: event, Data: data})
	if err != nil {
		return nil, false
	}
	return payload, true
}

type TypingData struct {
	UserID string `json:"user_id"`
}

type StatusData struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}
