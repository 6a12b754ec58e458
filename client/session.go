package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"habitlink/server/internal/models"
	"habitlink/server/internal/realtime"
)

// Handlers are the event callbacks of a session. Nil callbacks are
// skipped.
type Handlers struct {
	OnMessage    func(models.Message)
	OnTyping     func(userID string)
	OnStopTyping func(userID string)
	OnStatus     func(userID, status string)
}

// Session is one authenticated connection to the messaging server: the
// HTTP surface for request/response calls and the websocket for realtime
// events. It implements TypingSender.
type Session struct {
	apiBase  string
	wsURL    string
	token    string
	http     *http.Client
	handlers Handlers

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewSession(apiBase, wsURL, token string, handlers Handlers) *Session {
	return &Session{
		apiBase:  apiBase,
		wsURL:    wsURL,
		token:    token,
		http:     &http.Client{Timeout: 10 * time.Second},
		handlers: handlers,
	}
}

// Connect dials the websocket with the bearer token and starts the read
// loop. Reconnection is the caller's concern: reconnect-and-reauthenticate
// from scratch.
func (s *Session) Connect() error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)

	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL, header)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var evt struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &evt); err != nil {
			continue
		}

		switch evt.Event {
		case realtime.EventReceiveMessage:
			var msg models.Message
			if err := json.Unmarshal(evt.Data, &msg); err == nil && s.handlers.OnMessage != nil {
				s.handlers.OnMessage(msg)
			}
		case realtime.EventUserTyping:
			var data realtime.TypingData
			if err := json.Unmarshal(evt.Data, &data); err == nil && s.handlers.OnTyping != nil {
				s.handlers.OnTyping(data.UserID)
			}
		case realtime.EventUserStopTyping:
			var data realtime.TypingData
			if err := json.Unmarshal(evt.Data, &data); err == nil && s.handlers.OnStopTyping != nil {
				s.handlers.OnStopTyping(data.UserID)
			}
		case realtime.EventUserStatus:
			var data realtime.StatusData
			if err := json.Unmarshal(evt.Data, &data); err == nil && s.handlers.OnStatus != nil {
				s.handlers.OnStatus(data.UserID, data.Status)
			}
		}
	}
}

func (s *Session) writeEvent(evt realtime.ClientEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("session not connected")
	}
	return s.conn.WriteJSON(evt)
}

// JoinChat sets the default typing target on the server side.
func (s *Session) JoinChat(otherUserID string) error {
	return s.writeEvent(realtime.ClientEvent{Event: realtime.EventJoinChat, OtherUserID: otherUserID})
}

func (s *Session) SendTyping(receiverID string) error {
	return s.writeEvent(realtime.ClientEvent{Event: realtime.EventTyping, ReceiverID: receiverID})
}

func (s *Session) SendStopTyping(receiverID string) error {
	return s.writeEvent(realtime.ClientEvent{Event: realtime.EventStopTyping, ReceiverID: receiverID})
}

// SendMessage issues the synchronous send call and returns the persisted,
// server-stamped message.
func (s *Session) SendMessage(receiverID, content string, kind models.MessageKind) (*models.Message, error) {
	body, err := json.Marshal(map[string]interface{}{
		"receiver_id": receiverID,
		"content":     content,
		"kind":        kind,
	})
	if err != nil {
		return nil, err
	}

	var msg models.Message
	if err := s.doJSON(http.MethodPost, "/api/messages/send", bytes.NewReader(body), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// FetchHistory loads a chronological page of the conversation with peer.
// A zero before means the newest page.
func (s *Session) FetchHistory(peerID string, limit int, before time.Time) ([]models.Message, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if !before.IsZero() {
		q.Set("before", before.Format(time.RFC3339Nano))
	}

	path := "/api/messages/" + url.PathEscape(peerID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var messages []models.Message
	if err := s.doJSON(http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Session) UnreadCount() (int64, error) {
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := s.doJSON(http.MethodGet, "/api/messages/unread/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (s *Session) MarkSeen(peerID string) (int64, error) {
	var resp struct {
		Count int64 `json:"count"`
	}
	path := "/api/messages/mark-seen/" + url.PathEscape(peerID)
	if err := s.doJSON(http.MethodPost, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (s *Session) doJSON(method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequest(method, s.apiBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
