package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"habitlink/server/internal/appMiddleware"
	"habitlink/server/internal/models"
	"habitlink/server/internal/social"
	"habitlink/server/internal/store"
)

// Pusher is the realtime side of the send path: best-effort delivery to
// the receiver's open connections.
type Pusher interface {
	PushMessage(msg *models.Message)
}

type MessageHandler struct {
	store        store.MessageStore
	gate         social.Gate
	pusher       Pusher
	directory    social.Directory
	historyLimit int
	validate     *validator.Validate
}

func NewMessageHandler(st store.MessageStore, gate social.Gate, pusher Pusher, directory social.Directory, historyLimit int) *MessageHandler {
	if historyLimit <= 0 {
		historyLimit = store.DefaultHistoryLimit
	}
	return &MessageHandler{
		store:        st,
		gate:         gate,
		pusher:       pusher,
		directory:    directory,
		historyLimit: historyLimit,
		validate:     validator.New(),
	}
}

func (h *MessageHandler) Routes(r chi.Router) {
	r.Post("/messages/send", h.Send)
	r.Get("/messages/unread/count", h.UnreadCount)
	r.Get("/messages/conversations", h.Conversations)
	r.Get("/messages/{friendId}", h.History)
	r.Post("/messages/mark-seen/{friendId}", h.MarkSeen)
}

type sendRequest struct {
	ReceiverID string             `json:"receiver_id" validate:"required"`
	Content    string             `json:"content"`
	Kind       models.MessageKind `json:"kind"`
}

// Send persists a message and pushes it to the receiver. The push is
// fire-and-forget: a persisted message is reported as success even when
// the realtime delivery silently fails.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	senderID, ok := appMiddleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "receiver_id is required", http.StatusBadRequest)
		return
	}
	if senderID == req.ReceiverID {
		http.Error(w, "Cannot message yourself", http.StatusBadRequest)
		return
	}

	allowed, err := h.gate.CanMessage(r.Context(), senderID, req.ReceiverID)
	if err != nil || !allowed {
		if err != nil {
			log.Printf("Friendship gate failed closed for %s -> %s: %v", senderID, req.ReceiverID, err)
		}
		writeJSON(w, http.StatusForbidden, map[string]string{
			"message": "You must be friends to message this user",
		})
		return
	}

	msg, err := h.store.Send(r.Context(), senderID, req.ReceiverID, req.Content, req.Kind)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error persisting message from %s: %v", senderID, err)
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}

	h.enrich(r.Context(), msg)
	h.pusher.PushMessage(msg)

	writeJSON(w, http.StatusOK, msg)
}

// History returns a chronological page of the conversation and, as a side
// effect, marks the peer's prior messages as seen: opening a conversation
// is the read receipt.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := appMiddleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	friendID := chi.URLParam(r, "friendId")

	opts := store.ListOptions{Limit: h.historyLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		opts.Limit = limit
	}
	if raw := r.URL.Query().Get("before"); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			http.Error(w, "Invalid before timestamp", http.StatusBadRequest)
			return
		}
		opts.Before = before
	}

	messages, err := h.store.ListConversation(r.Context(), userID, friendID, opts)
	if err != nil {
		log.Printf("Error fetching history %s/%s: %v", userID, friendID, err)
		http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}

	if _, err := h.store.MarkSeen(r.Context(), userID, friendID); err != nil {
		// History already succeeded; seen-marking catches up on the next
		// fetch or the explicit endpoint.
		log.Printf("Error marking messages seen for %s from %s: %v", userID, friendID, err)
	}

	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	userID, ok := appMiddleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	friendID := chi.URLParam(r, "friendId")

	count, err := h.store.MarkSeen(r.Context(), userID, friendID)
	if err != nil {
		log.Printf("Error marking messages seen for %s from %s: %v", userID, friendID, err)
		http.Error(w, "Failed to mark messages seen", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := appMiddleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	count, err := h.store.UnreadCount(r.Context(), userID)
	if err != nil {
		log.Printf("Error counting unread messages for %s: %v", userID, err)
		http.Error(w, "Failed to count unread messages", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := appMiddleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversations, err := h.store.Conversations(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing conversations for %s: %v", userID, err)
		http.Error(w, "Failed to list conversations", http.StatusInternalServerError)
		return
	}

	for i := range conversations {
		if user, err := h.directory.GetUser(r.Context(), conversations[i].PeerID); err == nil {
			conversations[i].PeerName = user.Name
		}
	}

	if conversations == nil {
		conversations = []models.Conversation{}
	}
	writeJSON(w, http.StatusOK, conversations)
}

// enrich resolves display names from the user directory. Directory outages
// degrade to bare ids, never to a failed send.
func (h *MessageHandler) enrich(ctx context.Context, msg *models.Message) {
	if sender, err := h.directory.GetUser(ctx, msg.SenderID); err == nil {
		msg.SenderName = sender.Name
	}
	if receiver, err := h.directory.GetUser(ctx, msg.ReceiverID); err == nil {
		msg.ReceiverName = receiver.Name
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
