// Package presence tracks which users currently hold open realtime
// connections. The registry is process-local and rebuilt from zero on
// restart; presence is best-effort, not authoritative history.
package presence

import (
	"log"
	"sync"
	"time"

	"github.com/samber/lo"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// StatusNotifier receives the online/offline transitions of a user. The
// realtime layer implements it to broadcast status events.
type StatusNotifier interface {
	NotifyStatus(userID string, status Status)
}

// NopNotifier discards transitions; useful in tests and tools.
type NopNotifier struct{}

func (NopNotifier) NotifyStatus(string, Status) {}

type Registry struct {
	mu         sync.Mutex
	byUser     map[string]map[string]struct{} // userID -> connection ids
	byConn     map[string]string              // connection id -> userID
	lastSeenAt map[string]time.Time
	notifier   StatusNotifier
}

func NewRegistry(notifier StatusNotifier) *Registry {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Registry{
		byUser:     make(map[string]map[string]struct{}),
		byConn:     make(map[string]string),
		lastSeenAt: make(map[string]time.Time),
		notifier:   notifier,
	}
}

// SetNotifier replaces the notifier. The registry and the realtime hub
// reference each other, so one side is wired after construction.
func (r *Registry) SetNotifier(notifier StatusNotifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifier = notifier
}

// Register adds a connection for a user. The user's first connection
// fires a single online notification.
func (r *Registry) Register(userID, connID string) {
	r.mu.Lock()
	first := len(r.byUser[userID]) == 0
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][connID] = struct{}{}
	r.byConn[connID] = userID
	r.lastSeenAt[userID] = time.Now()
	notifier := r.notifier
	r.mu.Unlock()

	log.Printf("Connection %s registered for user %s", connID, userID)
	if first {
		notifier.NotifyStatus(userID, StatusOnline)
	}
}

// Unregister removes a connection. Removing the user's last connection
// fires a single offline notification. Unknown connection ids are a no-op
// so the disconnect path stays idempotent.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	userID, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byConn, connID)
	delete(r.byUser[userID], connID)
	last := len(r.byUser[userID]) == 0
	if last {
		delete(r.byUser, userID)
	}
	r.lastSeenAt[userID] = time.Now()
	notifier := r.notifier
	r.mu.Unlock()

	log.Printf("Connection %s unregistered for user %s", connID, userID)
	if last {
		notifier.NotifyStatus(userID, StatusOffline)
	}
}

// ConnectionsFor returns the user's active connection ids. An empty slice
// is the normal offline case, never an error.
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Keys(r.byUser[userID])
}

func (r *Registry) Online(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser[userID]) > 0
}

// LastSeenAt returns the time of the user's most recent connect or
// disconnect, if any has happened since process start.
func (r *Registry) LastSeenAt(userID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.lastSeenAt[userID]
	return t, ok
}
