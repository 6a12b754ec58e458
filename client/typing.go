package client

import (
	"sync"
	"time"
)

// DefaultTypingQuiet is how long after the last keystroke the stop signal
// fires. Behavioral parity with the reference UI requires 1 second.
const DefaultTypingQuiet = time.Second

// TypingSender emits the two typing signals over the realtime channel.
type TypingSender interface {
	SendTyping(receiverID string) error
	SendStopTyping(receiverID string) error
}

// TypingNotifier debounces keystrokes into a typing/stop-typing pair:
// the first keystroke of a burst emits typing, each further keystroke
// restarts the quiet timer, and the timer firing emits stop-typing.
type TypingNotifier struct {
	mu         sync.Mutex
	sender     TypingSender
	receiverID string
	quiet      time.Duration
	timer      *time.Timer
	active     bool
}

func NewTypingNotifier(sender TypingSender, receiverID string, quiet time.Duration) *TypingNotifier {
	if quiet <= 0 {
		quiet = DefaultTypingQuiet
	}
	return &TypingNotifier{
		sender:     sender,
		receiverID: receiverID,
		quiet:      quiet,
	}
}

// Keystroke records input activity: cancel-and-restart the quiet timer.
func (n *TypingNotifier) Keystroke() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.active {
		n.active = true
		_ = n.sender.SendTyping(n.receiverID)
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.quiet, n.timerFired)
}

func (n *TypingNotifier) timerFired() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.active {
		return
	}
	n.active = false
	_ = n.sender.SendStopTyping(n.receiverID)
}

// Stop ends the burst immediately, e.g. when the message is sent or the
// conversation is closed.
func (n *TypingNotifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if n.active {
		n.active = false
		_ = n.sender.SendStopTyping(n.receiverID)
	}
}
