package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSender) SendTyping(receiverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "typing:"+receiverID)
	return nil
}

func (s *recordingSender) SendStopTyping(receiverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "stop:"+receiverID)
	return nil
}

func (s *recordingSender) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func TestTypingNotifier_BurstEmitsOneTypingThenStop(t *testing.T) {
	sender := &recordingSender{}
	n := NewTypingNotifier(sender, "bob", 30*time.Millisecond)

	n.Keystroke()
	n.Keystroke()
	n.Keystroke()
	require.Equal(t, []string{"typing:bob"}, sender.all(), "one typing signal per burst")

	require.Eventually(t, func() bool {
		events := sender.all()
		return len(events) == 2 && events[1] == "stop:bob"
	}, time.Second, 5*time.Millisecond, "stop fires after the quiet period")
}

func TestTypingNotifier_KeystrokeRestartsQuietTimer(t *testing.T) {
	sender := &recordingSender{}
	n := NewTypingNotifier(sender, "bob", 50*time.Millisecond)

	n.Keystroke()
	time.Sleep(30 * time.Millisecond)
	n.Keystroke() // inside the quiet window: timer restarts, no stop yet
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, []string{"typing:bob"}, sender.all())

	require.Eventually(t, func() bool {
		return len(sender.all()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestTypingNotifier_NewBurstAfterStop(t *testing.T) {
	sender := &recordingSender{}
	n := NewTypingNotifier(sender, "bob", 20*time.Millisecond)

	n.Keystroke()
	require.Eventually(t, func() bool { return len(sender.all()) == 2 }, time.Second, 5*time.Millisecond)

	n.Keystroke()
	require.Eventually(t, func() bool { return len(sender.all()) == 4 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"typing:bob", "stop:bob", "typing:bob", "stop:bob"}, sender.all())
}

func TestTypingNotifier_StopFlushesImmediately(t *testing.T) {
	sender := &recordingSender{}
	n := NewTypingNotifier(sender, "bob", time.Hour)

	n.Keystroke()
	n.Stop()
	require.Equal(t, []string{"typing:bob", "stop:bob"}, sender.all())

	// Idle stop is a no-op.
	n.Stop()
	require.Len(t, sender.all(), 2)
}

func TestTypingNotifier_DefaultQuietIsOneSecond(t *testing.T) {
	n := NewTypingNotifier(&recordingSender{}, "bob", 0)
	require.Equal(t, time.Second, n.quiet)
}
