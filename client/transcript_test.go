package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"habitlink/server/internal/models"
)

func msg(id int64, content string, at time.Time) models.Message {
	return models.Message{ID: id, SenderID: "alice", ReceiverID: "bob", Content: content, Kind: models.KindText, CreatedAt: at}
}

func TestTranscript_DedupAcrossDeliveryPaths(t *testing.T) {
	tr := NewTranscript()

	// Realtime push wins the race, send response arrives second.
	m := msg(7, "hi", time.Now())
	require.True(t, tr.Append(m))
	require.False(t, tr.Append(m), "same id via the second path is dropped")
	require.Equal(t, 1, tr.Len())

	// Opposite order on the next message.
	m2 := msg(8, "again", time.Now())
	require.True(t, tr.Append(m2))
	require.False(t, tr.Append(m2))
	require.Equal(t, 2, tr.Len())
}

func TestTranscript_HistorySeedsSeenIDs(t *testing.T) {
	tr := NewTranscript()
	now := time.Now()

	tr.SeedHistory([]models.Message{msg(1, "old", now.Add(-time.Minute)), msg(2, "older", now)})
	require.False(t, tr.Append(msg(2, "older", now)), "pushed duplicate of fetched history is dropped")
	require.True(t, tr.Append(msg(3, "new", now)))

	all := tr.Messages()
	require.Len(t, all, 3)
	require.Equal(t, int64(1), all[0].ID, "history renders before live appends")
	require.Equal(t, int64(3), all[2].ID)
}

func TestTranscript_MessagesWithoutIDNeverDeduped(t *testing.T) {
	tr := NewTranscript()

	offline := models.Message{Content: "queued while offline"}
	require.True(t, tr.Append(offline))
	require.True(t, tr.Append(offline), "no server id, no dedup")
	require.Equal(t, 2, tr.Len())
}

func TestTranscript_PrependOlderPage(t *testing.T) {
	tr := NewTranscript()
	now := time.Now()

	tr.SeedHistory([]models.Message{msg(10, "newer", now)})
	tr.PrependHistory([]models.Message{
		msg(8, "oldest", now.Add(-2*time.Minute)),
		msg(9, "older", now.Add(-time.Minute)),
		msg(10, "newer", now), // overlap with the seeded page
	})

	all := tr.Messages()
	require.Len(t, all, 3)
	require.Equal(t, int64(8), all[0].ID)
	require.Equal(t, int64(9), all[1].ID)
	require.Equal(t, int64(10), all[2].ID)
}

func TestTranscript_OldestTimestampCursor(t *testing.T) {
	tr := NewTranscript()

	_, ok := tr.OldestTimestamp()
	require.False(t, ok, "empty transcript has no cursor")

	oldest := time.Now().Add(-time.Hour)
	tr.SeedHistory([]models.Message{msg(1, "old", oldest), msg(2, "new", time.Now())})

	cursor, ok := tr.OldestTimestamp()
	require.True(t, ok)
	require.True(t, cursor.Equal(oldest))
}
