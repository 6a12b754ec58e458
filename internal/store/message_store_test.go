package store

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"habitlink/server/internal/db"
	"habitlink/server/internal/models"
)

// testPool connects to the database named by TEST_DATABASE_URL and starts
// from an empty messages table. Without the variable the test is skipped.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := db.Connect(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), "TRUNCATE messages RESTART IDENTITY")
	require.NoError(t, err)
	return pool
}

func TestMessageStore_SendAndList(t *testing.T) {
	s := New(testPool(t))
	ctx := context.Background()

	first, err := s.Send(ctx, "alice", "bob", "hello", models.KindText)
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	require.False(t, first.CreatedAt.IsZero())
	require.False(t, first.Seen)

	_, err = s.Send(ctx, "bob", "alice", "hi back", models.KindText)
	require.NoError(t, err)

	history, err := s.ListConversation(ctx, "alice", "bob", ListOptions{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "hello", history[0].Content)
	require.Equal(t, "hi back", history[1].Content)
}

func TestMessageStore_SendValidation(t *testing.T) {
	s := New(testPool(t))
	ctx := context.Background()

	_, err := s.Send(ctx, "alice", "alice", "hi", models.KindText)
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = s.Send(ctx, "alice", "bob", "", models.KindText)
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestMessageStore_MarkSeenAndUnreadCount(t *testing.T) {
	s := New(testPool(t))
	ctx := context.Background()

	_, err := s.Send(ctx, "alice", "bob", "one", models.KindText)
	require.NoError(t, err)
	_, err = s.Send(ctx, "alice", "bob", "two", models.KindText)
	require.NoError(t, err)
	_, err = s.Send(ctx, "carol", "bob", "three", models.KindText)
	require.NoError(t, err)

	unread, err := s.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	require.EqualValues(t, 3, unread)

	count, err := s.MarkSeen(ctx, "bob", "alice")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, err = s.MarkSeen(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Zero(t, count)

	unread, err = s.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)
}

func TestMessageStore_Pagination(t *testing.T) {
	s := New(testPool(t))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := s.Send(ctx, "alice", "bob", "m", models.KindText)
		require.NoError(t, err)
	}

	full, err := s.ListConversation(ctx, "alice", "bob", ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, full, 6)

	page1, err := s.ListConversation(ctx, "alice", "bob", ListOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.Equal(t, full[3].ID, page1[0].ID, "first page is the newest slice")

	page2, err := s.ListConversation(ctx, "alice", "bob", ListOptions{Limit: 10, Before: page1[0].CreatedAt})
	require.NoError(t, err)

	var got []int64
	for _, m := range append(page2, page1...) {
		got = append(got, m.ID)
	}
	var want []int64
	for _, m := range full {
		want = append(want, m.ID)
	}
	require.Equal(t, want, got)
}

func TestMessageStore_Conversations(t *testing.T) {
	s := New(testPool(t))
	ctx := context.Background()

	_, err := s.Send(ctx, "alice", "bob", "hey bob", models.KindText)
	require.NoError(t, err)
	_, err = s.Send(ctx, "carol", "alice", "hi", models.KindText)
	require.NoError(t, err)

	conversations, err := s.Conversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	require.Equal(t, "carol", conversations[0].PeerID)
	require.EqualValues(t, 1, conversations[0].UnreadCount)
	require.Equal(t, "bob", conversations[1].PeerID)
	require.EqualValues(t, 0, conversations[1].UnreadCount)
}
