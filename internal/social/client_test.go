package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"habitlink/server/internal/models"
)

func newSocialStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/u1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.User{ID: "u1", Name: "Alice", Email: "alice@example.com"})
	})
	mux.HandleFunc("/users/u1/friends", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"u2", "u3"})
	})
	mux.HandleFunc("/friendships/check", func(w http.ResponseWriter, r *http.Request) {
		a, b := r.URL.Query().Get("user_a"), r.URL.Query().Get("user_b")
		friends := (a == "u1" && b == "u2") || (a == "u2" && b == "u1")
		json.NewEncoder(w).Encode(map[string]bool{"friends": friends})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetUser(t *testing.T) {
	srv := newSocialStub(t)
	c := NewClient(srv.URL, time.Second)

	user, err := c.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "Alice", user.Name)
}

func TestClient_GetUserNotFound(t *testing.T) {
	srv := newSocialStub(t)
	c := NewClient(srv.URL, time.Second)

	_, err := c.GetUser(context.Background(), "missing")
	require.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestClient_ListFriends(t *testing.T) {
	srv := newSocialStub(t)
	c := NewClient(srv.URL, time.Second)

	friends, err := c.ListFriends(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"u2", "u3"}, friends)
}

func TestClient_AreFriends(t *testing.T) {
	srv := newSocialStub(t)
	c := NewClient(srv.URL, time.Second)

	friends, err := c.AreFriends(context.Background(), "u1", "u2")
	require.NoError(t, err)
	require.True(t, friends)

	friends, err = c.AreFriends(context.Background(), "u1", "u9")
	require.NoError(t, err)
	require.False(t, friends)
}

func TestClient_UnreachableService(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)

	_, err := c.AreFriends(context.Background(), "a", "b")
	require.Error(t, err)
}
