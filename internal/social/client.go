// Package social talks to the external social service that owns the user
// directory and the friend graph. The messaging core consumes it read-only.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"habitlink/server/internal/models"
)

type Directory interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListFriends(ctx context.Context, userID string) ([]string, error)
}

type FriendshipChecker interface {
	AreFriends(ctx context.Context, userA, userB string) (bool, error)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListFriends(ctx context.Context, userID string) ([]string, error) {
	var friends []string
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(userID)+"/friends", &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// AreFriends reports whether an accepted friendship exists between the two
// users, in either direction.
func (c *Client) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	q := url.Values{}
	q.Set("user_a", userA)
	q.Set("user_b", userB)

	var resp struct {
		Friends bool `json:"friends"`
	}
	if err := c.getJSON(ctx, "/friendships/check?"+q.Encode(), &resp); err != nil {
		return false, err
	}
	return resp.Friends, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("social service request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNotFound:
		return models.ErrUserNotFound
	default:
		return fmt.Errorf("social service returned status %d", resp.StatusCode)
	}
}
