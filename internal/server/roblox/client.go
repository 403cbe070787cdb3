// Package roblox wraps the public Roblox web API: username resolution,
// profile reads and avatar thumbnails. All calls carry a bounded timeout.
// The profile read used on the confirmation path retries with backoff, and
// sequential calls are spaced out to respect upstream rate limits. A
// throttled response is a retryable failure, never a profile mismatch.
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/bloxpvp/robloxlink/internal/shared"
)

const (
	requestTimeout = 10 * time.Second
	minCallSpacing = 1 * time.Second

	retryBaseDelay = 1 * time.Second
	maxRetries     = 2 // 3 attempts total
)

// Profile is the public portion of a Roblox user profile.
type Profile struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

type Client struct {
	usersEndpoint      string
	thumbnailsEndpoint string
	httpClient         *http.Client

	// MinCallSpacing is the minimum delay between sequential calls to the
	// upstream. Tests set it to zero.
	MinCallSpacing time.Duration

	retryBase time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

func NewClient(usersEndpoint, thumbnailsEndpoint string) *Client {
	return &Client{
		usersEndpoint:      usersEndpoint,
		thumbnailsEndpoint: thumbnailsEndpoint,
		httpClient:         &http.Client{Timeout: requestTimeout},
		MinCallSpacing:     minCallSpacing,
		retryBase:          retryBaseDelay,
	}
}

// pace blocks until at least MinCallSpacing has elapsed since the previous
// upstream call, or the context is cancelled.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	wait := c.MinCallSpacing - time.Since(c.lastCall)
	if wait < 0 {
		wait = 0
	}
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, url string, body any, out any) error {
	if err := c.pace(ctx); err != nil {
		return err
	}

	var reqBody *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrorUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	// 429 and 5xx are upstream conditions worth retrying
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %s", shared.ErrorUpstreamUnavailable, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("roblox api: unexpected status %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// ResolveUsername resolves a Roblox username to its numeric user id.
// Unknown usernames return shared.ErrorUnknownHandle.
func (c *Client) ResolveUsername(ctx context.Context, username string) (int64, error) {
	reqBody := struct {
		Usernames          []string `json:"usernames"`
		ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
	}{
		Usernames: []string{username},
	}

	var respBody struct {
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}

	url := c.usersEndpoint + "/v1/usernames/users"
	if err := c.do(ctx, http.MethodPost, url, reqBody, &respBody); err != nil {
		return 0, err
	}

	if len(respBody.Data) == 0 {
		return 0, shared.ErrorUnknownHandle
	}

	return respBody.Data[0].ID, nil
}

// GetProfile fetches the public profile of a Roblox user by id.
func (c *Client) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var p Profile

	url := fmt.Sprintf("%s/v1/users/%d", c.usersEndpoint, userID)
	if err := c.do(ctx, http.MethodGet, url, nil, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// GetProfileWithRetry fetches the profile with up to three attempts, backing
// off 1s and then 2s between attempts. Only upstream conditions (network
// failure, throttling, 5xx) are retried.
func (c *Client) GetProfileWithRetry(ctx context.Context, userID int64) (*Profile, error) {
	var p *Profile

	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(c.retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		profile, err := c.GetProfile(ctx, userID)
		if err != nil {
			if errors.Is(err, shared.ErrorUpstreamUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		p = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// GetAvatar fetches the headshot thumbnail URL of a Roblox user.
func (c *Client) GetAvatar(ctx context.Context, userID int64) (string, error) {
	var respBody struct {
		Data []struct {
			ImageURL string `json:"imageUrl"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/v1/users/avatar-headshot?userIds=%d&size=420x420&format=png", c.thumbnailsEndpoint, userID)
	if err := c.do(ctx, http.MethodGet, url, nil, &respBody); err != nil {
		return "", err
	}

	if len(respBody.Data) == 0 || respBody.Data[0].ImageURL == "" {
		return "", fmt.Errorf("roblox api: missing thumbnail for user %d", userID)
	}

	return respBody.Data[0].ImageURL, nil
}
