package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloxpvp/robloxlink/internal/logging"
	"github.com/bloxpvp/robloxlink/internal/server/accounts"
	"github.com/bloxpvp/robloxlink/internal/server/challenge"
	"github.com/bloxpvp/robloxlink/internal/server/config"
	"github.com/bloxpvp/robloxlink/internal/server/link"
	"github.com/bloxpvp/robloxlink/internal/server/roblox"
	"github.com/bloxpvp/robloxlink/internal/shared"
)

type fakeRepo struct {
	mu         sync.Mutex
	byRobloxID map[int64]*accounts.Account
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byRobloxID: make(map[int64]*accounts.Account)}
}

func (f *fakeRepo) Create(_ context.Context, account *accounts.Account) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account.ID = uuid.NewString()
	account.CreatedAt = time.Now()
	cp := *account
	f.byRobloxID[account.RobloxID] = &cp
	return account, nil
}

func (f *fakeRepo) GetByRobloxID(_ context.Context, robloxID int64) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byRobloxID[robloxID]
	if !ok {
		return nil, shared.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byRobloxID {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, shared.ErrorNotFound
}

func (f *fakeRepo) UpdateDescription(_ context.Context, robloxID int64, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byRobloxID[robloxID]
	if !ok {
		return shared.ErrorNotFound
	}
	a.Description = description
	return nil
}

func (f *fakeRepo) ConfirmLogin(_ context.Context, robloxID int64, description, thumbnail, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byRobloxID[robloxID]
	if !ok {
		return shared.ErrorNotFound
	}
	a.Description = description
	a.Thumbnail = thumbnail
	a.IPs = append(a.IPs, accounts.AccessLogEntry{IP: ip, At: time.Now()})
	a.LastLogin = time.Now()
	return nil
}

func (f *fakeRepo) AppendReferral(_ context.Context, referrerRobloxID int64, referral accounts.Referral) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byRobloxID[referrerRobloxID]
	if !ok {
		return shared.ErrorNotFound
	}
	a.Referrals = append(a.Referrals, referral)
	return nil
}

type fakeRobloxClient struct {
	mu       sync.Mutex
	ids      map[string]int64
	profiles map[int64]*roblox.Profile

	retryErr error
}

func (f *fakeRobloxClient) ResolveUsername(_ context.Context, username string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.ids[strings.ToLower(username)]
	if !ok {
		return 0, shared.ErrorUnknownHandle
	}
	return id, nil
}

func (f *fakeRobloxClient) GetProfile(_ context.Context, userID int64) (*roblox.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, shared.ErrorUpstreamUnavailable
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRobloxClient) GetProfileWithRetry(ctx context.Context, userID int64) (*roblox.Profile, error) {
	f.mu.Lock()
	err := f.retryErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.GetProfile(ctx, userID)
}

func (f *fakeRobloxClient) GetAvatar(_ context.Context, _ int64) (string, error) {
	return "https://cdn.test/headshot.png", nil
}

func (f *fakeRobloxClient) setBio(userID int64, bio string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[userID].Description = bio
}

type testEnv struct {
	app    *fiber.App
	repo   *fakeRepo
	client *fakeRobloxClient
	cfg    *config.Config
}

func newTestEnv(t *testing.T, mutators ...func(*config.Config)) *testEnv {
	t.Helper()

	repo := newFakeRepo()
	client := &fakeRobloxClient{
		ids: map[string]int64{"builder123": 555},
		profiles: map[int64]*roblox.Profile{
			555: {Name: "Builder123", DisplayName: "Builder", Description: "hello there"},
		},
	}
	registry := challenge.NewMemoryRegistry(time.Minute)
	t.Cleanup(registry.Close)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	for _, mutate := range mutators {
		mutate(cfg)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := link.NewService(repo, registry, client, challenge.NewGenerator(), logger, cfg)
	srv := NewHTTPServer(logger, svc, cfg)

	return &testEnv{app: srv.newApp(), repo: repo, client: client, cfg: cfg}
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestConnect_IssuesChallenge(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/account/connect", fiber.Map{"username": "Builder123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	description, _ := body["description"].(string)
	assert.True(t, strings.HasPrefix(description, challenge.Prefix))
	assert.NotContains(t, body, "token")
}

func TestConnect_UnknownHandle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/account/connect", fiber.Map{"username": "NoSuchUser"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConnect_MalformedUsername(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/account/connect", fiber.Map{"username": "ab"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConnect_ConfirmReturnsToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/account/connect", fiber.Map{"username": "Builder123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	description := decodeBody(t, resp)["description"].(string)

	env.client.setBio(555, description)

	resp = env.post(t, "/api/account/connect", fiber.Map{"username": "Builder123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Builder123", user["username"])
	assert.NotContains(t, user, "ips", "access log must not leak to clients")
}

func TestConnect_BioMismatch(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/account/connect", fiber.Map{"username": "Builder123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.client.setBio(555, "not the challenge")

	resp = env.post(t, "/api/account/connect", fiber.Map{"username": "Builder123"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConnect_UpstreamUnavailable(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/account/connect", fiber.Map{"username": "Builder123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.client.mu.Lock()
	env.client.retryErr = shared.ErrorUpstreamUnavailable
	env.client.mu.Unlock()

	resp = env.post(t, "/api/account/connect", fiber.Map{"username": "Builder123"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.repo.Create(context.Background(), &accounts.Account{
		RobloxID:  555,
		Username:  "Builder123",
		Level:     2.5,
		Wagered:   100,
		Deposited: 50,
		Withdrawn: 80,
	})
	require.NoError(t, err)

	resp := env.post(t, "/api/account/profile", fiber.Map{"userId": 555})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Builder123", body["username"])
	assert.Equal(t, float64(30), body["profit"])
	assert.InDelta(t, 5625, body["xpMax"], 0.001)
}

func TestProfile_Unknown(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/account/profile", fiber.Map{"userId": 999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
