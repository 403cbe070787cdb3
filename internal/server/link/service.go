// Package link orchestrates the account-linking handshake: it decides
// whether a Roblox identity is new, already linked, or mid-challenge,
// drives the state transitions and persists the confirmed link.
//
// Proof of control is deliberately weak: the user demonstrates they can
// edit a public profile field, nothing more. Anyone who can edit that
// field can complete the handshake. The challenge/response semantics are
// kept as-is for compatibility with existing clients.
package link

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bloxpvp/robloxlink/internal/logging"
	"github.com/bloxpvp/robloxlink/internal/server/accounts"
	"github.com/bloxpvp/robloxlink/internal/server/auth"
	"github.com/bloxpvp/robloxlink/internal/server/challenge"
	"github.com/bloxpvp/robloxlink/internal/server/config"
	"github.com/bloxpvp/robloxlink/internal/server/roblox"
	"github.com/bloxpvp/robloxlink/internal/shared"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
)

// RobloxClient is the outbound surface the handshake needs from the Roblox
// API wrapper.
type RobloxClient interface {
	ResolveUsername(ctx context.Context, username string) (int64, error)
	GetProfile(ctx context.Context, userID int64) (*roblox.Profile, error)
	GetProfileWithRetry(ctx context.Context, userID int64) (*roblox.Profile, error)
	GetAvatar(ctx context.Context, userID int64) (string, error)
}

// Result is the outcome of a RequestLink call: either a challenge the user
// must place into their profile, or a session token with the account
// summary once the challenge is confirmed.
type Result struct {
	Challenge string
	Token     string
	Account   *accounts.Account
}

type Service struct {
	repo     accounts.Repository
	registry challenge.Registry
	client   RobloxClient
	gen      *challenge.Generator
	logger   logging.Logger

	jwtSecret     []byte
	tokenValidity time.Duration
	xpConstant    float64
}

func NewService(repo accounts.Repository, registry challenge.Registry, client RobloxClient, gen *challenge.Generator, logger logging.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:          repo,
		registry:      registry,
		client:        client,
		gen:           gen,
		logger:        logger.With("module", "link_service"),
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidityDuration,
		xpConstant:    cfg.XPConstant,
	}
}

// RequestLink drives one step of the handshake state machine for the given
// Roblox username. Depending on the identity's current state it creates the
// account and issues a challenge, re-issues a challenge, or verifies the
// live profile bio against the outstanding challenge and mints a session
// token.
func (s *Service) RequestLink(ctx context.Context, username, referrer, ip string) (*Result, error) {

	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return nil, fmt.Errorf("%w: username must be between %d and %d characters", shared.ErrorValidation, minUsernameLen, maxUsernameLen)
	}

	robloxID, err := s.client.ResolveUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrorUnknownHandle) {
			return nil, shared.ErrorUnknownHandle
		}
		s.logger.Warn(ctx, "username resolution failed", "username", username, "error", err)
		return nil, shared.ErrorUpstreamUnavailable
	}

	account, err := s.repo.GetByRobloxID(ctx, robloxID)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return s.createAccount(ctx, robloxID, referrer)
		}
		s.logger.Error(ctx, "account lookup failed", "roblox_id", robloxID, "error", err)
		return nil, shared.ErrorInternal
	}

	outstanding, err := s.registry.Get(ctx, robloxID)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return s.reissueChallenge(ctx, robloxID)
		}
		s.logger.Error(ctx, "challenge registry lookup failed", "roblox_id", robloxID, "error", err)
		return nil, shared.ErrorInternal
	}

	return s.confirmChallenge(ctx, account, outstanding, ip)
}

// createAccount handles first contact: the identity resolved but no local
// record exists yet.
func (s *Service) createAccount(ctx context.Context, robloxID int64, referrer string) (*Result, error) {

	profile, err := s.client.GetProfile(ctx, robloxID)
	if err != nil {
		s.logger.Warn(ctx, "profile fetch failed", "roblox_id", robloxID, "error", err)
		return nil, shared.ErrorUpstreamUnavailable
	}

	thumbnail, err := s.client.GetAvatar(ctx, robloxID)
	if err != nil {
		s.logger.Warn(ctx, "avatar fetch failed", "roblox_id", robloxID, "error", err)
		return nil, shared.ErrorUpstreamUnavailable
	}

	ch, err := s.gen.Generate()
	if err != nil {
		return nil, shared.ErrorInternal
	}

	account := &accounts.Account{
		RobloxID:    robloxID,
		Username:    profile.Name,
		DisplayName: profile.DisplayName,
		Description: ch,
		Thumbnail:   thumbnail,
	}

	if _, err := s.repo.Create(ctx, account); err != nil {
		s.logger.Error(ctx, "account creation failed", "roblox_id", robloxID, "error", err)
		return nil, shared.ErrorInternal
	}

	// Referral credit must never block or fail the primary flow, and it is
	// appended only here so a referred account is credited at most once.
	s.creditReferrer(ctx, robloxID, referrer)

	if err := s.registry.Put(ctx, robloxID, ch); err != nil {
		s.logger.Error(ctx, "challenge registration failed", "roblox_id", robloxID, "error", err)
		return nil, shared.ErrorInternal
	}

	return &Result{Challenge: ch}, nil
}

func (s *Service) creditReferrer(ctx context.Context, newRobloxID int64, referrer string) {
	if referrer == "" {
		return
	}

	referrerID, err := strconv.ParseInt(strings.TrimSpace(referrer), 10, 64)
	if err != nil || referrerID == newRobloxID {
		return
	}

	if _, err := s.repo.GetByRobloxID(ctx, referrerID); err != nil {
		s.logger.Debug(ctx, "referrer not found", "referrer_id", referrerID)
		return
	}

	if err := s.repo.AppendReferral(ctx, referrerID, accounts.Referral{RobloxID: newRobloxID}); err != nil {
		s.logger.Warn(ctx, "referral append failed", "referrer_id", referrerID, "error", err)
	}
}

// reissueChallenge handles a linked account asking to verify again: a new
// challenge replaces whatever the description held before.
func (s *Service) reissueChallenge(ctx context.Context, robloxID int64) (*Result, error) {

	ch, err := s.gen.Generate()
	if err != nil {
		return nil, shared.ErrorInternal
	}

	if err := s.repo.UpdateDescription(ctx, robloxID, ch); err != nil {
		s.logger.Error(ctx, "challenge persistence failed", "roblox_id", robloxID, "error", err)
		return nil, shared.ErrorInternal
	}

	if err := s.registry.Put(ctx, robloxID, ch); err != nil {
		s.logger.Error(ctx, "challenge registration failed", "roblox_id", robloxID, "error", err)
		return nil, shared.ErrorInternal
	}

	return &Result{Challenge: ch}, nil
}

// confirmChallenge verifies the live profile bio against the outstanding
// challenge. The upstream round trip happens without holding any registry
// state; consumption is re-validated afterwards via CompareAndRemove, so
// two concurrent confirmations cannot both spend one challenge.
func (s *Service) confirmChallenge(ctx context.Context, account *accounts.Account, outstanding, ip string) (*Result, error) {

	profile, err := s.client.GetProfileWithRetry(ctx, account.RobloxID)
	if err != nil {
		// Challenge stays registered: the user may simply retry later.
		s.logger.Warn(ctx, "bio verification fetch failed", "roblox_id", account.RobloxID, "error", err)
		return nil, shared.ErrorUpstreamUnavailable
	}

	if profile.Description != account.Description {
		// Stored description is left untouched so the stale challenge can
		// never be confirmed later; the user must restart the handshake.
		if _, err := s.registry.CompareAndRemove(ctx, account.RobloxID, outstanding); err != nil {
			s.logger.Error(ctx, "challenge removal failed", "roblox_id", account.RobloxID, "error", err)
		}
		return nil, shared.ErrorChallengeMismatch
	}

	fresh, err := s.gen.Generate()
	if err != nil {
		return nil, shared.ErrorInternal
	}

	thumbnail, err := s.client.GetAvatar(ctx, account.RobloxID)
	if err != nil {
		// Not worth failing a confirmed handshake over a thumbnail.
		s.logger.Warn(ctx, "avatar refresh failed", "roblox_id", account.RobloxID, "error", err)
		thumbnail = account.Thumbnail
	}

	// Durable overwrite first: if it fails the registry entry survives and
	// the handshake can be retried safely. Only after the description can
	// no longer be replayed is the challenge consumed.
	if err := s.repo.ConfirmLogin(ctx, account.RobloxID, fresh, thumbnail, ip); err != nil {
		s.logger.Error(ctx, "login confirmation write failed", "roblox_id", account.RobloxID, "error", err)
		return nil, shared.ErrorInternal
	}

	won, err := s.registry.CompareAndRemove(ctx, account.RobloxID, outstanding)
	if err != nil {
		s.logger.Error(ctx, "challenge consumption failed", "roblox_id", account.RobloxID, "error", err)
		return nil, shared.ErrorInternal
	}
	if !won {
		// A concurrent confirmation consumed or replaced the challenge.
		return nil, shared.ErrorChallengeMismatch
	}

	token, err := auth.GenerateToken(account.ID, account.RobloxID, account.Username, s.jwtSecret, s.tokenValidity)
	if err != nil {
		s.logger.Error(ctx, "token generation failed", "roblox_id", account.RobloxID, "error", err)
		return nil, shared.ErrorInternal
	}

	account.Description = fresh
	account.Thumbnail = thumbnail
	account.LastLogin = time.Now()

	return &Result{Token: token, Account: account}, nil
}

// AutoLogin returns the sanitized account for an authenticated user
// together with a fresh session token.
func (s *Service) AutoLogin(ctx context.Context, userID string) (*accounts.Account, string, error) {

	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, "", shared.ErrorNotFound
		}
		return nil, "", shared.ErrorInternal
	}

	token, err := auth.GenerateToken(account.ID, account.RobloxID, account.Username, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, "", shared.ErrorInternal
	}

	return account, token, nil
}

// RenewToken mints a fresh session token for an already verified identity.
func (s *Service) RenewToken(userID string, robloxID int64, username string) (string, error) {
	return auth.GenerateToken(userID, robloxID, username, s.jwtSecret, s.tokenValidity)
}

// ProfileStats is the public profile projection with the XP level curve
// applied.
type ProfileStats struct {
	Username  string    `json:"username"`
	TotalBets int64     `json:"totalBets"`
	GamesWon  int64     `json:"gamesWon"`
	Wagered   float64   `json:"wagered"`
	Profit    float64   `json:"profit"`
	XP        float64   `json:"xp"`
	XPMax     float64   `json:"xpMax"`
	Level     float64   `json:"level"`
	Thumbnail string    `json:"thumbnail"`
	JoinDate  time.Time `json:"joinDate"`
}

// Profile returns public stats for any linked account.
func (s *Service) Profile(ctx context.Context, robloxID int64) (*ProfileStats, error) {

	account, err := s.repo.GetByRobloxID(ctx, robloxID)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorNotFound
		}
		return nil, shared.ErrorInternal
	}

	nextLevel := math.Ceil(account.Level)
	nextLevelXP := math.Pow(nextLevel/s.xpConstant, 2)

	return &ProfileStats{
		Username:  account.Username,
		TotalBets: account.TotalBets,
		GamesWon:  account.GameWins,
		Wagered:   account.Wagered,
		Profit:    account.Withdrawn - account.Deposited,
		XP:        account.Wagered,
		XPMax:     nextLevelXP,
		Level:     account.Level,
		Thumbnail: account.Thumbnail,
		JoinDate:  account.CreatedAt,
	}, nil
}
