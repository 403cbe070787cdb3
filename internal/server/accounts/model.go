// Package accounts owns the durable account records: one document per
// linked Roblox identity, with gameplay counters and the profile
// description slot the verification handshake writes into.
package accounts

import "time"

// AccessLogEntry records an IP observed at a successful login.
type AccessLogEntry struct {
	IP string    `json:"ip"`
	At time.Time `json:"at"`
}

// Referral credits the account that referred a newly linked one.
type Referral struct {
	RobloxID int64   `json:"robloxId"`
	Wagered  float64 `json:"wagered"`
}

type Account struct {
	ID          string
	RobloxID    int64
	Username    string
	DisplayName string

	// Description mirrors the account's Roblox profile bio. While a
	// handshake is outstanding it holds the issued challenge; it is
	// overwritten with a fresh random value immediately after confirmation
	// so a matching bio cannot be replayed.
	Description string

	Thumbnail string

	Level     float64
	Wagered   float64
	Deposited float64
	Withdrawn float64
	TotalBets int64
	GameWins  int64

	IPs       []AccessLogEntry
	Referrals []Referral

	CreatedAt time.Time
	LastLogin time.Time
}

// Public is the client-facing projection: no access log, no internal
// placeholders.
type Public struct {
	ID          string  `json:"id"`
	RobloxID    int64   `json:"robloxId"`
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	Thumbnail   string  `json:"thumbnail"`
	Level       float64 `json:"level"`
	Wagered     float64 `json:"wagered"`
	Deposited   float64 `json:"deposited"`
	Withdrawn   float64 `json:"withdrawn"`
}

// Public returns the sanitized projection of the account.
func (a *Account) Public() Public {
	return Public{
		ID:          a.ID,
		RobloxID:    a.RobloxID,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		Thumbnail:   a.Thumbnail,
		Level:       a.Level,
		Wagered:     a.Wagered,
		Deposited:   a.Deposited,
		Withdrawn:   a.Withdrawn,
	}
}
