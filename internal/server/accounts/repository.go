package accounts

import "context"

type Repository interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByRobloxID(ctx context.Context, robloxID int64) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)

	// UpdateDescription persists a new challenge (or a post-confirmation
	// random value) into the account's description slot.
	UpdateDescription(ctx context.Context, robloxID int64, description string) error

	// ConfirmLogin applies the durable half of challenge consumption in one
	// statement: overwrite the description, refresh the thumbnail, append
	// the requester IP to the access log and bump last_login.
	ConfirmLogin(ctx context.Context, robloxID int64, description, thumbnail, ip string) error

	// AppendReferral credits a zero-wagered referral to the referrer's
	// account.
	AppendReferral(ctx context.Context, referrerRobloxID int64, referral Referral) error
}
