package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bloxpvp/robloxlink/internal/shared"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

const accountColumns = `id, roblox_id, username, display_name, description, thumbnail,
	level, wagered, deposited, withdrawn, total_bets, game_wins,
	ips, referrals, created_at, last_login`

func (r *PostgresRepository) Create(ctx context.Context, account *Account) (*Account, error) {

	query :=
		`INSERT INTO accounts (id, roblox_id, username, display_name, description, thumbnail)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, last_login
		 `

	account.ID = uuid.NewString()

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.RobloxID, account.Username, account.DisplayName,
		account.Description, account.Thumbnail).Scan(&account.CreatedAt, &account.LastLogin)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) scanAccount(row *sql.Row) (*Account, error) {
	account := &Account{}
	var ips, referrals []byte
	var createdAt, lastLogin time.Time

	err := row.Scan(&account.ID, &account.RobloxID, &account.Username, &account.DisplayName,
		&account.Description, &account.Thumbnail,
		&account.Level, &account.Wagered, &account.Deposited, &account.Withdrawn,
		&account.TotalBets, &account.GameWins,
		&ips, &referrals, &createdAt, &lastLogin)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	if err := json.Unmarshal(ips, &account.IPs); err != nil {
		return nil, fmt.Errorf("error decoding access log: %w", err)
	}
	if err := json.Unmarshal(referrals, &account.Referrals); err != nil {
		return nil, fmt.Errorf("error decoding referrals: %w", err)
	}

	account.CreatedAt = createdAt
	account.LastLogin = lastLogin

	return account, nil
}

func (r *PostgresRepository) GetByRobloxID(ctx context.Context, robloxID int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE roblox_id = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, robloxID))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateDescription(ctx context.Context, robloxID int64, description string) error {

	query := `UPDATE accounts SET description = $2 WHERE roblox_id = $1`

	res, err := r.db.ExecContext(ctx, query, robloxID, description)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return requireRow(res)
}

func (r *PostgresRepository) ConfirmLogin(ctx context.Context, robloxID int64, description, thumbnail, ip string) error {

	query :=
		`UPDATE accounts
		 SET description = $2,
		     thumbnail = $3,
		     ips = ips || jsonb_build_object('ip', $4::text, 'at', now()),
		     last_login = now()
		 WHERE roblox_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, robloxID, description, thumbnail, ip)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return requireRow(res)
}

func (r *PostgresRepository) AppendReferral(ctx context.Context, referrerRobloxID int64, referral Referral) error {

	query :=
		`UPDATE accounts
		 SET referrals = referrals || jsonb_build_object('robloxId', $2::bigint, 'wagered', $3::float8)
		 WHERE roblox_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, referrerRobloxID, referral.RobloxID, referral.Wagered)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrorNotFound
	}
	return nil
}
