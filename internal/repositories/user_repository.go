package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shadowbot/internal/models"
)

type UserPatch struct {
	Name     *string
	Email    *string
	Language *string
}

type UserRepository interface {
	FindByIdentity(ctx context.Context, identity string) (*models.User, error)
	// Upsert creates the row on first contact and returns the current state.
	Upsert(ctx context.Context, identity string) (*models.User, error)
	UpdateProfile(ctx context.Context, identity string, patch UserPatch) (*models.User, error)

	SetBanned(ctx context.Context, identity string, banned bool) error
	SetAdmin(ctx context.Context, identity string, admin bool) error

	// one-time code helpers
	SetCode(ctx context.Context, identity, codeHash string, expiresAt time.Time) error
	ClearCode(ctx context.Context, identity string) error

	// activity bookkeeping
	TouchActivity(ctx context.Context, identity, command string) error
	IncrementMessages(ctx context.Context, identity string) error

	ListAdmins(ctx context.Context) ([]*models.User, error)
	ListActiveIdentities(ctx context.Context) ([]string, error)
	Counts(ctx context.Context) (total, banned int, err error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `
	identity, name, email, language, is_admin, is_banned,
	last_active, created_at, code_hash, code_expires_at,
	messages_sent, commands_used, last_command
`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var (
		codeHash sql.NullString
		codeExp  sql.NullTime
	)
	err := row.Scan(
		&u.Identity, &u.Name, &u.Email, &u.Language, &u.IsAdmin, &u.IsBanned,
		&u.LastActive, &u.CreatedAt, &codeHash, &codeExp,
		&u.MessagesSent, &u.CommandsUsed, &u.LastCommand,
	)
	if err != nil {
		return nil, err
	}
	if codeHash.Valid {
		s := codeHash.String
		u.CodeHash = &s
	}
	if codeExp.Valid {
		t := codeExp.Time
		u.CodeExpiresAt = &t
	}
	return u, nil
}

func (r *userRepository) FindByIdentity(ctx context.Context, identity string) (*models.User, error) {
	q := `SELECT` + userColumns + `FROM users WHERE identity = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, identity))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *userRepository) Upsert(ctx context.Context, identity string) (*models.User, error) {
	q := `
		INSERT INTO users (identity)
		VALUES ($1)
		ON CONFLICT (identity) DO UPDATE SET identity = EXCLUDED.identity
		RETURNING` + userColumns
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, identity))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, identity string, patch UserPatch) (*models.User, error) {
	q := `
		UPDATE users
		SET name     = COALESCE($2, name),
		    email    = COALESCE($3, email),
		    language = COALESCE($4, language)
		WHERE identity = $1
		RETURNING` + userColumns
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, identity, patch.Name, patch.Email, patch.Language))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

func (r *userRepository) SetBanned(ctx context.Context, identity string, banned bool) error {
	if _, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_banned = $2 WHERE identity = $1`, identity, banned,
	); err != nil {
		return fmt.Errorf("set banned: %w", err)
	}
	return nil
}

func (r *userRepository) SetAdmin(ctx context.Context, identity string, admin bool) error {
	if _, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_admin = $2 WHERE identity = $1`, identity, admin,
	); err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return nil
}

func (r *userRepository) SetCode(ctx context.Context, identity, codeHash string, expiresAt time.Time) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE users SET code_hash = $2, code_expires_at = $3 WHERE identity = $1`,
		identity, codeHash, expiresAt,
	); err != nil {
		return fmt.Errorf("set code: %w", err)
	}
	return nil
}

func (r *userRepository) ClearCode(ctx context.Context, identity string) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE users SET code_hash = NULL, code_expires_at = NULL WHERE identity = $1`,
		identity,
	); err != nil {
		return fmt.Errorf("clear code: %w", err)
	}
	return nil
}

func (r *userRepository) TouchActivity(ctx context.Context, identity, command string) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET last_active = NOW(), commands_used = commands_used + 1, last_command = $2
		WHERE identity = $1`,
		identity, command,
	); err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	return nil
}

func (r *userRepository) IncrementMessages(ctx context.Context, identity string) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE users SET last_active = NOW(), messages_sent = messages_sent + 1
		WHERE identity = $1`,
		identity,
	); err != nil {
		return fmt.Errorf("increment messages: %w", err)
	}
	return nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]*models.User, error) {
	q := `SELECT` + userColumns + `FROM users WHERE is_admin = TRUE`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var res []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *userRepository) ListActiveIdentities(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT identity FROM users WHERE is_banned = FALSE ORDER BY identity`)
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

func (r *userRepository) Counts(ctx context.Context) (int, int, error) {
	var total, banned int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_banned) FROM users`,
	).Scan(&total, &banned)
	if err != nil {
		return 0, 0, fmt.Errorf("user counts: %w", err)
	}
	return total, banned, nil
}
