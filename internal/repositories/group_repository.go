package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"shadowbot/internal/models"
)

var ErrDuplicateCommand = errors.New("custom command already exists")

type GroupRepository interface {
	FindByGroupID(ctx context.Context, groupID string) (*models.Group, error)
	FindOrCreate(ctx context.Context, groupID, name, createdBy string) (*models.Group, error)
	UpdateSettings(ctx context.Context, groupID string, s models.GroupSettings) error
	TouchActivity(ctx context.Context, groupID string) error

	// membership; AddMember is idempotent and refuses banned identities
	AddMember(ctx context.Context, groupID, identity string, admin bool) error
	SetMemberAdmin(ctx context.Context, groupID, identity string, admin bool) error
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)

	// ban set; BanMember keeps members and bans disjoint
	BanMember(ctx context.Context, groupID, identity, bannedBy string) error
	UnbanMember(ctx context.Context, groupID, identity string) error
	IsBanned(ctx context.Context, groupID, identity string) (bool, error)

	// per-group custom commands
	AppendCommand(ctx context.Context, groupID, name, template, createdBy string) error
	RemoveCommand(ctx context.Context, groupID, name string) error
	FindCommand(ctx context.Context, groupID, name string) (*models.CustomCommand, error)
	ListCommands(ctx context.Context, groupID string) ([]models.CustomCommand, error)

	Count(ctx context.Context) (int, error)
}

type groupRepository struct {
	DB *sql.DB
}

func NewGroupRepository(db *sql.DB) GroupRepository {
	return &groupRepository{DB: db}
}

const groupColumns = `
	group_id, name, created_by, created_at, last_activity, message_count,
	welcome_message, goodbye_message, commands_enabled, spam_protection, language
`

func scanGroup(row interface{ Scan(...any) error }) (*models.Group, error) {
	g := &models.Group{}
	err := row.Scan(
		&g.GroupID, &g.Name, &g.CreatedBy, &g.CreatedAt, &g.LastActivity, &g.MessageCount,
		&g.Settings.WelcomeMessage, &g.Settings.GoodbyeMessage,
		&g.Settings.CommandsEnabled, &g.Settings.SpamProtection, &g.Settings.Language,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *groupRepository) FindByGroupID(ctx context.Context, groupID string) (*models.Group, error) {
	q := `SELECT` + groupColumns + `FROM groups WHERE group_id = $1`
	g, err := scanGroup(r.DB.QueryRowContext(ctx, q, groupID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find group: %w", err)
	}
	return g, nil
}

func (r *groupRepository) FindOrCreate(ctx context.Context, groupID, name, createdBy string) (*models.Group, error) {
	q := `
		INSERT INTO groups (group_id, name, created_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING` + groupColumns
	g, err := scanGroup(r.DB.QueryRowContext(ctx, q, groupID, name, createdBy))
	if err != nil {
		return nil, fmt.Errorf("find-or-create group: %w", err)
	}
	return g, nil
}

func (r *groupRepository) UpdateSettings(ctx context.Context, groupID string, s models.GroupSettings) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE groups
		SET welcome_message = $2, goodbye_message = $3,
		    commands_enabled = $4, spam_protection = $5, language = $6
		WHERE group_id = $1`,
		groupID, s.WelcomeMessage, s.GoodbyeMessage,
		s.CommandsEnabled, s.SpamProtection, s.Language,
	); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func (r *groupRepository) TouchActivity(ctx context.Context, groupID string) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE groups SET last_activity = NOW(), message_count = message_count + 1
		WHERE group_id = $1`,
		groupID,
	); err != nil {
		return fmt.Errorf("touch group activity: %w", err)
	}
	return nil
}

func (r *groupRepository) AddMember(ctx context.Context, groupID, identity string, admin bool) error {
	// banned identities never re-enter the member list
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO group_members (group_id, identity, is_admin)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (
			SELECT 1 FROM group_bans WHERE group_id = $1 AND identity = $2
		)
		ON CONFLICT (group_id, identity) DO NOTHING`,
		groupID, identity, admin,
	); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *groupRepository) SetMemberAdmin(ctx context.Context, groupID, identity string, admin bool) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE group_members SET is_admin = $3
		WHERE group_id = $1 AND identity = $2`,
		groupID, identity, admin,
	); err != nil {
		return fmt.Errorf("set member admin: %w", err)
	}
	return nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT identity, is_admin, joined_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY joined_at`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var res []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.Identity, &m.IsAdmin, &m.JoinedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// BanMember removes the identity from the member list and records the ban in
// one transaction so the two sets stay disjoint.
func (r *groupRepository) BanMember(ctx context.Context, groupID, identity, bannedBy string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ban member: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND identity = $2`,
		groupID, identity,
	); err != nil {
		return fmt.Errorf("ban member (remove): %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO group_bans (group_id, identity, banned_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, identity) DO NOTHING`,
		groupID, identity, bannedBy,
	); err != nil {
		return fmt.Errorf("ban member (record): %w", err)
	}
	return tx.Commit()
}

func (r *groupRepository) UnbanMember(ctx context.Context, groupID, identity string) error {
	if _, err := r.DB.ExecContext(ctx,
		`DELETE FROM group_bans WHERE group_id = $1 AND identity = $2`,
		groupID, identity,
	); err != nil {
		return fmt.Errorf("unban member: %w", err)
	}
	return nil
}

func (r *groupRepository) IsBanned(ctx context.Context, groupID, identity string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM group_bans WHERE group_id = $1 AND identity = $2`,
		groupID, identity,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ban lookup: %w", err)
	}
	return true, nil
}

func (r *groupRepository) AppendCommand(ctx context.Context, groupID, name, template, createdBy string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO group_commands (group_id, name, template, created_by)
		VALUES ($1, $2, $3, $4)`,
		groupID, name, template, createdBy,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateCommand
	}
	if err != nil {
		return fmt.Errorf("append command: %w", err)
	}
	return nil
}

func (r *groupRepository) RemoveCommand(ctx context.Context, groupID, name string) error {
	if _, err := r.DB.ExecContext(ctx,
		`DELETE FROM group_commands WHERE group_id = $1 AND name = $2`,
		groupID, name,
	); err != nil {
		return fmt.Errorf("remove command: %w", err)
	}
	return nil
}

func (r *groupRepository) FindCommand(ctx context.Context, groupID, name string) (*models.CustomCommand, error) {
	var c models.CustomCommand
	err := r.DB.QueryRowContext(ctx, `
		SELECT name, template, created_by, created_at
		FROM group_commands
		WHERE group_id = $1 AND name = $2`,
		groupID, name,
	).Scan(&c.Name, &c.Template, &c.CreatedBy, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find command: %w", err)
	}
	return &c, nil
}

func (r *groupRepository) ListCommands(ctx context.Context, groupID string) ([]models.CustomCommand, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT name, template, created_by, created_at
		FROM group_commands
		WHERE group_id = $1
		ORDER BY name`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	var res []models.CustomCommand
	for rows.Next() {
		var c models.CustomCommand
		if err := rows.Scan(&c.Name, &c.Template, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *groupRepository) Count(ctx context.Context) (int, error) {
	var c int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups`).Scan(&c)
	if err != nil {
		return 0, fmt.Errorf("group count: %w", err)
	}
	return c, nil
}
