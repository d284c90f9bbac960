package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shadowbot/internal/bot"
	"shadowbot/internal/models"
	"shadowbot/internal/repositories"
)

var ErrCommandsDisabled = errors.New("custom commands disabled for this group")

// RoleChanger is the optional transport capability for changing a member's
// role inside a conversation. Transports without it still work; role changes
// then only touch the store.
type RoleChanger interface {
	SetConversationRole(ctx context.Context, conversationID, identity string, promote bool) error
}

type GroupService struct {
	Groups    repositories.GroupRepository
	Users     repositories.UserRepository
	Transport bot.Transport
	log       *zap.Logger
}

func NewGroupService(groups repositories.GroupRepository, users repositories.UserRepository, transport bot.Transport, log *zap.Logger) *GroupService {
	if log == nil {
		log = zap.NewNop()
	}
	return &GroupService{Groups: groups, Users: users, Transport: transport, log: log}
}

// HandleJoin registers the group and the joined identities and returns the
// rendered welcome line plus the identities to mention. Banned identities are
// skipped and never greeted. Re-delivered join events are harmless:
// membership writes are idempotent.
func (s *GroupService) HandleJoin(ctx context.Context, groupID, groupName string, joined []string) (string, []string, error) {
	group, err := s.Groups.FindOrCreate(ctx, groupID, groupName, "")
	if err != nil {
		return "", nil, fmt.Errorf("handle join: %w", err)
	}

	var mentions []string
	var names []string
	for _, identity := range joined {
		banned, err := s.Groups.IsBanned(ctx, groupID, identity)
		if err != nil {
			return "", nil, fmt.Errorf("handle join: %w", err)
		}
		if banned {
			s.log.Info("banned identity ignored on join",
				zap.String("group_id", groupID),
				zap.String("identity", identity))
			continue
		}
		user, err := s.Users.Upsert(ctx, identity)
		if err != nil {
			return "", nil, fmt.Errorf("handle join: %w", err)
		}
		if err := s.Groups.AddMember(ctx, groupID, identity, false); err != nil {
			return "", nil, fmt.Errorf("handle join: %w", err)
		}
		mentions = append(mentions, identity)
		name := user.Name
		if name == "" {
			name = identity
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", nil, nil
	}
	s.touch(ctx, groupID)
	return group.RenderWelcome(strings.Join(names, ", ")), mentions, nil
}

// touch bumps the group's activity counters; failures are logged only.
func (s *GroupService) touch(ctx context.Context, groupID string) {
	if err := s.Groups.TouchActivity(ctx, groupID); err != nil {
		s.log.Warn("group activity update failed",
			zap.String("group_id", groupID), zap.Error(err))
	}
}

// SetRole changes a member's role on the transport and in the store. The
// transport goes first; a store failure gets one retry, and if that also
// fails the transport change is rolled back so the two sides never diverge.
func (s *GroupService) SetRole(ctx context.Context, groupID, identity string, promote bool) error {
	rc, _ := s.Transport.(RoleChanger)
	if rc != nil {
		if err := rc.SetConversationRole(ctx, groupID, identity, promote); err != nil {
			return fmt.Errorf("transport role change: %w", err)
		}
	}

	err := s.Groups.SetMemberAdmin(ctx, groupID, identity, promote)
	if err != nil {
		s.log.Warn("member role write failed, retrying",
			zap.String("group_id", groupID),
			zap.String("identity", identity),
			zap.Error(err))
		err = s.Groups.SetMemberAdmin(ctx, groupID, identity, promote)
	}
	if err == nil {
		return nil
	}

	if rc != nil {
		if rbErr := rc.SetConversationRole(ctx, groupID, identity, !promote); rbErr != nil {
			s.log.Error("role rollback failed, transport and store diverged",
				zap.String("group_id", groupID),
				zap.String("identity", identity),
				zap.Error(rbErr))
		}
	}
	return fmt.Errorf("store role change: %w", err)
}

func (s *GroupService) Ban(ctx context.Context, groupID, identity, by string) error {
	if err := s.Groups.BanMember(ctx, groupID, identity, by); err != nil {
		return err
	}
	s.log.Info("group ban",
		zap.String("group_id", groupID),
		zap.String("identity", identity),
		zap.String("by", by))
	return nil
}

func (s *GroupService) Unban(ctx context.Context, groupID, identity string) error {
	return s.Groups.UnbanMember(ctx, groupID, identity)
}

// SettingsPatch carries partial settings changes; Reset discards the stored
// settings first, so a patch with Reset alone restores the defaults.
type SettingsPatch struct {
	Reset          bool
	WelcomeMessage *string
	CommandsOn     *bool
	SpamProtection *bool
}

func (s *GroupService) UpdateSettings(ctx context.Context, groupID string, patch SettingsPatch) error {
	group, err := s.Groups.FindByGroupID(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return fmt.Errorf("unknown group %s", groupID)
	}
	settings := group.Settings
	if patch.Reset {
		settings = models.DefaultGroupSettings()
	}
	if patch.WelcomeMessage != nil {
		settings.WelcomeMessage = *patch.WelcomeMessage
	}
	if patch.CommandsOn != nil {
		settings.CommandsEnabled = *patch.CommandsOn
	}
	if patch.SpamProtection != nil {
		settings.SpamProtection = *patch.SpamProtection
	}
	return s.Groups.UpdateSettings(ctx, groupID, settings)
}

func (s *GroupService) AddCommand(ctx context.Context, groupID, name, template, by string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || template == "" {
		return fmt.Errorf("command name and template are required")
	}
	return s.Groups.AppendCommand(ctx, groupID, name, template, by)
}

func (s *GroupService) RemoveCommand(ctx context.Context, groupID, name string) error {
	return s.Groups.RemoveCommand(ctx, groupID, strings.ToLower(strings.TrimSpace(name)))
}

// CustomReply resolves a per-group command template. Returns ok=false when
// the group has no such command; ErrCommandsDisabled when the group opted out.
func (s *GroupService) CustomReply(ctx context.Context, groupID, name string) (string, bool, error) {
	group, err := s.Groups.FindByGroupID(ctx, groupID)
	if err != nil {
		return "", false, err
	}
	if group == nil {
		return "", false, nil
	}
	if !group.Settings.CommandsEnabled {
		return "", false, ErrCommandsDisabled
	}
	cmd, err := s.Groups.FindCommand(ctx, groupID, strings.ToLower(name))
	if err != nil {
		return "", false, err
	}
	if cmd == nil {
		return "", false, nil
	}
	s.touch(ctx, groupID)
	return cmd.Template, true, nil
}

func (s *GroupService) Commands(ctx context.Context, groupID string) ([]models.CustomCommand, error) {
	return s.Groups.ListCommands(ctx, groupID)
}

func (s *GroupService) Command(ctx context.Context, groupID, name string) (*models.CustomCommand, error) {
	return s.Groups.FindCommand(ctx, groupID, strings.ToLower(strings.TrimSpace(name)))
}

// Members returns the member identities, for mention-everyone style replies.
func (s *GroupService) Members(ctx context.Context, groupID string) ([]string, error) {
	members, err := s.Groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.Identity)
	}
	return ids, nil
}

func (s *GroupService) Count(ctx context.Context) (int, error) {
	return s.Groups.Count(ctx)
}
