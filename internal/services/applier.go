package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shadowbot/internal/bot"
	"shadowbot/internal/repositories"
	"shadowbot/internal/scheduler"
)

// IntentApplier executes the state mutations handlers request, one switch arm
// per intent kind. It is the only place handler-driven writes happen.
type IntentApplier struct {
	UserSvc   *UserService
	GroupSvc  *GroupService
	Cast      *Broadcaster
	Sched     *scheduler.Scheduler
	Transport bot.Transport
	log       *zap.Logger
}

func NewIntentApplier(users *UserService, groups *GroupService, cast *Broadcaster, sched *scheduler.Scheduler, transport bot.Transport, log *zap.Logger) *IntentApplier {
	if log == nil {
		log = zap.NewNop()
	}
	return &IntentApplier{
		UserSvc:   users,
		GroupSvc:  groups,
		Cast:      cast,
		Sched:     sched,
		Transport: transport,
		log:       log,
	}
}

func (a *IntentApplier) Apply(ctx context.Context, in bot.Intent) error {
	switch v := in.(type) {
	case bot.SetBanned:
		return a.UserSvc.SetBanned(ctx, v.Identity, v.Banned)

	case bot.GroupBan:
		return a.GroupSvc.Ban(ctx, v.GroupID, v.Identity, v.By)

	case bot.GroupUnban:
		return a.GroupSvc.Unban(ctx, v.GroupID, v.Identity)

	case bot.SetRole:
		return a.GroupSvc.SetRole(ctx, v.GroupID, v.Identity, v.Promote)

	case bot.UpdateProfile:
		_, err := a.UserSvc.UpdateProfile(ctx, v.Identity, repositories.UserPatch{
			Name:     v.Name,
			Email:    v.Email,
			Language: v.Language,
		})
		return err

	case bot.UpdateGroupSettings:
		return a.GroupSvc.UpdateSettings(ctx, v.GroupID, SettingsPatch{
			Reset:          v.Reset,
			WelcomeMessage: v.WelcomeMessage,
			CommandsOn:     v.CommandsOn,
			SpamProtection: v.SpamProtection,
		})

	case bot.AddGroupCommand:
		return a.GroupSvc.AddCommand(ctx, v.GroupID, v.Name, v.Template, v.By)

	case bot.RemoveGroupCommand:
		return a.GroupSvc.RemoveCommand(ctx, v.GroupID, v.Name)

	case bot.Broadcast:
		_, _, err := a.Cast.Broadcast(ctx, v.Text, v.From)
		return err

	case bot.Remind:
		conversationID := v.ConversationID
		text := v.Text
		a.Sched.Schedule(v.After, func(taskCtx context.Context) {
			if err := a.Transport.Send(taskCtx, conversationID, bot.Outgoing{
				Text: "⏰ Reminder: " + text,
			}); err != nil {
				a.log.Warn("reminder delivery failed",
					zap.String("conversation_id", conversationID), zap.Error(err))
			}
		})
		return nil

	default:
		return fmt.Errorf("unknown intent %q", in.IntentName())
	}
}
