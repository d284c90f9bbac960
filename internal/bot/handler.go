package bot

import (
	"context"
	"time"
)

// Result is what a handler returns: the reply to emit plus any persisted-state
// mutations, expressed as intents so the dispatcher applies and logs them
// uniformly. Handlers never touch the transport directly.
type Result struct {
	Text     string
	Media    *MediaPayload
	Mentions []string
	Intents  []Intent
}

type HandlerFunc func(ctx context.Context, inv *Invocation) (*Result, error)

// Spec registers one handler under one command name at a required level.
type Spec struct {
	Name  string
	Level Level
	Help  string
	Fn    HandlerFunc
}

// Intent is a tagged state mutation requested by a handler. Applied after the
// reply is sent; application failures are logged, never surfaced to the user.
type Intent interface {
	IntentName() string
}

type SetBanned struct {
	Identity string
	Banned   bool
}

func (SetBanned) IntentName() string { return "set_banned" }

type GroupBan struct {
	GroupID  string
	Identity string
	By       string
}

func (GroupBan) IntentName() string { return "group_ban" }

type GroupUnban struct {
	GroupID  string
	Identity string
}

func (GroupUnban) IntentName() string { return "group_unban" }

// SetRole changes a member's role on both the transport and the store; the
// applier owns the compensation policy when one side fails.
type SetRole struct {
	GroupID  string
	Identity string
	Promote  bool
}

func (SetRole) IntentName() string { return "set_role" }

type UpdateProfile struct {
	Identity string
	Name     *string
	Email    *string
	Language *string
}

func (UpdateProfile) IntentName() string { return "update_profile" }

type UpdateGroupSettings struct {
	GroupID        string
	Reset          bool
	WelcomeMessage *string
	CommandsOn     *bool
	SpamProtection *bool
}

func (UpdateGroupSettings) IntentName() string { return "update_group_settings" }

type AddGroupCommand struct {
	GroupID  string
	Name     string
	Template string
	By       string
}

func (AddGroupCommand) IntentName() string { return "add_group_command" }

type RemoveGroupCommand struct {
	GroupID string
	Name    string
}

func (RemoveGroupCommand) IntentName() string { return "remove_group_command" }

type Broadcast struct {
	Text string
	From string
}

func (Broadcast) IntentName() string { return "broadcast" }

type Remind struct {
	ConversationID string
	Text           string
	After          time.Duration
}

func (Remind) IntentName() string { return "remind" }

// StateApplier executes intents against the store/transport collaborators.
type StateApplier interface {
	Apply(ctx context.Context, in Intent) error
}
