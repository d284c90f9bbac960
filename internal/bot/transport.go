package bot

import "context"

type EventKind int

const (
	KindMessage EventKind = iota
	KindJoin
)

// Event is one inbound occurrence delivered by the transport session.
type Event struct {
	ID             string
	Kind           EventKind
	Identity       string
	ConversationID string
	GroupName      string
	Text           string
	IsGroup        bool
	FromSelf       bool

	// identities that entered the conversation, for KindJoin
	Joined []string

	// inbound attachment, if any
	Media     []byte
	MediaMIME string
}

type MediaPayload struct {
	MIME     string
	Filename string
	Data     []byte
}

// Outgoing is the single reply contract: text and/or media, optional mentions.
type Outgoing struct {
	Text     string
	Media    *MediaPayload
	Mentions []string
}

type Role int

const (
	RoleNone Role = iota
	RoleMember
	RoleModerator
)

// Transport is the injected session capability. Reconnects and protocol
// details are its problem, not the dispatcher's.
type Transport interface {
	Send(ctx context.Context, conversationID string, out Outgoing) error
	ConversationRole(ctx context.Context, conversationID, identity string) (Role, error)
}
