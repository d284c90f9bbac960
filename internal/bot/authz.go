package bot

import (
	"context"

	"go.uber.org/zap"

	"shadowbot/internal/models"
)

type Level int

const (
	LevelNone Level = iota
	LevelAdmin
)

type UserFinder interface {
	FindByIdentity(ctx context.Context, identity string) (*models.User, error)
}

// Gate resolves whether an identity may run a command at a given level.
// Admin holds when the store flags the user as admin OR the transport reports
// a moderator role in the current conversation; either source suffices.
// Read-only, never errors out: lookup failures count as "no" for that branch.
type Gate struct {
	users     UserFinder
	transport Transport
	log       *zap.Logger
}

func NewGate(users UserFinder, transport Transport, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{users: users, transport: transport, log: log}
}

func (g *Gate) IsAuthorized(ctx context.Context, identity, conversationID string, level Level) bool {
	if level == LevelNone {
		return true
	}

	if u, err := g.users.FindByIdentity(ctx, identity); err != nil {
		g.log.Warn("authz store lookup failed", zap.String("identity", identity), zap.Error(err))
	} else if u != nil && u.IsAdmin {
		return true
	}

	role, err := g.transport.ConversationRole(ctx, conversationID, identity)
	if err != nil {
		// transport branch only; the store branch above already had its say
		g.log.Debug("authz transport lookup failed",
			zap.String("identity", identity),
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		return false
	}
	return role == RoleModerator
}
