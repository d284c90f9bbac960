package commands

import (
	"time"

	"go.uber.org/zap"

	"shadowbot/internal/bot"
	"shadowbot/internal/content"
	"shadowbot/internal/media"
	"shadowbot/internal/pdf"
	"shadowbot/internal/services"
)

// Deps carries every collaborator the command handlers close over. Handlers
// only read state directly; writes go out as intents on the Result.
type Deps struct {
	Prefix    string
	BotName   string
	StartedAt time.Time

	Users  *services.UserService
	Groups *services.GroupService
	Auth   *services.AuthService
	Media  media.Pipeline
	Tables *content.Tables
	PDF    pdf.Generator

	Log *zap.Logger
}

// Register wires every built-in command into the registry. Panics on a
// duplicate name; that is a startup wiring bug.
func Register(reg *bot.Registry, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	reg.MustRegister(utilitySpecs(reg, d)...)
	reg.MustRegister(entertainmentSpecs(d)...)
	reg.MustRegister(mediaSpecs(d)...)
	reg.MustRegister(authSpecs(d)...)
	reg.MustRegister(adminSpecs(d)...)
}
