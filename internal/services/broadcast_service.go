package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shadowbot/internal/bot"
	"shadowbot/internal/repositories"
)

// Broadcaster fans one message out to every non-banned user over their direct
// conversation. Per-recipient failures are counted and logged, not fatal.
type Broadcaster struct {
	Users     repositories.UserRepository
	Transport bot.Transport
	log       *zap.Logger
}

func NewBroadcaster(users repositories.UserRepository, transport bot.Transport, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{Users: users, Transport: transport, log: log}
}

func (b *Broadcaster) Broadcast(ctx context.Context, text, from string) (sent, failed int, err error) {
	ids, err := b.Users.ListActiveIdentities(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("broadcast: %w", err)
	}
	msg := fmt.Sprintf("📢 %s", text)
	for _, id := range ids {
		if id == from {
			continue
		}
		if err := b.Transport.Send(ctx, id, bot.Outgoing{Text: msg}); err != nil {
			failed++
			b.log.Warn("broadcast delivery failed",
				zap.String("identity", id), zap.Error(err))
			continue
		}
		sent++
	}
	b.log.Info("broadcast done",
		zap.String("from", from), zap.Int("sent", sent), zap.Int("failed", failed))
	return sent, failed, nil
}
