package commands

import (
	"context"
	"errors"
	"fmt"

	"shadowbot/internal/bot"
	"shadowbot/internal/services"
)

// JoinGreeter builds the JoinFunc: registers the group and members, then
// returns the rendered welcome with mentions.
func JoinGreeter(d Deps) bot.JoinFunc {
	return func(ctx context.Context, ev bot.Event) (*bot.Result, error) {
		text, mentions, err := d.Groups.HandleJoin(ctx, ev.ConversationID, ev.GroupName, ev.Joined)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, nil
		}
		return &bot.Result{Text: text, Mentions: mentions}, nil
	}
}

// DefaultHandler resolves unknown commands. In groups it first tries the
// group's custom command table; otherwise it points at help.
func DefaultHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if inv.IsGroup && inv.Command != "" {
			reply, ok, err := d.Groups.CustomReply(ctx, inv.ConversationID, inv.Command)
			if err != nil && !errors.Is(err, services.ErrCommandsDisabled) {
				return nil, err
			}
			if ok {
				return &bot.Result{Text: reply}, nil
			}
		}
		if inv.Command == "" {
			return &bot.Result{Text: fmt.Sprintf("Type %shelp to see available commands.", d.Prefix)}, nil
		}
		return &bot.Result{Text: fmt.Sprintf(
			"Unknown command %s%s. Type %shelp for the list.", d.Prefix, inv.Command, d.Prefix,
		)}, nil
	}
}

// ScanRules are the passive keyword triggers applied to plain messages.
func ScanRules(botName string) []bot.ScanRule {
	return []bot.ScanRule{
		{Keyword: "good morning", Reply: "Good morning! ☀️"},
		{Keyword: "good night", Reply: "Good night! 🌙"},
		{Keyword: botName, Reply: "You called? Type a command to get my attention properly."},
	}
}
