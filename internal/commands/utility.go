package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"shadowbot/internal/bot"
	"shadowbot/internal/models"
)

func utilitySpecs(reg *bot.Registry, d Deps) []bot.Spec {
	return []bot.Spec{
		{Name: "help", Level: bot.LevelNone, Help: "List available commands", Fn: helpHandler(reg, d)},
		{Name: "about", Level: bot.LevelNone, Help: "About this bot", Fn: aboutHandler(d)},
		{Name: "ping", Level: bot.LevelNone, Help: "Check the bot is alive", Fn: pingHandler()},
		{Name: "me", Level: bot.LevelNone, Help: "Show your profile", Fn: meHandler(d)},
		{Name: "language", Level: bot.LevelNone, Help: "Set your language: language <code>", Fn: languageHandler()},
		{Name: "poll", Level: bot.LevelNone, Help: "Create a poll: poll question | option | option", Fn: pollHandler()},
		{Name: "remind", Level: bot.LevelNone, Help: "Set a reminder: remind 10m <text>", Fn: remindHandler()},
	}
}

func helpHandler(reg *bot.Registry, d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		var b strings.Builder
		fmt.Fprintf(&b, "*%s commands*\n\n", d.BotName)
		for _, name := range reg.Names() {
			spec, _ := reg.Lookup(name)
			marker := ""
			if spec.Level == bot.LevelAdmin {
				marker = " 🔒"
			}
			fmt.Fprintf(&b, "%s%s%s — %s\n", d.Prefix, name, marker, spec.Help)
		}
		return &bot.Result{Text: b.String()}, nil
	}
}

func aboutHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		uptime := time.Since(d.StartedAt).Round(time.Second)
		return &bot.Result{Text: fmt.Sprintf(
			"🤖 %s\nUptime: %s\nType %shelp to see what I can do.",
			d.BotName, uptime, d.Prefix,
		)}, nil
	}
}

func pingHandler() bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		return &bot.Result{Text: "pong 🏓"}, nil
	}
}

func meHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		u, err := d.Users.Find(ctx, inv.Identity)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return &bot.Result{Text: "No profile yet. Send any message first."}, nil
		}
		name := u.Name
		if name == "" {
			name = "(not set)"
		}
		email := u.Email
		if email == "" {
			email = "(not set)"
		}
		return &bot.Result{Text: fmt.Sprintf(
			"👤 *Your profile*\nName: %s\nEmail: %s\nLanguage: %s\nMessages: %d\nCommands: %d\nMember since: %s",
			name, email, u.Language, u.MessagesSent, u.CommandsUsed,
			u.CreatedAt.Format("02 Jan 2006"),
		)}, nil
	}
}

func languageHandler() bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if len(inv.Args) == 0 {
			codes := make([]string, 0, len(models.SupportedLanguages))
			for c := range models.SupportedLanguages {
				codes = append(codes, c)
			}
			sort.Strings(codes)
			return &bot.Result{Text: "Usage: language <code>\nAvailable: " + strings.Join(codes, ", ")}, nil
		}
		code := strings.ToLower(inv.Args[0])
		display, ok := models.SupportedLanguages[code]
		if !ok {
			return &bot.Result{Text: fmt.Sprintf("Unknown language %q.", code)}, nil
		}
		return &bot.Result{
			Text:    fmt.Sprintf("Language set to %s.", display),
			Intents: []bot.Intent{bot.UpdateProfile{Identity: inv.Identity, Language: &code}},
		}, nil
	}
}

func pollHandler() bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		parts := bot.SplitList(inv.Args)
		if len(parts) < 3 {
			return &bot.Result{Text: "Usage: poll question | option 1 | option 2"}, nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "📊 *%s*\n\n", parts[0])
		for i, opt := range parts[1:] {
			fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
		}
		b.WriteString("\nReply with the number of your choice.")
		return &bot.Result{Text: b.String()}, nil
	}
}

// parseDelay accepts either a Go duration ("10m", "1h30m") or a bare number
// of minutes.
func parseDelay(s string) (time.Duration, error) {
	if mins, err := strconv.Atoi(s); err == nil {
		if mins <= 0 {
			return 0, fmt.Errorf("delay must be positive")
		}
		return time.Duration(mins) * time.Minute, nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil || dur <= 0 {
		return 0, fmt.Errorf("bad delay %q", s)
	}
	return dur, nil
}

func remindHandler() bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if len(inv.Args) < 2 {
			return &bot.Result{Text: "Usage: remind 10m <text>"}, nil
		}
		delay, err := parseDelay(inv.Args[0])
		if err != nil {
			return &bot.Result{Text: "I did not understand that delay. Try 10m, 2h or a number of minutes."}, nil
		}
		text := strings.Join(inv.Args[1:], " ")
		return &bot.Result{
			Text: fmt.Sprintf("⏰ Got it, I will remind you in %s.", delay),
			Intents: []bot.Intent{bot.Remind{
				ConversationID: inv.ConversationID,
				Text:           text,
				After:          delay,
			}},
		}, nil
	}
}
