package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shadowbot/internal/bot"
	"shadowbot/internal/pdf"
)

func adminSpecs(d Deps) []bot.Spec {
	return []bot.Spec{
		{Name: "ban", Level: bot.LevelAdmin, Help: "Ban a user: ban <identity>", Fn: banHandler(d, true)},
		{Name: "unban", Level: bot.LevelAdmin, Help: "Unban a user: unban <identity>", Fn: banHandler(d, false)},
		{Name: "promote", Level: bot.LevelAdmin, Help: "Promote a group member: promote <identity>", Fn: roleHandler(d, true)},
		{Name: "demote", Level: bot.LevelAdmin, Help: "Demote a group member: demote <identity>", Fn: roleHandler(d, false)},
		{Name: "broadcast", Level: bot.LevelAdmin, Help: "Message all users: broadcast <text>", Fn: broadcastHandler(d)},
		{Name: "settings", Level: bot.LevelAdmin, Help: "Group settings: settings welcome <text> | commands on/off | spam on/off | reset", Fn: settingsHandler(d)},
		{Name: "stats", Level: bot.LevelAdmin, Help: "Show usage stats", Fn: statsHandler(d)},
		{Name: "report", Level: bot.LevelAdmin, Help: "Export stats as PDF", Fn: reportHandler(d)},
		{Name: "addcmd", Level: bot.LevelAdmin, Help: "Add a group command: addcmd <name> | <reply>", Fn: addcmdHandler(d)},
		{Name: "delcmd", Level: bot.LevelAdmin, Help: "Remove a group command: delcmd <name>", Fn: delcmdHandler(d)},
		{Name: "tagall", Level: bot.LevelAdmin, Help: "Mention every group member", Fn: tagallHandler(d)},
	}
}

// banHandler bans or unbans globally; inside a group the group ban set is
// updated as well, so the target cannot rejoin via a membership event.
func banHandler(d Deps, ban bool) bot.HandlerFunc {
	verb := "banned"
	if !ban {
		verb = "unbanned"
	}
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if len(inv.Args) == 0 {
			return &bot.Result{Text: fmt.Sprintf("Usage: %s <identity>", strings.TrimSuffix(verb, "ned"))}, nil
		}
		target := inv.Args[0]
		if target == inv.Identity {
			return &bot.Result{Text: "You cannot ban yourself."}, nil
		}
		intents := []bot.Intent{bot.SetBanned{Identity: target, Banned: ban}}
		if inv.IsGroup {
			if ban {
				intents = append(intents, bot.GroupBan{GroupID: inv.ConversationID, Identity: target, By: inv.Identity})
			} else {
				intents = append(intents, bot.GroupUnban{GroupID: inv.ConversationID, Identity: target})
			}
		}
		return &bot.Result{
			Text:    fmt.Sprintf("🔨 %s has been %s.", target, verb),
			Intents: intents,
		}, nil
	}
}

func roleHandler(d Deps, promote bool) bot.HandlerFunc {
	verb := "promoted to admin"
	usage := "promote"
	if !promote {
		verb = "demoted"
		usage = "demote"
	}
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if !inv.IsGroup {
			return &bot.Result{Text: "This command only works inside a group."}, nil
		}
		if len(inv.Args) == 0 {
			return &bot.Result{Text: fmt.Sprintf("Usage: %s <identity>", usage)}, nil
		}
		target := inv.Args[0]
		return &bot.Result{
			Text: fmt.Sprintf("👑 %s has been %s.", target, verb),
			Intents: []bot.Intent{bot.SetRole{
				GroupID:  inv.ConversationID,
				Identity: target,
				Promote:  promote,
			}},
		}, nil
	}
}

func broadcastHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if len(inv.Args) == 0 {
			return &bot.Result{Text: "Usage: broadcast <text>"}, nil
		}
		text := strings.Join(inv.Args, " ")
		return &bot.Result{
			Text:    "📢 Broadcast queued.",
			Intents: []bot.Intent{bot.Broadcast{Text: text, From: inv.Identity}},
		}, nil
	}
}

func settingsHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if !inv.IsGroup {
			return &bot.Result{Text: "Settings apply to groups only."}, nil
		}
		if len(inv.Args) == 0 {
			return &bot.Result{Text: "Usage: settings welcome <text> | settings commands on/off | settings spam on/off | settings reset"}, nil
		}
		key := strings.ToLower(inv.Args[0])
		if key == "reset" {
			return &bot.Result{
				Text:    "⚙️ Settings restored to defaults.",
				Intents: []bot.Intent{bot.UpdateGroupSettings{GroupID: inv.ConversationID, Reset: true}},
			}, nil
		}
		if len(inv.Args) < 2 {
			return &bot.Result{Text: "Usage: settings welcome <text> | settings commands on/off | settings spam on/off | settings reset"}, nil
		}
		value := strings.Join(inv.Args[1:], " ")

		intent := bot.UpdateGroupSettings{GroupID: inv.ConversationID}
		switch key {
		case "welcome":
			intent.WelcomeMessage = &value
		case "commands":
			on, err := parseToggle(value)
			if err != nil {
				return &bot.Result{Text: "Say on or off."}, nil
			}
			intent.CommandsOn = &on
		case "spam":
			on, err := parseToggle(value)
			if err != nil {
				return &bot.Result{Text: "Say on or off."}, nil
			}
			intent.SpamProtection = &on
		default:
			return &bot.Result{Text: fmt.Sprintf("Unknown setting %q.", key)}, nil
		}
		return &bot.Result{
			Text:    fmt.Sprintf("⚙️ Setting %s updated.", key),
			Intents: []bot.Intent{intent},
		}, nil
	}
}

func parseToggle(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("bad toggle %q", s)
}

func statsHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		users, err := d.Users.Stats(ctx)
		if err != nil {
			return nil, err
		}
		groups, err := d.Groups.Count(ctx)
		if err != nil {
			return nil, err
		}
		return &bot.Result{Text: fmt.Sprintf(
			"📈 *Stats*\nUsers: %d (%d banned)\nGroups: %d",
			users.Total, users.Banned, groups,
		)}, nil
	}
}

func reportHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		users, err := d.Users.Stats(ctx)
		if err != nil {
			return nil, err
		}
		groups, err := d.Groups.Count(ctx)
		if err != nil {
			return nil, err
		}
		data, err := d.PDF.GenerateStats(pdf.StatsData{
			GeneratedAt: time.Now(),
			BotName:     d.BotName,
			TotalUsers:  users.Total,
			BannedUsers: users.Banned,
			TotalGroups: groups,
		})
		if err != nil {
			return nil, fmt.Errorf("stats report: %w", err)
		}
		return &bot.Result{
			Text: "📄 Stats report",
			Media: &bot.MediaPayload{
				MIME:     "application/pdf",
				Filename: "stats.pdf",
				Data:     data,
			},
		}, nil
	}
}

func addcmdHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if !inv.IsGroup {
			return &bot.Result{Text: "Custom commands live in groups."}, nil
		}
		parts := bot.SplitList(inv.Args)
		if len(parts) < 2 {
			return &bot.Result{Text: "Usage: addcmd <name> | <reply text>"}, nil
		}
		name := strings.ToLower(parts[0])
		template := strings.Join(parts[1:], " | ")

		existing, err := d.Groups.Command(ctx, inv.ConversationID, name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &bot.Result{Text: fmt.Sprintf("Command %s%s already exists.", d.Prefix, name)}, nil
		}
		return &bot.Result{
			Text: fmt.Sprintf("Command %s%s added.", d.Prefix, name),
			Intents: []bot.Intent{bot.AddGroupCommand{
				GroupID:  inv.ConversationID,
				Name:     name,
				Template: template,
				By:       inv.Identity,
			}},
		}, nil
	}
}

func delcmdHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if !inv.IsGroup {
			return &bot.Result{Text: "Custom commands live in groups."}, nil
		}
		if len(inv.Args) == 0 {
			return &bot.Result{Text: "Usage: delcmd <name>"}, nil
		}
		name := strings.ToLower(inv.Args[0])
		return &bot.Result{
			Text:    fmt.Sprintf("Command %s%s removed.", d.Prefix, name),
			Intents: []bot.Intent{bot.RemoveGroupCommand{GroupID: inv.ConversationID, Name: name}},
		}, nil
	}
}

func tagallHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if !inv.IsGroup {
			return &bot.Result{Text: "This command only works inside a group."}, nil
		}
		members, err := d.Groups.Members(ctx, inv.ConversationID)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return &bot.Result{Text: "I don't know anyone in this group yet."}, nil
		}
		var b strings.Builder
		b.WriteString("📣 Everyone:\n")
		for _, id := range members {
			fmt.Fprintf(&b, "@%s ", id)
		}
		return &bot.Result{Text: strings.TrimSpace(b.String()), Mentions: members}, nil
	}
}
