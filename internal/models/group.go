package models

import (
	"strings"
	"time"
)

type GroupMember struct {
	Identity string    `json:"identity"`
	IsAdmin  bool      `json:"is_admin"`
	JoinedAt time.Time `json:"joined_at"`
}

type CustomCommand struct {
	Name      string    `json:"name"`
	Template  string    `json:"template"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type GroupSettings struct {
	WelcomeMessage  string `json:"welcome_message"`
	GoodbyeMessage  string `json:"goodbye_message"`
	CommandsEnabled bool   `json:"commands_enabled"`
	SpamProtection  bool   `json:"spam_protection"`
	Language        string `json:"language"`
}

func DefaultGroupSettings() GroupSettings {
	return GroupSettings{
		WelcomeMessage:  "Welcome {name} to {group}!",
		GoodbyeMessage:  "Goodbye {name}!",
		CommandsEnabled: true,
		SpamProtection:  true,
		Language:        "en",
	}
}

type Group struct {
	GroupID      string        `json:"group_id"`
	Name         string        `json:"name"`
	CreatedBy    string        `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
	MessageCount int           `json:"message_count"`
	Settings     GroupSettings `json:"settings"`
}

// RenderWelcome fills the welcome template placeholders.
func (g *Group) RenderWelcome(name string) string {
	if name == "" {
		name = "friend"
	}
	out := strings.ReplaceAll(g.Settings.WelcomeMessage, "{name}", name)
	return strings.ReplaceAll(out, "{group}", g.Name)
}
