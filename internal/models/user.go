package models

import "time"

// SupportedLanguages maps language codes to display names.
var SupportedLanguages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"ja": "Japanese",
}

type User struct {
	Identity   string     `json:"identity"`
	Name       string     `json:"name,omitempty"`
	Email      string     `json:"email,omitempty"`
	Language   string     `json:"language"`
	IsAdmin    bool       `json:"is_admin"`
	IsBanned   bool       `json:"is_banned"`
	LastActive time.Time  `json:"last_active"`
	CreatedAt  time.Time  `json:"created_at"`

	// one-time code; hash only, never returned to clients
	CodeHash      *string    `json:"-"`
	CodeExpiresAt *time.Time `json:"-"`

	MessagesSent int    `json:"messages_sent"`
	CommandsUsed int    `json:"commands_used"`
	LastCommand  string `json:"last_command,omitempty"`
}

// CodeActive reports whether the user has an unexpired one-time code.
func (u *User) CodeActive(now time.Time) bool {
	return u.CodeHash != nil && u.CodeExpiresAt != nil && now.Before(*u.CodeExpiresAt)
}
