package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shadowbot/internal/bot"
	"shadowbot/internal/models"
	"shadowbot/internal/services"
)

func authSpecs(d Deps) []bot.Spec {
	return []bot.Spec{
		{Name: "otp", Level: bot.LevelNone, Help: "Request a one-time login code", Fn: otpHandler(d)},
		{Name: "verify", Level: bot.LevelNone, Help: "Verify a code: verify <code>", Fn: verifyHandler(d)},
		{Name: "profile", Level: bot.LevelNone, Help: "Update your profile: profile name|email <value>", Fn: profileHandler(d)},
	}
}

func otpHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if inv.IsGroup {
			return &bot.Result{Text: "Request login codes in a direct chat, not in a group."}, nil
		}
		user, err := d.Users.Find(ctx, inv.Identity)
		if err != nil {
			return nil, err
		}
		code, err := d.Auth.RequestCode(ctx, inv.Identity)
		if err != nil {
			return nil, fmt.Errorf("request code: %w", err)
		}
		if user != nil && user.Email != "" {
			return &bot.Result{Text: "🔐 A login code was sent to your email."}, nil
		}
		return &bot.Result{Text: fmt.Sprintf(
			"🔐 Your login code: %s\nIt expires shortly. Confirm with verify <code>.", code,
		)}, nil
	}
}

func verifyHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if len(inv.Args) == 0 {
			return &bot.Result{Text: "Usage: verify <code>"}, nil
		}
		token, err := d.Auth.VerifyCode(ctx, inv.Identity, inv.Args[0])
		switch {
		case errors.Is(err, services.ErrCodeExpired):
			return &bot.Result{Text: "That code has expired. Request a new one with otp."}, nil
		case errors.Is(err, services.ErrCodeInvalid), errors.Is(err, services.ErrUserUnknown):
			return &bot.Result{Text: "That code is not valid."}, nil
		case err != nil:
			return nil, err
		}
		return &bot.Result{Text: "✅ Verified. Your API token:\n" + token}, nil
	}
}

func profileHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if len(inv.Args) < 2 {
			return &bot.Result{Text: "Usage: profile name <your name> | profile email <address> | profile language <code>"}, nil
		}
		field := strings.ToLower(inv.Args[0])
		value := strings.Join(inv.Args[1:], " ")

		intent := bot.UpdateProfile{Identity: inv.Identity}
		switch field {
		case "name":
			intent.Name = &value
		case "email":
			if !strings.Contains(value, "@") {
				return &bot.Result{Text: "That does not look like an email address."}, nil
			}
			intent.Email = &value
		case "language":
			code := strings.ToLower(value)
			if _, ok := models.SupportedLanguages[code]; !ok {
				return &bot.Result{Text: fmt.Sprintf("Unknown language %q.", code)}, nil
			}
			intent.Language = &code
		default:
			return &bot.Result{Text: fmt.Sprintf("Unknown profile field %q. Use name, email or language.", field)}, nil
		}
		return &bot.Result{
			Text:    fmt.Sprintf("Profile %s updated.", field),
			Intents: []bot.Intent{intent},
		}, nil
	}
}
