package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shadowbot/internal/models"
	"shadowbot/internal/repositories"
)

var (
	ErrUnknownLanguage = errors.New("unsupported language")
	ErrNotAllowlisted  = errors.New("identity not in admin allowlist")
)

type UserService struct {
	Users     repositories.UserRepository
	Email     EmailService
	allowlist map[string]bool
	log       *zap.Logger
}

func NewUserService(users repositories.UserRepository, email EmailService, adminAllowlist []string, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	allow := make(map[string]bool, len(adminAllowlist))
	for _, id := range adminAllowlist {
		allow[strings.TrimSpace(id)] = true
	}
	return &UserService{Users: users, Email: email, allowlist: allow, log: log}
}

func (s *UserService) Find(ctx context.Context, identity string) (*models.User, error) {
	return s.Users.FindByIdentity(ctx, identity)
}

func (s *UserService) UpdateProfile(ctx context.Context, identity string, patch repositories.UserPatch) (*models.User, error) {
	if patch.Language != nil {
		lang := strings.ToLower(*patch.Language)
		if _, ok := models.SupportedLanguages[lang]; !ok {
			return nil, ErrUnknownLanguage
		}
		patch.Language = &lang
	}
	user, err := s.Users.UpdateProfile(ctx, identity, patch)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("profile update for unknown identity %s", identity)
	}
	return user, nil
}

func (s *UserService) SetBanned(ctx context.Context, identity string, banned bool) error {
	if err := s.Users.SetBanned(ctx, identity, banned); err != nil {
		return err
	}
	s.log.Info("global ban updated",
		zap.String("identity", identity), zap.Bool("banned", banned))
	s.notifyAdmins(ctx, identity, banned)
	return nil
}

// notifyAdmins emails every admin with an address on file about a ban change.
// Delivery failures are logged, never surfaced to the caller.
func (s *UserService) notifyAdmins(ctx context.Context, identity string, banned bool) {
	if s.Email == nil {
		return
	}
	admins, err := s.Users.ListAdmins(ctx)
	if err != nil {
		s.log.Warn("admin listing failed", zap.Error(err))
		return
	}
	verb := "unbanned"
	if banned {
		verb = "banned"
	}
	subject := fmt.Sprintf("User %s was %s", identity, verb)
	body := fmt.Sprintf("<p>User <strong>%s</strong> was %s.</p>", identity, verb)
	for _, admin := range admins {
		if admin.Email == "" {
			continue
		}
		if err := s.Email.SendAdminNotice(admin.Email, subject, body); err != nil {
			s.log.Warn("admin notice failed",
				zap.String("email", admin.Email), zap.Error(err))
		}
	}
}

// GrantAdmin flips the global admin flag. Grants are restricted to the
// configured allowlist; revokes are not.
func (s *UserService) GrantAdmin(ctx context.Context, identity string, admin bool) error {
	if admin && !s.allowlist[identity] {
		return ErrNotAllowlisted
	}
	return s.Users.SetAdmin(ctx, identity, admin)
}

func (s *UserService) IsAllowlisted(identity string) bool {
	return s.allowlist[identity]
}

type UserStats struct {
	Total  int
	Banned int
}

func (s *UserService) Stats(ctx context.Context) (UserStats, error) {
	total, banned, err := s.Users.Counts(ctx)
	if err != nil {
		return UserStats{}, err
	}
	return UserStats{Total: total, Banned: banned}, nil
}
