package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shadowbot/internal/repositories"
)

var (
	ErrCodeInvalid = errors.New("code invalid")
	ErrCodeExpired = errors.New("code expired")
	ErrUserUnknown = errors.New("user unknown")
)

const (
	defaultCodeTTL  = 5 * time.Minute
	sessionTokenTTL = 24 * time.Hour
)

type Claims struct {
	Identity string `json:"identity"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// AuthService owns the one-time-code lifecycle: generate on request, bcrypt
// hash at rest, consume on first successful verification or expiry, never
// reuse. A successful verification yields a session JWT for the status API.
type AuthService struct {
	Users     repositories.UserRepository
	Email     EmailService
	JWTSecret []byte
	CodeTTL   time.Duration

	now func() time.Time
	log *zap.Logger
}

func NewAuthService(users repositories.UserRepository, email EmailService, jwtSecret string, codeTTL time.Duration, log *zap.Logger) *AuthService {
	if codeTTL <= 0 {
		codeTTL = defaultCodeTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		Users:     users,
		Email:     email,
		JWTSecret: []byte(jwtSecret),
		CodeTTL:   codeTTL,
		now:       time.Now,
		log:       log,
	}
}

func (s *AuthService) generateCode() string {
	src := rand.NewSource(s.now().UnixNano())
	rnd := rand.New(src)
	return fmt.Sprintf("%06d", rnd.Intn(1000000))
}

// RequestCode creates (or refreshes) the user's one-time code and returns the
// plaintext for delivery. An email copy goes out when the user has an email
// on file; email failure does not fail the request.
func (s *AuthService) RequestCode(ctx context.Context, identity string) (string, error) {
	user, err := s.Users.Upsert(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("request code: %w", err)
	}

	code := s.generateCode()
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt generate: %w", err)
	}
	expiresAt := s.now().Add(s.CodeTTL)
	if err := s.Users.SetCode(ctx, identity, string(hashBytes), expiresAt); err != nil {
		return "", fmt.Errorf("request code: %w", err)
	}

	if s.Email != nil && user.Email != "" {
		if err := s.Email.SendCodeEmail(user.Email, code); err != nil {
			s.log.Warn("code email failed",
				zap.String("identity", identity), zap.Error(err))
		}
	}
	return code, nil
}

// VerifyCode consumes the code on success and returns a session token. The
// code is also cleared when found expired, so it can never be retried later.
func (s *AuthService) VerifyCode(ctx context.Context, identity, code string) (string, error) {
	user, err := s.Users.FindByIdentity(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("verify code: %w", err)
	}
	if user == nil {
		return "", ErrUserUnknown
	}
	if user.CodeHash == nil || user.CodeExpiresAt == nil {
		return "", ErrCodeInvalid
	}
	if !user.CodeActive(s.now()) {
		if err := s.Users.ClearCode(ctx, identity); err != nil {
			s.log.Warn("clearing expired code failed",
				zap.String("identity", identity), zap.Error(err))
		}
		return "", ErrCodeExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.CodeHash), []byte(code)); err != nil {
		return "", ErrCodeInvalid
	}

	if err := s.Users.ClearCode(ctx, identity); err != nil {
		return "", fmt.Errorf("consume code: %w", err)
	}
	return s.issueToken(user.Identity, user.IsAdmin)
}

func (s *AuthService) issueToken(identity string, isAdmin bool) (string, error) {
	now := s.now()
	claims := Claims{
		Identity: identity,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token from the status API.
func (s *AuthService) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
