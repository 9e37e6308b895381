package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"golang.org/x/crypto/bcrypt"
)

const RoleAdmin = "admin"

// AuthService guards the audit dashboard with a single admin password.
type AuthService struct {
	secret       []byte
	passwordHash []byte
	tokenTTL     time.Duration
	now          func() time.Time
}

// NewAuthService takes a bcrypt hash. Use HashPassword to derive one
// from a plaintext password at startup.
func NewAuthService(jwtSecret, passwordHash string, tokenTTL time.Duration) (*AuthService, error) {
	if jwtSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthService{
		secret:       []byte(jwtSecret),
		passwordHash: []byte(passwordHash),
		tokenTTL:     tokenTTL,
		now:          time.Now,
	}, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login returns a signed admin token and its expiry.
func (s *AuthService) Login(password string) (string, time.Time, error) {
	if len(s.passwordHash) == 0 {
		return "", time.Time{}, apperrors.Unauthorized("admin login is disabled")
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, apperrors.Unauthorized("invalid credentials")
	}

	expiresAt := s.now().Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  RoleAdmin,
		"role": RoleAdmin,
		"iat":  s.now().Unix(),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperrors.Internal(err)
	}
	return signed, expiresAt, nil
}
