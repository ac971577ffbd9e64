package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"papertrader/internal/models"
	"papertrader/internal/trading"
)

// Store is the persistence slice the auth service consumes.
type Store interface {
	InsertUser(ctx context.Context, item *models.User) error
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}

type Service struct {
	Store  Store
	JWT    JWT
	Logger *zap.Logger
}

type RegisterParams struct {
	Login     string `json:"login"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates a user. Logins are case-preserving but must be unique
// case-insensitively; emails are stored lowercased.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	params.Login = strings.TrimSpace(params.Login)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	if err := ValidateLogin(params.Login); err != nil {
		return nil, err
	}
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}
	if err := ValidateEmail(params.Email); err != nil {
		return nil, err
	}

	existing, err := s.Store.GetUserByLogin(ctx, params.Login)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("login %q is taken: %w", params.Login, trading.ErrValidation)
	}

	saltHex, hashHex, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Login:        params.Login,
		PasswordHash: hashHex,
		PasswordSalt: saltHex,
		Email:        params.Email,
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.Store.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", zap.Uint64("user_id", user.ID), zap.String("login", user.Login))
	}
	return user, nil
}

// Login verifies credentials and issues a signed token. Unknown login and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, login, password string) (token string, expiresAt time.Time, user *models.User, err error) {
	login = strings.TrimSpace(login)
	user, err = s.Store.GetUserByLogin(ctx, login)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	if user == nil || !CheckPassword(user.PasswordSalt, user.PasswordHash, password) {
		return "", time.Time{}, nil, fmt.Errorf("invalid credentials: %w", trading.ErrValidation)
	}

	token, expiresAt, err = s.JWT.Sign(Claims{UserID: user.ID, Login: user.Login})
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, expiresAt, user, nil
}
