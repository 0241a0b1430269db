package service

// AuthService sits between the auth handlers and the user store:
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// It never touches cookies or requests; the handler decides how the issued
// token reaches the client.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/auth"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/repository"
)

const (
	MinLoginLength    = 3
	MaxLoginLength    = 40
	MinPasswordLength = 8
)

// ErrInvalidCredentials is returned by LoginLocal for an unknown login or a
// wrong password. The two cases are not distinguished.
var ErrInvalidCredentials = errors.New("service/auth: invalid login or password")

// AuthService handles sign-in for GitHub and local profiles.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user with the token issued for them.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterGitHub upserts the GitHub user and issues a token.
// The GitHub ID is stable, so repeated logins update the same user.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:  ghUser.ID,
		Login:     ghUser.Login,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return s.issue(user)
}

// RegisterLocal creates a password-protected profile and signs it in.
func (s *AuthService) RegisterLocal(ctx context.Context, login, password string) (*AuthResult, error) {
	login = strings.TrimSpace(login)
	if n := utf8.RuneCountInString(login); n < MinLoginLength || n > MaxLoginLength {
		return nil, apperror.ValidationFailed("login",
			fmt.Sprintf("login must be between %d and %d characters", MinLoginLength, MaxLoginLength))
	}
	if strings.ContainsAny(login, " \t\r\n") {
		return nil, apperror.ValidationFailed("login", "login must not contain whitespace")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Login: login, PasswordHash: hash}
	if err := s.users.CreateLocalUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating profile %q: %w", login, err)
	}

	s.logger.Info("local profile registered",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return s.issue(user)
}

// LoginLocal checks a login and password and issues a token. GitHub users
// have no password and cannot sign in this way.
func (s *AuthService) LoginLocal(ctx context.Context, login, password string) (*AuthResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service/auth: fetching user %q: %w", login, err)
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Warn("failed local login", slog.String("login", login))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user authenticated with password",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return s.issue(user)
}

// GetUserByID backs /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken returns the user ID carried by tokenStr.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
