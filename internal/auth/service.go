package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/groupchat-server/internal/store"
)

var (
	// ErrIncompleteData is returned when a required registration field is empty.
	ErrIncompleteData = errors.New("incomplete data")
	// ErrUserExists is returned when trying to register with an existing email.
	ErrUserExists = errors.New("account already exists")
	// ErrUserNotFound is returned when the email is not registered.
	ErrUserNotFound = errors.New("account does not exist")
	// ErrWrongPassword is returned when the password does not match.
	ErrWrongPassword = errors.New("wrong password")
	// ErrInvalidToken is returned when a token does not validate or names another user.
	ErrInvalidToken = errors.New("invalid token")
)

// Service provides account operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// ProfileUpdate carries the optional fields of a profile change.
// An empty Nickname keeps the current one; Avatar is applied only when AvatarSet.
type ProfileUpdate struct {
	Nickname  string
	Avatar    *string
	AvatarSet bool
}

// Register creates a new user with a hashed password.
func (s *Service) Register(ctx context.Context, email, password, nickname string) error {
	email = strings.TrimSpace(email)
	nickname = strings.TrimSpace(nickname)
	if email == "" || password == "" || nickname == "" {
		return ErrIncompleteData
	}

	if _, err := s.store.GetUser(ctx, email); err == nil {
		return ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.store.CreateUser(ctx, &store.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Nickname:     nickname,
	})
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Login validates credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*store.User, string, error) {
	user, err := s.store.GetUser(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return nil, "", ErrWrongPassword
	}

	token, err := GenerateToken(s.jwtConfig, user.Email, user.Nickname)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}

// UpdateProfile changes nickname and/or avatar of an existing user.
func (s *Service) UpdateProfile(ctx context.Context, email string, update ProfileUpdate) (*store.User, error) {
	user, err := s.store.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if nick := strings.TrimSpace(update.Nickname); nick != "" {
		user.Nickname = nick
	}
	if update.AvatarSet {
		user.Avatar = update.Avatar
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// VerifyIdentity checks that token was issued for email.
func (s *Service) VerifyIdentity(token, email string) error {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != email {
		return ErrInvalidToken
	}
	return nil
}
