package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const defaultSessionTTL = 7 * 24 * time.Hour

type AuthService struct {
	Repo       *repo.GormRepo
	Events     events.Publisher
	Secret     []byte
	SessionTTL time.Duration
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, fmt.Errorf("email, password and name are required: %w", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{Email: email, PasswordHash: pwHash, Name: name}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("email %s already registered: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	events.Emit(ctx, s.Events, events.UserRegistered, user.ID, map[string]any{
		"userID": user.ID,
		"role":   user.Role,
	})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.Repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no user with email %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Logout empties the cart; carts do not outlive a session.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	n, err := s.Repo.DeleteAllFromCart(ctx, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	events.Emit(ctx, s.Events, events.CartCleared, userID, map[string]any{
		"userID": userID,
		"reason": "logout",
		"lines":  n,
	})
	return nil
}

func (s *AuthService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) PromoteAdmin(ctx context.Context, email string) error {
	if err := s.Repo.SetUserRole(ctx, NormalizeEmail(email), models.RoleAdmin); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s: %w", email, ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *AuthService) IssueSession(user *models.User) (string, time.Time, error) {
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	exp := time.Now().Add(ttl)
	tok, err := tokens.IssueSession(user.ID, s.Secret, exp)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}
