// Package user implements account registration, login and token issuing.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"newssense/internal/domain/entity"
	"newssense/internal/repository"
)

var (
	// ErrEmailTaken is returned by Register when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// paddingHash is compared against when the email is unknown so that a
// failed login takes as long whether or not the account exists.
var paddingHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("newssense-login-padding"), bcrypt.DefaultCost)
	return h
})

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Session is a freshly issued token together with its user.
type Session struct {
	Token string
	User  *entity.User
}

// Service handles registration and login.
type Service struct {
	Users  repository.UserRepository
	Tokens *TokenIssuer
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

// Register validates in, stores a new user and signs a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := entity.NormalizeEmail(in.Email)
	if err := entity.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := entity.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &entity.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		Preferences:  entity.Preference{}.Normalize(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, entity.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.session(u)
}

// Login checks the credentials and signs a token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.Users.GetByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(paddingHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// Authenticate resolves a bearer token to its user. Unknown users are
// reported as ErrInvalidToken.
func (s *Service) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	id, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	return u, nil
}

func (s *Service) session(u *entity.User) (*Session, error) {
	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}
