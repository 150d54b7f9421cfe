package user

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type jwtService interface {
	GenerateToken(userID int64, username, signingKey string) (string, error)
}

// Service contains account registration and login logic.
type Service struct {
	users Repository
	keys  KeyProvider
	jwt   jwtService
}

func NewService(users Repository, keys KeyProvider, jwt jwtService) *Service {
	return &Service{users: users, keys: keys, jwt: jwt}
}

type LoginResult struct {
	Token string
	User  *User
}

// Register creates an account: validates uniqueness, hashes the password,
// provisions a signing key on the ledger node, and persists the user. Key
// provisioning happens before the insert so a failed provision leaves no
// half-registered account.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	signingKey, err := s.keys.NewAccount(ctx)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		SigningKey:   signingKey,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	u.PasswordHash = ""
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == ErrUserNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(u.ID, u.Username, u.SigningKey)
	if err != nil {
		return nil, err
	}

	u.PasswordHash = ""
	return &LoginResult{Token: token, User: u}, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}
