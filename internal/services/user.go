package services

import (
	"context"

	"github.com/messagely/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateLastLogin(ctx context.Context, username string) error
	List(ctx context.Context) ([]types.UserProfile, error)
}

// RegisterParams carries the fields needed to create an account.
type RegisterParams struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// UserService encapsulates registration and credential use-cases.
type UserService struct {
	repo       UserRepository
	bcryptCost int
}

func NewUserService(repo UserRepository, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, bcryptCost: bcryptCost}
}

// Register hashes the password and creates the account. The plaintext is
// never persisted; a duplicate username surfaces as store.ErrConflict.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Create(ctx, types.User{
		Username:     params.Username,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Phone:        params.Phone,
		PasswordHash: string(hashed),
	})
}

// Authenticate verifies the username/password pair. An unknown username
// surfaces as store.ErrNotFound; a wrong password as ok == false. Callers
// at the transport boundary must collapse the two into one outcome.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, bool, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return types.User{}, false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, false, nil
	}
	return user, true, nil
}

// TouchLastLogin stamps last_login_at after a successful authentication.
func (s *UserService) TouchLastLogin(ctx context.Context, username string) error {
	return s.repo.UpdateLastLogin(ctx, username)
}

func (s *UserService) Get(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context) ([]types.UserProfile, error) {
	return s.repo.List(ctx)
}
