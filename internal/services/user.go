package services

import (
	"context"

	"github.com/globaltrotters/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, user types.User) (types.User, error)
	SetPhotoKey(ctx context.Context, id int, key *string) error
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
}

// UserService encapsulates user lookups shared by the auth and admin routes.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	return withPhotoURL(user), nil
}
