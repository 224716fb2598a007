package services

import (
	"context"

	"github.com/globaltrotters/apiserver/types"
)

const topCitiesInStats = 5

type StatsRepository interface {
	Stats(ctx context.Context, topCities int) (types.AdminStats, error)
}

// AdminService backs the admin dashboard.
type AdminService struct {
	users UserRepository
	stats StatsRepository
}

func NewAdminService(users UserRepository, stats StatsRepository) *AdminService {
	return &AdminService{users: users, stats: stats}
}

// ListUsers returns a page of users. limit is clamped to [1, 100].
func (s *AdminService) ListUsers(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	users, total, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		users[i] = withPhotoURL(users[i])
	}
	return orEmpty(users), total, nil
}

func (s *AdminService) Stats(ctx context.Context) (types.AdminStats, error) {
	return s.stats.Stats(ctx, topCitiesInStats)
}
