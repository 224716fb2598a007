package store

import (
	"context"
	"fmt"

	"github.com/globaltrotters/apiserver/types"
	"github.com/jmoiron/sqlx"
)

// StatsRepository computes platform-wide aggregates.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) Stats(ctx context.Context, topCities int) (types.AdminStats, error) {
	const countsQuery = `
		SELECT
			(SELECT COUNT(1) FROM users) AS users,
			(SELECT COUNT(1) FROM trips) AS trips,
			(SELECT COUNT(1) FROM community_posts) AS posts,
			(SELECT COUNT(1) FROM cities) AS cities,
			(SELECT COUNT(1) FROM activities) AS activities`
	var stats types.AdminStats
	if err := r.db.GetContext(ctx, &stats, countsQuery); err != nil {
		return types.AdminStats{}, fmt.Errorf("count entities: %w", err)
	}

	const topQuery = `
		SELECT c.id AS city_id, c.name, c.country, COUNT(s.id) AS stops
		FROM cities c
		JOIN stops s ON s.city_id = c.id
		GROUP BY c.id, c.name, c.country
		ORDER BY stops DESC, c.name
		LIMIT $1`
	stats.TopCities = []types.CityCount{}
	if err := r.db.SelectContext(ctx, &stats.TopCities, topQuery, topCities); err != nil {
		return types.AdminStats{}, fmt.Errorf("top cities: %w", err)
	}
	return stats, nil
}
