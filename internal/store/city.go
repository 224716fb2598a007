package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/globaltrotters/apiserver/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// CityRepository handles lookups over cities and activities.
type CityRepository struct {
	db *sqlx.DB
}

func NewCityRepository(db *sqlx.DB) *CityRepository {
	return &CityRepository{db: db}
}

// likePrefix escapes LIKE metacharacters in prefix and appends a wildcard.
func likePrefix(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return strings.ToLower(replacer.Replace(prefix)) + "%"
}

// SearchCities returns cities whose name starts with prefix, case-insensitively,
// each with its activities.
func (r *CityRepository) SearchCities(ctx context.Context, prefix string, limit int) ([]types.City, error) {
	query := `SELECT ` + cityReturning + ` FROM cities
		WHERE LOWER(name) LIKE $1
		ORDER BY name, id
		LIMIT $2`
	cities := []types.City{}
	if err := r.db.SelectContext(ctx, &cities, query, likePrefix(prefix), limit); err != nil {
		return nil, fmt.Errorf("search cities: %w", err)
	}
	if len(cities) == 0 {
		return cities, nil
	}

	ids := make([]int, len(cities))
	for i, city := range cities {
		ids[i] = city.ID
	}
	activityQuery := `SELECT ` + activityReturning + ` FROM activities
		WHERE city_id = ANY($1)
		ORDER BY city_id, name, id`
	var activities []types.Activity
	if err := r.db.SelectContext(ctx, &activities, activityQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load city activities: %w", err)
	}

	byCity := make(map[int][]types.Activity, len(cities))
	for _, activity := range activities {
		byCity[activity.CityID] = append(byCity[activity.CityID], activity)
	}
	for i := range cities {
		cities[i].Activities = byCity[cities[i].ID]
		if cities[i].Activities == nil {
			cities[i].Activities = []types.Activity{}
		}
	}
	return cities, nil
}

type activityCityRow struct {
	types.Activity
	CityName    string `db:"city_name"`
	CityState   string `db:"city_state"`
	CityCountry string `db:"city_country"`
}

// SearchActivities returns activities whose name starts with prefix,
// case-insensitively, each with its owning city.
func (r *CityRepository) SearchActivities(ctx context.Context, prefix string, limit int) ([]types.Activity, error) {
	const query = `
		SELECT a.id, a.city_id, a.name, a.type, a.cost, a.duration_minutes, a.description,
			a.image_url, a.created_at,
			c.name AS city_name, c.state AS city_state, c.country AS city_country
		FROM activities a
		JOIN cities c ON c.id = a.city_id
		WHERE LOWER(a.name) LIKE $1
		ORDER BY a.name, a.id
		LIMIT $2`
	var rows []activityCityRow
	if err := r.db.SelectContext(ctx, &rows, query, likePrefix(prefix), limit); err != nil {
		return nil, fmt.Errorf("search activities: %w", err)
	}

	activities := make([]types.Activity, 0, len(rows))
	for _, row := range rows {
		activity := row.Activity
		activity.City = &types.City{
			ID:      row.CityID,
			Name:    row.CityName,
			State:   row.CityState,
			Country: row.CityCountry,
		}
		activities = append(activities, activity)
	}
	return activities, nil
}

func (r *CityRepository) GetActivity(ctx context.Context, id int) (types.Activity, error) {
	query := `SELECT ` + activityReturning + ` FROM activities WHERE id = $1`
	var activity types.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Activity{}, ErrNotFound
		}
		return types.Activity{}, fmt.Errorf("get activity %d: %w", id, err)
	}
	return activity, nil
}

// ActivityLinkedToUser reports whether the activity appears in any trip owned
// by userID.
func (r *CityRepository) ActivityLinkedToUser(ctx context.Context, activityID, userID int) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM stop_activities sa
			JOIN trips t ON t.id = sa.trip_id
			WHERE sa.activity_id = $1 AND t.user_id = $2
		)`
	var linked bool
	if err := r.db.GetContext(ctx, &linked, query, activityID, userID); err != nil {
		return false, fmt.Errorf("check activity owner: %w", err)
	}
	return linked, nil
}

func (r *CityRepository) UpdateActivityCost(ctx context.Context, id int, cost float64) (types.Activity, error) {
	query := `UPDATE activities SET cost = $1 WHERE id = $2 RETURNING ` + activityReturning
	var activity types.Activity
	if err := r.db.GetContext(ctx, &activity, query, cost, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Activity{}, ErrNotFound
		}
		return types.Activity{}, fmt.Errorf("update activity %d cost: %w", id, err)
	}
	return activity, nil
}
