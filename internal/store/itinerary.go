package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/globaltrotters/apiserver/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	cityReturning     = `id, name, state, country, cost_index, popularity_score, image_url, latitude, longitude, created_at`
	activityReturning = `id, city_id, name, type, cost, duration_minutes, description, image_url, created_at`
)

// ItineraryRepository manages the relational itinerary of a trip: its stops
// and the activities linked to it.
type ItineraryRepository struct {
	db *sqlx.DB
}

func NewItineraryRepository(db *sqlx.DB) *ItineraryRepository {
	return &ItineraryRepository{db: db}
}

type stopRow struct {
	ID                  int       `db:"id"`
	TripID              int       `db:"trip_id"`
	CityID              int       `db:"city_id"`
	StopIndex           int       `db:"stop_index"`
	CityName            string    `db:"city_name"`
	CityState           string    `db:"city_state"`
	CityCountry         string    `db:"city_country"`
	CityCostIndex       float64   `db:"city_cost_index"`
	CityPopularityScore float64   `db:"city_popularity_score"`
	CityImageURL        string    `db:"city_image_url"`
	CityLatitude        float64   `db:"city_latitude"`
	CityLongitude       float64   `db:"city_longitude"`
	CityCreatedAt       time.Time `db:"city_created_at"`
}

func (row stopRow) city() types.City {
	return types.City{
		ID:              row.CityID,
		Name:            row.CityName,
		State:           row.CityState,
		Country:         row.CityCountry,
		CostIndex:       row.CityCostIndex,
		PopularityScore: row.CityPopularityScore,
		ImageURL:        row.CityImageURL,
		Latitude:        row.CityLatitude,
		Longitude:       row.CityLongitude,
		CreatedAt:       row.CityCreatedAt,
	}
}

// StopsByTrips returns the stops of every listed trip keyed by trip id, each
// ordered by stop index.
func (r *ItineraryRepository) StopsByTrips(ctx context.Context, tripIDs []int) (map[int][]types.Stop, error) {
	result := make(map[int][]types.Stop, len(tripIDs))
	if len(tripIDs) == 0 {
		return result, nil
	}

	const query = `
		SELECT s.id, s.trip_id, s.city_id, s.stop_index,
			c.name AS city_name, c.state AS city_state, c.country AS city_country,
			c.cost_index AS city_cost_index, c.popularity_score AS city_popularity_score,
			c.image_url AS city_image_url, c.latitude AS city_latitude,
			c.longitude AS city_longitude, c.created_at AS city_created_at
		FROM stops s
		JOIN cities c ON c.id = s.city_id
		WHERE s.trip_id = ANY($1)
		ORDER BY s.trip_id, s.stop_index, s.id`
	var rows []stopRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(tripIDs)); err != nil {
		return nil, fmt.Errorf("load stops: %w", err)
	}
	for _, row := range rows {
		result[row.TripID] = append(result[row.TripID], types.Stop{
			ID:        row.ID,
			TripID:    row.TripID,
			CityID:    row.CityID,
			StopIndex: row.StopIndex,
			City:      row.city(),
		})
	}
	return result, nil
}

type stopActivityRow struct {
	ID                      int         `db:"id"`
	TripID                  int         `db:"trip_id"`
	CityID                  int         `db:"city_id"`
	ActivityID              int         `db:"activity_id"`
	Date                    *types.Date `db:"date"`
	Time                    *string     `db:"time"`
	Notes                   string      `db:"notes"`
	StopIndex               int         `db:"stop_index"`
	CityName                string      `db:"city_name"`
	CityState               string      `db:"city_state"`
	CityCountry             string      `db:"city_country"`
	CityImageURL            string      `db:"city_image_url"`
	ActivityName            string      `db:"activity_name"`
	ActivityType            string      `db:"activity_type"`
	ActivityCost            float64     `db:"activity_cost"`
	ActivityDurationMinutes int         `db:"activity_duration_minutes"`
	ActivityDescription     string      `db:"activity_description"`
	ActivityImageURL        string      `db:"activity_image_url"`
}

func (row stopActivityRow) toStopActivity() types.StopActivity {
	return types.StopActivity{
		ID:         row.ID,
		TripID:     row.TripID,
		CityID:     row.CityID,
		ActivityID: row.ActivityID,
		Date:       row.Date,
		Time:       row.Time,
		Notes:      row.Notes,
		StopIndex:  row.StopIndex,
		City: types.City{
			ID:       row.CityID,
			Name:     row.CityName,
			State:    row.CityState,
			Country:  row.CityCountry,
			ImageURL: row.CityImageURL,
		},
		Activity: types.Activity{
			ID:              row.ActivityID,
			CityID:          row.CityID,
			Name:            row.ActivityName,
			Type:            row.ActivityType,
			Cost:            row.ActivityCost,
			DurationMinutes: row.ActivityDurationMinutes,
			Description:     row.ActivityDescription,
			ImageURL:        row.ActivityImageURL,
		},
	}
}

// StopActivitiesByTrips returns the itinerary of every listed trip keyed by
// trip id, in itinerary order: stop index first, then insertion order.
func (r *ItineraryRepository) StopActivitiesByTrips(ctx context.Context, tripIDs []int) (map[int][]types.StopActivity, error) {
	result := make(map[int][]types.StopActivity, len(tripIDs))
	if len(tripIDs) == 0 {
		return result, nil
	}

	const query = `
		SELECT sa.id, sa.trip_id, sa.city_id, sa.activity_id, sa.date, sa.time, sa.notes,
			COALESCE(st.stop_index, 0) AS stop_index,
			c.name AS city_name, c.state AS city_state, c.country AS city_country,
			c.image_url AS city_image_url,
			a.name AS activity_name, a.type AS activity_type, a.cost AS activity_cost,
			a.duration_minutes AS activity_duration_minutes,
			a.description AS activity_description, a.image_url AS activity_image_url
		FROM stop_activities sa
		JOIN cities c ON c.id = sa.city_id
		JOIN activities a ON a.id = sa.activity_id
		LEFT JOIN stops st ON st.trip_id = sa.trip_id AND st.city_id = sa.city_id
		WHERE sa.trip_id = ANY($1)
		ORDER BY sa.trip_id, stop_index, sa.id`
	var rows []stopActivityRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(tripIDs)); err != nil {
		return nil, fmt.Errorf("load stop activities: %w", err)
	}
	for _, row := range rows {
		result[row.TripID] = append(result[row.TripID], row.toStopActivity())
	}
	return result, nil
}

// DeleteStopActivity removes one itinerary entry of the trip.
func (r *ItineraryRepository) DeleteStopActivity(ctx context.Context, tripID, id int) error {
	const query = `DELETE FROM stop_activities WHERE id = $1 AND trip_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, tripID)
	if err != nil {
		return fmt.Errorf("delete stop activity %d: %w", id, err)
	}
	return expectAffected(result)
}

// AddCityWithActivities finds or creates the city, appends it to the trip as a
// stop unless it already is one, finds or creates every activity, and links
// them to the trip. Already linked activities are skipped, so the call is
// idempotent. The trip row is locked first so concurrent calls agree on the
// next stop index.
func (r *ItineraryRepository) AddCityWithActivities(
	ctx context.Context,
	tripID int,
	city types.City,
	activities []types.Activity,
) (types.City, []types.Activity, error) {
	var savedCity types.City
	saved := make([]types.Activity, 0, len(activities))

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockTrip(ctx, tx, tripID); err != nil {
			return err
		}

		var err error
		savedCity, err = upsertCity(ctx, tx, city)
		if err != nil {
			return err
		}

		const appendStop = `
			INSERT INTO stops (trip_id, city_id, stop_index)
			SELECT $1, $2, COALESCE(MAX(stop_index) + 1, 0) FROM stops WHERE trip_id = $1
			ON CONFLICT (trip_id, city_id) DO NOTHING`
		if _, err := tx.ExecContext(ctx, appendStop, tripID, savedCity.ID); err != nil {
			return fmt.Errorf("append stop: %w", err)
		}

		activityIDs := make([]int, 0, len(activities))
		for _, activity := range activities {
			activity.CityID = savedCity.ID
			stored, err := upsertActivity(ctx, tx, activity)
			if err != nil {
				return err
			}
			saved = append(saved, stored)
			activityIDs = append(activityIDs, stored.ID)
		}
		return linkActivities(ctx, tx, tripID, savedCity.ID, activityIDs)
	})
	if err != nil {
		return types.City{}, nil, err
	}
	return savedCity, saved, nil
}

func lockTrip(ctx context.Context, tx *sqlx.Tx, tripID int) error {
	var lockedID int
	err := tx.QueryRowxContext(ctx, `SELECT id FROM trips WHERE id = $1 FOR UPDATE`, tripID).Scan(&lockedID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock trip %d: %w", tripID, err)
	}
	return nil
}

// ReplacePlan overwrites the trip's top-level fields and replaces all of its
// stops and linked activities with the plan, atomically. The trip row is
// locked for the duration so concurrent replacements serialise.
func (r *ItineraryRepository) ReplacePlan(ctx context.Context, trip types.Trip, plan []types.PlannedStop) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var lockedID int
		err := tx.QueryRowxContext(ctx,
			`SELECT id FROM trips WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			trip.ID, trip.UserID,
		).Scan(&lockedID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock trip %d: %w", trip.ID, err)
		}

		const updateTrip = `
			UPDATE trips
			SET name = $1, start_date = $2, end_date = $3, description = $4, updated_at = $5
			WHERE id = $6`
		if _, err := tx.ExecContext(ctx, updateTrip,
			trip.Name, trip.StartDate, trip.EndDate, trip.Description, time.Now().UTC(), trip.ID,
		); err != nil {
			return fmt.Errorf("update trip %d: %w", trip.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM stop_activities WHERE trip_id = $1`, trip.ID); err != nil {
			return fmt.Errorf("clear stop activities: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM stops WHERE trip_id = $1`, trip.ID); err != nil {
			return fmt.Errorf("clear stops: %w", err)
		}

		const insertStop = `
			INSERT INTO stops (trip_id, city_id, stop_index)
			VALUES ($1, $2, $3)
			ON CONFLICT (trip_id, city_id) DO NOTHING`
		for index, stop := range plan {
			city, err := upsertCity(ctx, tx, types.City{
				Name:      stop.City.Name,
				State:     stop.City.State,
				Country:   stop.City.Country,
				Latitude:  stop.Coordinates.Lat,
				Longitude: stop.Coordinates.Lon,
			})
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, insertStop, trip.ID, city.ID, index); err != nil {
				return fmt.Errorf("insert stop %d: %w", index, err)
			}

			activityIDs := make([]int, 0, len(stop.Activities))
			for _, planned := range stop.Activities {
				activity, err := upsertActivity(ctx, tx, types.Activity{
					CityID:          city.ID,
					Name:            planned.Name,
					Type:            planned.Type,
					Cost:            planned.Cost,
					DurationMinutes: planned.DurationMinutes,
					Description:     planned.Description,
					ImageURL:        planned.ImageURL,
				})
				if err != nil {
					return err
				}
				activityIDs = append(activityIDs, activity.ID)
			}
			if err := linkActivities(ctx, tx, trip.ID, city.ID, activityIDs); err != nil {
				return err
			}
		}
		return nil
	})
}

// upsertCity finds or creates a city by (name, state, country). An existing
// city only has its image and coordinates backfilled when they are empty.
func upsertCity(ctx context.Context, q sqlx.QueryerContext, city types.City) (types.City, error) {
	query := `
		INSERT INTO cities (name, state, country, image_url, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name, state, country) DO UPDATE
		SET image_url = CASE WHEN cities.image_url = '' THEN EXCLUDED.image_url ELSE cities.image_url END,
			latitude = CASE WHEN cities.latitude = 0 AND cities.longitude = 0 THEN EXCLUDED.latitude ELSE cities.latitude END,
			longitude = CASE WHEN cities.latitude = 0 AND cities.longitude = 0 THEN EXCLUDED.longitude ELSE cities.longitude END
		RETURNING ` + cityReturning
	var saved types.City
	if err := sqlx.GetContext(ctx, q, &saved, query,
		city.Name, city.State, city.Country, city.ImageURL, city.Latitude, city.Longitude,
	); err != nil {
		return types.City{}, fmt.Errorf("upsert city %q: %w", city.Name, err)
	}
	return saved, nil
}

// upsertActivity finds or creates an activity by (city_id, name). Existing
// rows are returned untouched.
func upsertActivity(ctx context.Context, q sqlx.QueryerContext, activity types.Activity) (types.Activity, error) {
	query := `
		INSERT INTO activities (city_id, name, type, cost, duration_minutes, description, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (city_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING ` + activityReturning
	var saved types.Activity
	if err := sqlx.GetContext(ctx, q, &saved, query,
		activity.CityID,
		activity.Name,
		activity.Type,
		activity.Cost,
		activity.DurationMinutes,
		activity.Description,
		activity.ImageURL,
	); err != nil {
		return types.Activity{}, fmt.Errorf("upsert activity %q: %w", activity.Name, err)
	}
	return saved, nil
}

// linkActivities inserts the stop activities in one statement, skipping
// links that already exist.
func linkActivities(ctx context.Context, e sqlx.ExecerContext, tripID, cityID int, activityIDs []int) error {
	if len(activityIDs) == 0 {
		return nil
	}
	const query = `
		INSERT INTO stop_activities (trip_id, city_id, activity_id)
		SELECT $1, $2, UNNEST($3::int[])
		ON CONFLICT (trip_id, city_id, activity_id) DO NOTHING`
	if _, err := e.ExecContext(ctx, query, tripID, cityID, pq.Array(activityIDs)); err != nil {
		return fmt.Errorf("link activities: %w", err)
	}
	return nil
}
