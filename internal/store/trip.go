package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/globaltrotters/apiserver/types"
	"github.com/jmoiron/sqlx"
)

const tripColumns = `id, user_id, name, start_date, end_date, description, cover_photo, created_at, updated_at`

// TripRepository handles persistence for trips. Every read is scoped to the
// owning user.
type TripRepository struct {
	db *sqlx.DB
}

func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

func (r *TripRepository) Create(ctx context.Context, trip types.Trip) (types.Trip, error) {
	now := time.Now().UTC()
	trip.CreatedAt = now
	trip.UpdatedAt = now

	const query = `
		INSERT INTO trips (user_id, name, start_date, end_date, description, cover_photo, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		trip.UserID,
		trip.Name,
		trip.StartDate,
		trip.EndDate,
		trip.Description,
		trip.CoverPhoto,
		trip.CreatedAt,
		trip.UpdatedAt,
	).Scan(&trip.ID); err != nil {
		return types.Trip{}, fmt.Errorf("create trip: %w", err)
	}
	return trip, nil
}

// GetForUser returns the trip only when it belongs to userID. Missing and
// foreign trips both yield ErrNotFound.
func (r *TripRepository) GetForUser(ctx context.Context, id, userID int) (types.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 AND user_id = $2`
	var trip types.Trip
	if err := r.db.GetContext(ctx, &trip, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Trip{}, ErrNotFound
		}
		return types.Trip{}, fmt.Errorf("get trip %d: %w", id, err)
	}
	return trip, nil
}

// ListByUser returns the user's trips, newest first.
func (r *TripRepository) ListByUser(ctx context.Context, userID int) ([]types.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	trips := []types.Trip{}
	if err := r.db.SelectContext(ctx, &trips, query, userID); err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

// ListRecentByUser returns up to limit of the user's most recent trips,
// skipping excludeID.
func (r *TripRepository) ListRecentByUser(ctx context.Context, userID, excludeID, limit int) ([]types.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE user_id = $1 AND id <> $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
	trips := []types.Trip{}
	if err := r.db.SelectContext(ctx, &trips, query, userID, excludeID, limit); err != nil {
		return nil, fmt.Errorf("list recent trips: %w", err)
	}
	return trips, nil
}

func (r *TripRepository) Update(ctx context.Context, trip types.Trip) (types.Trip, error) {
	trip.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE trips
		SET name = $1,
			start_date = $2,
			end_date = $3,
			description = $4,
			cover_photo = $5,
			updated_at = $6
		WHERE id = $7 AND user_id = $8`
	result, err := r.db.ExecContext(
		ctx,
		query,
		trip.Name,
		trip.StartDate,
		trip.EndDate,
		trip.Description,
		trip.CoverPhoto,
		trip.UpdatedAt,
		trip.ID,
		trip.UserID,
	)
	if err != nil {
		return types.Trip{}, fmt.Errorf("update trip %d: %w", trip.ID, err)
	}
	if err := expectAffected(result); err != nil {
		return types.Trip{}, err
	}
	return trip, nil
}

func (r *TripRepository) Delete(ctx context.Context, id, userID int) error {
	const query = `DELETE FROM trips WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete trip %d: %w", id, err)
	}
	return expectAffected(result)
}
