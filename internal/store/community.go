package store

import (
	"context"
	"fmt"
	"time"

	"github.com/globaltrotters/apiserver/types"
	"github.com/jmoiron/sqlx"
)

// CommunityRepository handles persistence for community posts.
type CommunityRepository struct {
	db *sqlx.DB
}

func NewCommunityRepository(db *sqlx.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

func (r *CommunityRepository) Create(ctx context.Context, post types.CommunityPost) (types.CommunityPost, error) {
	post.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO community_posts (author_id, title, content, trip_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		post.AuthorID, post.Title, post.Content, post.TripID, post.CreatedAt,
	).Scan(&post.ID); err != nil {
		return types.CommunityPost{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

type postRow struct {
	ID            int         `db:"id"`
	AuthorID      int         `db:"author_id"`
	Title         string      `db:"title"`
	Content       string      `db:"content"`
	TripID        *int        `db:"trip_id"`
	CreatedAt     time.Time   `db:"created_at"`
	FirstName     string      `db:"first_name"`
	LastName      string      `db:"last_name"`
	City          string      `db:"city"`
	Country       string      `db:"country"`
	TripName      *string     `db:"trip_name"`
	TripStartDate *types.Date `db:"trip_start_date"`
	TripEndDate   *types.Date `db:"trip_end_date"`
}

// List returns every post, newest first, with author and trip excerpts.
func (r *CommunityRepository) List(ctx context.Context) ([]types.CommunityPost, error) {
	const query = `
		SELECT p.id, p.author_id, p.title, p.content, p.trip_id, p.created_at,
			u.first_name, u.last_name, u.city, u.country,
			t.name AS trip_name, t.start_date AS trip_start_date, t.end_date AS trip_end_date
		FROM community_posts p
		JOIN users u ON u.id = p.author_id
		LEFT JOIN trips t ON t.id = p.trip_id
		ORDER BY p.created_at DESC, p.id DESC`
	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	posts := make([]types.CommunityPost, 0, len(rows))
	for _, row := range rows {
		post := types.CommunityPost{
			ID:        row.ID,
			AuthorID:  row.AuthorID,
			Title:     row.Title,
			Content:   row.Content,
			TripID:    row.TripID,
			CreatedAt: row.CreatedAt,
			User: types.PublicAuthor{
				ID:        row.AuthorID,
				FirstName: row.FirstName,
				LastName:  row.LastName,
				City:      row.City,
				Country:   row.Country,
			},
		}
		if row.TripID != nil && row.TripName != nil {
			summary := &types.TripSummary{ID: *row.TripID, Name: *row.TripName}
			if row.TripStartDate != nil {
				summary.StartDate = *row.TripStartDate
			}
			if row.TripEndDate != nil {
				summary.EndDate = *row.TripEndDate
			}
			post.Trip = summary
		}
		posts = append(posts, post)
	}
	return posts, nil
}
