package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/globaltrotters/apiserver/types"
)

// CommunityRepository defines persistence operations for community posts.
type CommunityRepository interface {
	Create(ctx context.Context, post types.CommunityPost) (types.CommunityPost, error)
	List(ctx context.Context) ([]types.CommunityPost, error)
}

type PostInput struct {
	Title   string
	Content string
	TripID  *int
}

type CommunityService struct {
	posts     CommunityRepository
	trips     TripRepository
	users     UserRepository
	publisher Publisher
	now       func() time.Time
}

func NewCommunityService(posts CommunityRepository, trips TripRepository, users UserRepository, publisher Publisher) *CommunityService {
	return &CommunityService{
		posts:     posts,
		trips:     trips,
		users:     users,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreatePost publishes a post by authorID. A shared trip must belong to the
// author.
func (s *CommunityService) CreatePost(ctx context.Context, authorID int, in PostInput) (types.CommunityPost, error) {
	if authorID < 1 {
		return types.CommunityPost{}, unauthorized("authentication required")
	}
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return types.CommunityPost{}, validationError("title and content are required")
	}

	if in.TripID != nil {
		if _, err := s.trips.GetForUser(ctx, *in.TripID, authorID); err != nil {
			return types.CommunityPost{}, ownershipError(err)
		}
	}

	post, err := s.posts.Create(ctx, types.CommunityPost{
		AuthorID: authorID,
		Title:    title,
		Content:  content,
		TripID:   in.TripID,
	})
	if err != nil {
		return types.CommunityPost{}, err
	}

	// The post is already stored; a failed author lookup only costs the
	// confirmation email.
	event := types.PostCreatedEvent{
		PostID:     post.ID,
		AuthorID:   authorID,
		TripID:     post.TripID,
		Title:      post.Title,
		OccurredAt: s.now().UTC(),
	}
	if author, err := s.users.GetByID(ctx, authorID); err == nil {
		event.Email = author.Email
		event.FirstName = author.FirstName
	} else {
		log.Printf("community: author %d lookup for post %d: %v", authorID, post.ID, err)
	}
	publishEvent(ctx, s.publisher, types.ChannelPostCreated, event)
	return post, nil
}

// ListPosts returns every post, newest first.
func (s *CommunityService) ListPosts(ctx context.Context) ([]types.CommunityPost, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, err
	}
	return orEmpty(posts), nil
}
