package handlers

import (
	"context"
	"net/http"

	"github.com/globaltrotters/apiserver/internal/services"
	"github.com/globaltrotters/apiserver/types"
	"github.com/go-chi/chi/v5"
)

type CommunityService interface {
	CreatePost(ctx context.Context, authorID int, in services.PostInput) (types.CommunityPost, error)
	ListPosts(ctx context.Context) ([]types.CommunityPost, error)
}

type CommunityHandler struct {
	community CommunityService
}

func NewCommunityHandler(community CommunityService) *CommunityHandler {
	return &CommunityHandler{community: community}
}

// CommunityRouter registers the public feed and the authenticated post route.
func CommunityRouter(r chi.Router, community CommunityService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewCommunityHandler(community)

	r.Get("/", handler.ListPosts)
	r.With(authMiddleware).Post("/", handler.CreatePost)
}

func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.community.ListPosts(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, PostListResponse{Success: true, Posts: posts})
}

func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.community.CreatePost(r.Context(), userID, services.PostInput{
		Title:   req.Title,
		Content: req.Content,
		TripID:  req.TripID,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create post")
		return
	}

	writeJSON(w, http.StatusCreated, PostResponse{Success: true, Message: "post created", Post: post})
}

type CreatePostRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	TripID  *int   `json:"tripId" validate:"omitnil,gt=0"`
}

type PostResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Post    types.CommunityPost `json:"post"`
}

type PostListResponse struct {
	Success bool                  `json:"success"`
	Posts   []types.CommunityPost `json:"posts"`
}
