package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/globaltrotters/apiserver/internal/services"
	"github.com/globaltrotters/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const photoFormField = "photo"

// ProfileService is the self-service account API.
type ProfileService interface {
	GetProfile(ctx context.Context, userID int) (types.User, []types.Trip, error)
	UpdateProfile(ctx context.Context, userID int, in services.ProfileUpdate) (types.User, error)
	UploadPhoto(ctx context.Context, userID int, r io.Reader, contentType string) (types.User, error)
	Photo(ctx context.Context, userID int) (io.ReadCloser, string, error)
	DeletePhoto(ctx context.Context, userID int) (types.User, error)
}

type ProfileHandler struct {
	profiles ProfileService
}

func NewProfileHandler(profiles ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// ProfileRouter registers the caller's own profile routes. Authentication is
// installed by the caller.
func ProfileRouter(r chi.Router, profiles ProfileService) {
	handler := NewProfileHandler(profiles)

	r.Get("/", handler.GetProfile)
	r.Put("/", handler.UpdateProfile)
	r.Put("/photo", handler.UploadPhoto)
	r.Delete("/photo", handler.DeletePhoto)
}

// PhotoRouter registers the public photo route under /users.
func PhotoRouter(r chi.Router, profiles ProfileService) {
	handler := NewProfileHandler(profiles)

	r.Get("/{userID}/photo", handler.Photo)
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, trips, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{Success: true, User: user, Trips: trips})
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), userID, services.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Age:         req.Age,
		Gender:      req.Gender,
		City:        req.City,
		Country:     req.Country,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, err, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{Success: true, Message: "profile updated", User: user})
}

// UploadPhoto accepts a multipart form with the image in the "photo" field.
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxPhotoBytes+maxBodyBytes)
	file, header, err := r.FormFile(photoFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "photo must be at most 5MB")
			return
		}
		writeError(w, http.StatusBadRequest, "photo is required")
		return
	}
	defer file.Close()

	user, err := h.profiles.UploadPhoto(r.Context(), userID, file, header.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(w, err, "failed to upload photo")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{Success: true, Message: "photo updated", User: user})
}

func (h *ProfileHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.profiles.DeletePhoto(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to delete photo")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{Success: true, Message: "photo removed", User: user})
}

// Photo streams a user's profile photo.
func (h *ProfileHandler) Photo(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID", "user id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, contentType, err := h.profiles.Photo(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to load photo")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if n, err := io.Copy(w, body); err != nil {
		log.Printf("profile: stream photo for user %d after %d bytes: %v", userID, n, err)
	}
}

type UpdateProfileRequest struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Age         *int    `json:"age" validate:"omitnil,gt=0"`
	Gender      *string `json:"gender"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
	Description *string `json:"description"`
}

type ProfileResponse struct {
	Success bool         `json:"success"`
	User    types.User   `json:"user"`
	Trips   []types.Trip `json:"trips"`
}
