package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/globaltrotters/apiserver/internal/storage"
	"github.com/globaltrotters/apiserver/types"
)

const (
	MaxPhotoBytes  = 5 << 20
	maxPhotoPixels = 40_000_000
	photoDimension = 512
	photoQuality   = 85
	photoMimeType  = "image/jpeg"
)

// PhotoStorage stores profile photos. *storage.Storage satisfies it.
type PhotoStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ProfileUpdate carries the profile fields to change; nil fields are kept.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Age         *int
	Gender      *string
	City        *string
	Country     *string
	Description *string
}

// ProfileService manages the caller's own account.
type ProfileService struct {
	users  UserRepository
	trips  *TripService
	photos PhotoStorage
}

func NewProfileService(users UserRepository, trips *TripService, photos PhotoStorage) *ProfileService {
	return &ProfileService{users: users, trips: trips, photos: photos}
}

// GetProfile returns the user together with their hydrated trips.
func (s *ProfileService) GetProfile(ctx context.Context, userID int) (types.User, []types.Trip, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, nil, err
	}
	trips, err := s.trips.List(ctx, userID)
	if err != nil {
		return types.User{}, nil, err
	}
	return withPhotoURL(user), trips, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID int, in ProfileUpdate) (types.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	required := []struct {
		value *string
		dest  *string
		name  string
	}{
		{in.FirstName, &user.FirstName, "firstName"},
		{in.LastName, &user.LastName, "lastName"},
		{in.Gender, &user.Gender, "gender"},
		{in.City, &user.City, "city"},
		{in.Country, &user.Country, "country"},
	}
	for _, field := range required {
		if field.value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			return types.User{}, validationError("%s cannot be empty", field.name)
		}
		*field.dest = trimmed
	}
	if in.Age != nil {
		if *in.Age <= 0 {
			return types.User{}, validationError("age must be positive")
		}
		user.Age = *in.Age
	}
	if in.Description != nil {
		user.Description = strings.TrimSpace(*in.Description)
	}

	updated, err := s.users.UpdateProfile(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	return withPhotoURL(updated), nil
}

// UploadPhoto fits the image into 512x512, stores it as JPEG and makes it the
// user's profile photo. The previous photo is removed on a best-effort basis.
func (s *ProfileService) UploadPhoto(ctx context.Context, userID int, r io.Reader, contentType string) (types.User, error) {
	if s.photos == nil {
		return types.User{}, &Error{Kind: ErrUnavailable, Message: "photo storage is not configured"}
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return types.User{}, validationError("only image files are allowed")
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxPhotoBytes+1))
	if err != nil {
		return types.User{}, fmt.Errorf("read photo: %w", err)
	}
	if len(data) == 0 {
		return types.User{}, validationError("photo is required")
	}
	if len(data) > MaxPhotoBytes {
		return types.User{}, validationError("photo must be at most 5MB")
	}

	// The header alone bounds how much memory decoding will take.
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return types.User{}, validationError("unsupported image format")
	}
	if header.Width <= 0 || header.Height <= 0 || header.Width > maxPhotoPixels/header.Height {
		return types.User{}, validationError("image dimensions are too large")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return types.User{}, validationError("unsupported image format")
	}
	fitted := imaging.Fit(img, photoDimension, photoDimension, imaging.Lanczos)

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, fitted, imaging.JPEG, imaging.JPEGQuality(photoQuality)); err != nil {
		return types.User{}, fmt.Errorf("encode photo: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	key := storage.PhotoKey(userID, "jpg")
	if err := s.photos.Put(ctx, key, bytes.NewReader(encoded.Bytes()), int64(encoded.Len()), photoMimeType); err != nil {
		return types.User{}, upstream("failed to store photo", err)
	}
	if err := s.users.SetPhotoKey(ctx, userID, &key); err != nil {
		s.removePhoto(ctx, key)
		return types.User{}, err
	}

	if user.PhotoKey != nil {
		s.removePhoto(ctx, *user.PhotoKey)
	}
	user.PhotoKey = &key
	return withPhotoURL(user), nil
}

// Photo opens the stored profile photo of userID.
func (s *ProfileService) Photo(ctx context.Context, userID int) (io.ReadCloser, string, error) {
	if s.photos == nil {
		return nil, "", &Error{Kind: ErrUnavailable, Message: "photo storage is not configured"}
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user.PhotoKey == nil {
		return nil, "", notFound("photo not found")
	}
	body, err := s.photos.Get(ctx, *user.PhotoKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", notFound("photo not found")
		}
		return nil, "", upstream("failed to load photo", err)
	}
	return body, photoMimeType, nil
}

func (s *ProfileService) DeletePhoto(ctx context.Context, userID int) (types.User, error) {
	if s.photos == nil {
		return types.User{}, &Error{Kind: ErrUnavailable, Message: "photo storage is not configured"}
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}
	if user.PhotoKey == nil {
		return withPhotoURL(user), nil
	}
	if err := s.users.SetPhotoKey(ctx, userID, nil); err != nil {
		return types.User{}, err
	}
	s.removePhoto(ctx, *user.PhotoKey)
	user.PhotoKey = nil
	return withPhotoURL(user), nil
}

func (s *ProfileService) removePhoto(ctx context.Context, key string) {
	if err := s.photos.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.Printf("profile: delete photo %s: %v", key, err)
	}
}

// withPhotoURL fills the public photo path from the stored key.
func withPhotoURL(user types.User) types.User {
	user.PhotoURL = ""
	if user.PhotoKey != nil && *user.PhotoKey != "" {
		user.PhotoURL = fmt.Sprintf("/users/%d/photo", user.ID)
	}
	return user
}
