package services

import (
	"context"
	"testing"
	"time"

	"github.com/globaltrotters/apiserver/internal/store"
	"github.com/globaltrotters/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSignup() SignupInput {
	return SignupInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Age:       36,
		Gender:    "female",
		City:      "London",
		Country:   "UK",
		Email:     "  Ada@Example.com ",
		Password:  "s3cret",
	}
}

func TestSignupLoginAndParseToken(t *testing.T) {
	users := newFakeUsers()
	publisher := &fakePublisher{}
	auth := NewAuthService(users, publisher, AuthConfig{Secret: "test-secret"})
	ctx := context.Background()

	created, err := auth.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, types.RoleUser, created.Role)
	assert.NotEqual(t, "s3cret", created.PasswordHash)
	assert.Equal(t, []string{types.ChannelUserRegistered}, publisher.channels())

	user, token, err := auth.Login(ctx, "ADA@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	require.NotEmpty(t, token)

	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, created.ID, userID)
	assert.Equal(t, types.RoleUser, claims.Role)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	users := newFakeUsers(types.User{ID: 1, Email: "ada@example.com"})
	auth := NewAuthService(users, nil, AuthConfig{Secret: "test-secret"})

	_, err := auth.Signup(context.Background(), validSignup())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSignupMapsStoreDuplicateToConflict(t *testing.T) {
	users := newFakeUsers()
	users.createErr = store.ErrDuplicate
	auth := NewAuthService(users, nil, AuthConfig{Secret: "test-secret"})

	_, err := auth.Signup(context.Background(), validSignup())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSignupRequiresProfileFields(t *testing.T) {
	auth := NewAuthService(newFakeUsers(), nil, AuthConfig{Secret: "test-secret"})

	in := validSignup()
	in.City = "   "
	_, err := auth.Signup(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validSignup()
	in.Age = 0
	_, err = auth.Signup(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoginFailures(t *testing.T) {
	users := newFakeUsers()
	auth := NewAuthService(users, nil, AuthConfig{Secret: "test-secret"})
	ctx := context.Background()
	_, err := auth.Signup(ctx, validSignup())
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = auth.Login(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = auth.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSignupAdmin(t *testing.T) {
	users := newFakeUsers()
	auth := NewAuthService(users, nil, AuthConfig{Secret: "test-secret", AdminSignupCode: "letmein"})
	ctx := context.Background()
	in := AdminSignupInput{
		FirstName:  "Root",
		LastName:   "Admin",
		Email:      "root@example.com",
		Password:   "pw",
		SecretCode: "nope",
	}

	_, _, err := auth.SignupAdmin(ctx, in)
	assert.ErrorIs(t, err, ErrUnauthorized)

	in.SecretCode = "letmein"
	admin, token, err := auth.SignupAdmin(ctx, in)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, placeholderLocation, admin.City)
	assert.NotEmpty(t, token)

	_, _, err = auth.LoginAdmin(ctx, "root@example.com", "pw")
	require.NoError(t, err)
}

func TestLoginAdminRejectsRegularUser(t *testing.T) {
	auth := NewAuthService(newFakeUsers(), nil, AuthConfig{Secret: "test-secret"})
	ctx := context.Background()
	_, err := auth.Signup(ctx, validSignup())
	require.NoError(t, err)

	_, _, err = auth.LoginAdmin(ctx, "ada@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	auth := NewAuthService(newFakeUsers(), nil, AuthConfig{Secret: "test-secret", TokenTTL: time.Hour})
	issuedAt := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issuedAt }

	token, err := auth.IssueToken(types.User{ID: 4, Email: "a@example.com", Role: types.RoleUser})
	require.NoError(t, err)

	_, err = auth.ParseToken(token)
	require.NoError(t, err)

	auth.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = auth.ParseToken(token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewAuthService(newFakeUsers(), nil, AuthConfig{Secret: "other-secret"})
	other.now = func() time.Time { return issuedAt }
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClaimsUserID(t *testing.T) {
	claims := Claims{}
	claims.Subject = "12"
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	claims.Subject = "0"
	_, err = claims.UserID()
	assert.Error(t, err)

	claims.Subject = "abc"
	_, err = claims.UserID()
	assert.Error(t, err)
}
