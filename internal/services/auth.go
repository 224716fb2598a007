package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/globaltrotters/apiserver/internal/store"
	"github.com/globaltrotters/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTTL = 7 * 24 * time.Hour

	placeholderGender   = "Not Specified"
	placeholderLocation = "N/A"
)

// Claims is the payload of an access token. The subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the numeric subject.
func (c Claims) UserID() (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Subject))
	if err != nil || id < 1 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}

// AuthConfig holds token and admin-signup settings.
type AuthConfig struct {
	Secret          string
	TokenTTL        time.Duration
	AdminSignupCode string
}

// SignupInput is the profile submitted at registration.
type SignupInput struct {
	FirstName   string
	LastName    string
	Age         int
	Gender      string
	City        string
	Country     string
	Email       string
	Password    string
	Description string
}

type AdminSignupInput struct {
	FirstName  string
	LastName   string
	Email      string
	Password   string
	SecretCode string
}

// AuthService registers principals, verifies credentials and issues tokens.
type AuthService struct {
	users     UserRepository
	publisher Publisher
	secret    []byte
	tokenTTL  time.Duration
	adminCode string
	now       func() time.Time
}

func NewAuthService(users UserRepository, publisher Publisher, cfg AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{
		users:     users,
		publisher: publisher,
		secret:    []byte(cfg.Secret),
		tokenTTL:  ttl,
		adminCode: cfg.AdminSignupCode,
		now:       time.Now,
	}
}

// Signup creates a regular user account.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (types.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Gender = strings.TrimSpace(in.Gender)
	in.City = strings.TrimSpace(in.City)
	in.Country = strings.TrimSpace(in.Country)
	in.Email = normalizeEmail(in.Email)
	if in.FirstName == "" || in.LastName == "" || in.Age <= 0 || in.Gender == "" ||
		in.City == "" || in.Country == "" || in.Email == "" || in.Password == "" {
		return types.User{}, validationError("all required fields must be provided")
	}

	return s.register(ctx, types.User{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Age:         in.Age,
		Gender:      in.Gender,
		City:        in.City,
		Country:     in.Country,
		Email:       in.Email,
		Role:        types.RoleUser,
		Description: strings.TrimSpace(in.Description),
	}, in.Password)
}

// SignupAdmin creates an admin account with placeholder profile fields and
// returns it with a token.
func (s *AuthService) SignupAdmin(ctx context.Context, in AdminSignupInput) (types.User, string, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return types.User{}, "", validationError("all fields are required")
	}
	if s.adminCode != "" && subtle.ConstantTimeCompare([]byte(in.SecretCode), []byte(s.adminCode)) != 1 {
		return types.User{}, "", unauthorized("invalid admin secret code")
	}

	user, err := s.register(ctx, types.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Age:       0,
		Gender:    placeholderGender,
		City:      placeholderLocation,
		Country:   placeholderLocation,
		Email:     in.Email,
		Role:      types.RoleAdmin,
	}, in.Password)
	if err != nil {
		return types.User{}, "", err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return types.User{}, "", err
	}
	return user, token, nil
}

func (s *AuthService) register(ctx context.Context, user types.User, password string) (types.User, error) {
	if _, err := s.users.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, &Error{Kind: ErrConflict, Message: "user already exists"}
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}
	user.PasswordHash = string(hashed)

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, &Error{Kind: ErrConflict, Message: "user already exists"}
		}
		return types.User{}, err
	}

	publishEvent(ctx, s.publisher, types.ChannelUserRegistered, types.UserRegisteredEvent{
		UserID:     created.ID,
		Email:      created.Email,
		FirstName:  created.FirstName,
		Role:       created.Role,
		OccurredAt: s.now().UTC(),
	})
	return created, nil
}

// Login verifies credentials and returns the user with a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (types.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return types.User{}, "", validationError("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", notFound("user not found")
		}
		return types.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, "", unauthorized("invalid password")
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return types.User{}, "", err
	}
	return withPhotoURL(user), token, nil
}

// LoginAdmin is Login restricted to admin accounts.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (types.User, string, error) {
	user, token, err := s.Login(ctx, email, password)
	if err != nil {
		return types.User{}, "", err
	}
	if !user.IsAdmin() {
		return types.User{}, "", unauthorized("admin access required")
	}
	return user, token, nil
}

// IssueToken signs an HS256 token for user.
func (s *AuthService) IssueToken(user types.User) (string, error) {
	now := s.now()
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken verifies the signature and expiry of tokenString.
func (s *AuthService) ParseToken(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, unauthorized("invalid or expired token")
	}
	if !token.Valid {
		return Claims{}, unauthorized("invalid token")
	}
	if _, err := claims.UserID(); err != nil {
		return Claims{}, unauthorized("invalid token subject")
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
