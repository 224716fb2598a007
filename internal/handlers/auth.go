package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/globaltrotters/apiserver/internal/services"
	"github.com/globaltrotters/apiserver/internal/store"
	"github.com/globaltrotters/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AuthService is the account and token API used by the auth routes.
type AuthService interface {
	Signup(ctx context.Context, in services.SignupInput) (types.User, error)
	SignupAdmin(ctx context.Context, in services.AdminSignupInput) (types.User, string, error)
	Login(ctx context.Context, email, password string) (types.User, string, error)
	LoginAdmin(ctx context.Context, email, password string) (types.User, string, error)
}

// TokenParser verifies bearer tokens.
type TokenParser interface {
	ParseToken(token string) (services.Claims, error)
}

// UserLookup loads users by id.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// AuthHandler provides signup, login and the current-user endpoint.
type AuthHandler struct {
	auth  AuthService
	users UserLookup
}

func NewAuthHandler(auth AuthService, users UserLookup) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth AuthService, users UserLookup, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAuthHandler(auth, users)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.Post("/admin/signup", handler.AdminSignup)
	r.Post("/admin/login", handler.AdminLogin)
	r.With(authMiddleware).Get("/me", handler.Me)
}

// RequireAuth verifies the bearer token and injects the user id and role
// into the request context.
func RequireAuth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := tokens.ParseToken(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, userID)
			ctx = context.WithValue(ctx, contextRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin admits only users whose stored role is admin. The token's
// role claim is not trusted on its own.
func RequireAdmin(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := userIDFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to authorize")
				return
			}
			if !user.IsAdmin() {
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.auth.Signup(r.Context(), services.SignupInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Age:         req.Age,
		Gender:      req.Gender,
		City:        req.City,
		Country:     req.Country,
		Email:       req.Email,
		Password:    req.Password,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, UserResponse{Success: true, Message: "user created", User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "failed to authenticate")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Token: token, User: user})
}

func (h *AuthHandler) AdminSignup(w http.ResponseWriter, r *http.Request) {
	var req AdminSignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.auth.SignupAdmin(r.Context(), services.AdminSignupInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		SecretCode: req.SecretCode,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create admin")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Success: true, Token: token, User: user})
}

func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.auth.LoginAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "failed to authenticate")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Token: token, User: user})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}

type SignupRequest struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Age         int    `json:"age" validate:"required,gt=0"`
	Gender      string `json:"gender" validate:"required"`
	City        string `json:"city" validate:"required"`
	Country     string `json:"country" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	Description string `json:"description"`
}

type AdminSignupRequest struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	SecretCode string `json:"secretCode"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	User    types.User `json:"user"`
}

type UserResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	User    types.User `json:"user"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
