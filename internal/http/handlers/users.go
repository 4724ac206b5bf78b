package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/26haroon26/chatapp-server/internal/auth"
	"github.com/26haroon26/chatapp-server/internal/middleware"
	"github.com/26haroon26/chatapp-server/internal/model"
	"github.com/26haroon26/chatapp-server/internal/repo"
)

// directoryLimit caps /users responses.
const directoryLimit = 20

// UserHandler handles profile and user-directory endpoints
type UserHandler struct {
	userRepo    repo.UserRepo
	authService *auth.AuthService
	validate    *validator.Validate
}

// NewUserHandler creates a new user handler
func NewUserHandler(userRepo repo.UserRepo, authService *auth.AuthService) *UserHandler {
	return &UserHandler{
		userRepo:    userRepo,
		authService: authService,
		validate:    validator.New(),
	}
}

// HandleProfile handles GET /profile and GET /profile/{id}. Without an id it
// returns the authenticated user's own profile.
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.Identity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID := claims.UserID
	if idParam := chi.URLParam(r, "id"); idParam != "" {
		parsed, err := uuid.Parse(idParam)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		userID = parsed
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("profile lookup failed for %s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, toProfile(user))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// HandleChangePassword handles POST /change-password
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.Identity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "currentPassword and password are required")
		return
	}

	err := h.authService.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		log.Printf("change password failed for %s: %v", claims.UserID, err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondMessage(w, http.StatusOK, "password updated success")
}

// HandleUsers handles GET /users?q=: the full directory when q is empty,
// otherwise a search, both capped at 20.
func (h *UserHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	users, err := func() ([]profileResponse, error) {
		if q == "" {
			found, err := h.userRepo.List(r.Context(), directoryLimit)
			if err != nil {
				return nil, err
			}
			return toProfiles(found), nil
		}
		found, err := h.userRepo.Search(r.Context(), q, directoryLimit)
		if err != nil {
			return nil, err
		}
		return toProfiles(found), nil
	}()
	if err != nil {
		log.Printf("user directory query failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, users)
}

func toProfiles(users []model.User) []profileResponse {
	profiles := make([]profileResponse, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, toProfile(user))
	}
	return profiles
}
