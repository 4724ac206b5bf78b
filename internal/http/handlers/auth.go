package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/26haroon26/chatapp-server/internal/auth"
	"github.com/26haroon26/chatapp-server/internal/mail"
	"github.com/26haroon26/chatapp-server/internal/middleware"
	"github.com/26haroon26/chatapp-server/internal/model"
	"github.com/26haroon26/chatapp-server/internal/repo"
)

const (
	signupExample = `{
	"firstName": "John",
	"lastName": "Doe",
	"email": "abc@abc.com",
	"password": "12345"
}`
	loginExample = `{
	"email": "abc@abc.com",
	"password": "12345"
}`
	forgetExample = `{
	"email": "abc@abc.com"
}`
	resetExample = `{
	"email": "abc@abc.com",
	"otp": "12345",
	"newPassword": "someSecretString"
}`
)

// AuthHandler handles signup, login, and password-reset endpoints
type AuthHandler struct {
	authService  *auth.AuthService
	otpService   *auth.OtpService
	validate     *validator.Validate
	loginLimiter *middleware.RateLimiter
	otpLimiter   *middleware.RateLimiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService, otpService *auth.OtpService) *AuthHandler {
	// IP rate limits: 20 login attempts and 5 reset requests per 10 minutes
	return &AuthHandler{
		authService:  authService,
		otpService:   otpService,
		validate:     validator.New(),
		loginLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
		otpLimiter:   middleware.NewRateLimiter(10*time.Minute, 5),
	}
}

type signupRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

// HandleSignup handles POST /signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMissingFields(w, signupExample)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondMissingFields(w, signupExample)
		return
	}

	_, err := h.authService.Signup(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			respondWithError(w, http.StatusBadRequest, "user already exists, please try a different email")
			return
		}
		log.Printf("signup failed for %s: %v", mail.MaskEmail(req.Email), err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondMessage(w, http.StatusCreated, "user is created")
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type profileResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func toProfile(user model.User) profileResponse {
	return profileResponse{
		ID:        user.ID.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
}

// HandleLogin handles POST /login: on success it sets the session cookie
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMissingFields(w, loginExample)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondMissingFields(w, loginExample)
		return
	}

	if !h.loginLimiter.Allow(middleware.ClientIP(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		log.Printf("login failed for %s: %v", mail.MaskEmail(req.Email), err)
		respondWithError(w, http.StatusInternalServerError, "login failed, please try later")
		return
	}

	middleware.SetSessionCookie(w, token)
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"profile": toProfile(user),
	})
}

// HandleLogout handles POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w)
	respondMessage(w, http.StatusOK, "Logout successful")
}

type forgetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleForgetPassword handles POST /forget-password: issues and mails an OTP
func (h *AuthHandler) HandleForgetPassword(w http.ResponseWriter, r *http.Request) {
	var req forgetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMissingFields(w, forgetExample)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondMissingFields(w, forgetExample)
		return
	}

	if !h.otpLimiter.Allow(middleware.ClientIP(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	if err := h.otpService.Request(r.Context(), req.Email); err != nil {
		log.Printf("reset request failed for %s: %v", mail.MaskEmail(req.Email), err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondMessage(w, http.StatusOK, "OTP sent success")
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Otp         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// HandleResetPassword handles POST /forget-password-2: confirms the OTP and
// applies the new password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMissingFields(w, resetExample)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondMissingFields(w, resetExample)
		return
	}

	if err := h.otpService.Confirm(r.Context(), req.Email, req.Otp, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidOtp) {
			respondWithError(w, http.StatusInternalServerError, "Invalid Otp")
			return
		}
		log.Printf("reset confirm failed for %s: %v", mail.MaskEmail(req.Email), err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondMessage(w, http.StatusOK, "password updated success")
}
