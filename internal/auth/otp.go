package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/26haroon26/chatapp-server/internal/mail"
	"github.com/26haroon26/chatapp-server/internal/repo"
)

const (
	otpLength   = 5
	otpAlphabet = "1234567890"
	otpValidity = 5 * time.Minute
)

// OtpService issues and confirms password-reset codes. Codes are stored as
// salted SHA-256 hashes; the plaintext only ever travels by email.
type OtpService struct {
	otpRepo  repo.OtpRepo
	userRepo repo.UserRepo
	mailer   mail.Mailer
	salt     string
}

// NewOtpService creates a new OTP service
func NewOtpService(otpRepo repo.OtpRepo, userRepo repo.UserRepo, mailer mail.Mailer, salt string) *OtpService {
	return &OtpService{
		otpRepo:  otpRepo,
		userRepo: userRepo,
		mailer:   mailer,
		salt:     salt,
	}
}

// Request generates a fresh code for the email's account, stores its hash,
// and mails the plaintext. The newest code is the only one Confirm honors.
func (s *OtpService) Request(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Matches the original behavior; leaks account existence (see DESIGN.md).
			return fmt.Errorf("user not found")
		}
		return fmt.Errorf("look up user: %w", err)
	}

	code := generateCode()
	if _, err := s.otpRepo.Create(ctx, email, hashCodeHex(email, code, s.salt)); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	body := fmt.Sprintf("Your OTP code is here\n\n%s\n\nPlease don't share this code", code)
	if err := s.mailer.Send(ctx, user.Email, "Forget password email", body); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

// Confirm validates the code against the newest record for the email and, on
// success, consumes it and applies the new password in one transaction.
// Every failure mode comes back as ErrInvalidOtp.
func (s *OtpService) Confirm(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	record, err := s.otpRepo.GetLatestByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidOtp
		}
		return fmt.Errorf("load otp: %w", err)
	}

	if record.Used {
		return ErrInvalidOtp
	}
	if time.Since(record.CreatedAt) >= otpValidity {
		return ErrInvalidOtp
	}
	if subtle.ConstantTimeCompare(hashCode(email, code, s.salt), record.CodeHash) != 1 {
		return ErrInvalidOtp
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.otpRepo.ConsumeAndSetPassword(ctx, record.ID, email, passwordHash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidOtp
		}
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

func generateCode() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := make([]byte, otpLength)
	for i := range b {
		b[i] = otpAlphabet[rng.Intn(len(otpAlphabet))]
	}
	return string(b)
}

// hashCode returns SHA-256(email:code:salt)
func hashCode(email, code, salt string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + code + ":" + salt))
	return sum[:]
}

// hashCodeHex is hashCode encoded for DB storage
func hashCodeHex(email, code, salt string) string {
	return hex.EncodeToString(hashCode(email, code, salt))
}
