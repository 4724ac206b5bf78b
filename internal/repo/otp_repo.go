package repo

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/26haroon26/chatapp-server/internal/model"
)

// OtpRepo defines the interface for password-reset code repository operations
type OtpRepo interface {
	Create(ctx context.Context, email, codeHashHex string) (uuid.UUID, error)
	GetLatestByEmail(ctx context.Context, email string) (model.OtpCode, error)
	ConsumeAndSetPassword(ctx context.Context, codeID uuid.UUID, email, passwordHash string) error
}

type otpRepo struct {
	db *sql.DB
}

// NewOtpRepo creates a new OtpRepo instance
func NewOtpRepo(db *sql.DB) OtpRepo {
	return &otpRepo{db: db}
}

// Create inserts a new reset code row. Older rows for the email are left in
// place; GetLatestByEmail only ever returns the newest one.
func (r *otpRepo) Create(ctx context.Context, email, codeHashHex string) (uuid.UUID, error) {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO otp_codes (email, code_hash)
		VALUES ($1, $2)
		RETURNING id
	`, email, codeHashHex).Scan(&idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert otp code: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse otp ID: %w", err)
	}
	return id, nil
}

// GetLatestByEmail returns the most recently created code for the email,
// used or not. Deciding whether it is still valid is the caller's job.
func (r *otpRepo) GetLatestByEmail(ctx context.Context, email string) (model.OtpCode, error) {
	query := `
		SELECT id, email, code_hash, used, created_at
		FROM otp_codes
		WHERE email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var code model.OtpCode
	var idStr, hashHex string
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&idStr,
		&code.Email,
		&hashHex,
		&code.Used,
		&code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OtpCode{}, ErrNotFound
		}
		return model.OtpCode{}, fmt.Errorf("query otp code: %w", err)
	}
	code.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.OtpCode{}, fmt.Errorf("parse otp ID: %w", err)
	}
	code.CodeHash, err = hex.DecodeString(hashHex)
	if err != nil {
		return model.OtpCode{}, fmt.Errorf("decode code_hash: %w", err)
	}
	return code, nil
}

// ConsumeAndSetPassword marks the code used and overwrites the user's
// password hash in a single transaction, so a crash cannot burn the code
// without applying the new password.
func (r *otpRepo) ConsumeAndSetPassword(ctx context.Context, codeID uuid.UUID, email, passwordHash string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE otp_codes SET used = true WHERE id = $1 AND used = false
	`, codeID)
	if err != nil {
		return fmt.Errorf("consume otp code: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE users SET password_hash = $2 WHERE email = $1
	`, email, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
