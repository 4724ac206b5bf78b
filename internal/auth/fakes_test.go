package auth

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/26haroon26/chatapp-server/internal/model"
	"github.com/26haroon26/chatapp-server/internal/repo"
)

// fakeUserRepo is an in-memory repo.UserRepo for service tests.
type fakeUserRepo struct {
	users map[string]*model.User // keyed by email
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, firstName, lastName, email, passwordHash string) (model.User, error) {
	if _, ok := f.users[email]; ok {
		return model.User{}, repo.ErrDuplicateEmail
	}
	user := &model.User{
		ID:           uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	f.users[email] = user
	return *user, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return *user, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	if user, ok := f.users[email]; ok {
		return *user, nil
	}
	return model.User{}, repo.ErrNotFound
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	for _, user := range f.users {
		if user.ID == id {
			user.PasswordHash = passwordHash
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context, limit int) ([]model.User, error) {
	var users []model.User
	for _, user := range f.users {
		if len(users) == limit {
			break
		}
		users = append(users, *user)
	}
	return users, nil
}

func (f *fakeUserRepo) Search(_ context.Context, q string, limit int) ([]model.User, error) {
	q = strings.ToLower(q)
	var users []model.User
	for _, user := range f.users {
		if len(users) == limit {
			break
		}
		if strings.Contains(strings.ToLower(user.FirstName), q) ||
			strings.Contains(strings.ToLower(user.LastName), q) ||
			strings.Contains(user.Email, q) {
			users = append(users, *user)
		}
	}
	return users, nil
}

// fakeOtpRepo is an in-memory repo.OtpRepo. ConsumeAndSetPassword applies the
// password through the paired user repo, mimicking the real transaction.
type fakeOtpRepo struct {
	codes []model.OtpCode
	users *fakeUserRepo
}

func newFakeOtpRepo(users *fakeUserRepo) *fakeOtpRepo {
	return &fakeOtpRepo{users: users}
}

func (f *fakeOtpRepo) Create(_ context.Context, email, codeHashHex string) (uuid.UUID, error) {
	code := model.OtpCode{
		ID:        uuid.New(),
		Email:     email,
		CodeHash:  mustDecodeHex(codeHashHex),
		CreatedAt: time.Now(),
	}
	f.codes = append(f.codes, code)
	return code.ID, nil
}

func (f *fakeOtpRepo) GetLatestByEmail(_ context.Context, email string) (model.OtpCode, error) {
	for i := len(f.codes) - 1; i >= 0; i-- {
		if f.codes[i].Email == email {
			return f.codes[i], nil
		}
	}
	return model.OtpCode{}, repo.ErrNotFound
}

func (f *fakeOtpRepo) ConsumeAndSetPassword(ctx context.Context, codeID uuid.UUID, email, passwordHash string) error {
	for i := range f.codes {
		if f.codes[i].ID == codeID {
			if f.codes[i].Used {
				return repo.ErrNotFound
			}
			f.codes[i].Used = true
			user, err := f.users.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			return f.users.UpdatePassword(ctx, user.ID, passwordHash)
		}
	}
	return repo.ErrNotFound
}

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// captureMailer records outgoing mail instead of sending it.
type captureMailer struct {
	to      []string
	subject []string
	body    []string
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string) error {
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	m.body = append(m.body, body)
	return nil
}
