package tests

import (
	"context"
	"encoding/hex"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/26haroon26/chatapp-server/internal/auth"
	httphandler "github.com/26haroon26/chatapp-server/internal/http"
	"github.com/26haroon26/chatapp-server/internal/http/handlers"
	"github.com/26haroon26/chatapp-server/internal/middleware"
	"github.com/26haroon26/chatapp-server/internal/model"
	"github.com/26haroon26/chatapp-server/internal/repo"
	"github.com/26haroon26/chatapp-server/internal/ws"
)

const testJWTSecret = "test-jwt-secret-at-least-32-characters-long"

// fakeUserRepo is an in-memory repo.UserRepo.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, firstName, lastName, email, passwordHash string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == id {
			return *user, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[email]; ok {
		return *user, nil
	}
	return model.User{}, repo.ErrNotFound
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == id {
			user.PasswordHash = passwordHash
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context, limit int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []model.User
	for _, user := range f.users {
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (f *fakeUserRepo) Search(_ context.Context, q string, limit int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

// fakeOtpRepo is an in-memory repo.OtpRepo paired with the user fake so the
// consume-and-apply step behaves like the real single transaction.
type fakeOtpRepo struct {
	mu    sync.Mutex
	codes []model.OtpCode
	users *fakeUserRepo
}

func newFakeOtpRepo(users *fakeUserRepo) *fakeOtpRepo {
	return &fakeOtpRepo{users: users}
}

func (f *fakeOtpRepo) Create(_ context.Context, email, codeHashHex string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := model.OtpCode{
		ID:        uuid.New(),
		Email:     email,
		CodeHash:  decodeHex(codeHashHex),
		CreatedAt: time.Now(),
	}
	f.codes = append(f.codes, code)
	return code.ID, nil
}

func (f *fakeOtpRepo) GetLatestByEmail(_ context.Context, email string) (model.OtpCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.codes) - 1; i >= 0; i-- {
		if f.codes[i].Email == email {
			return f.codes[i], nil
		}
	}
	return model.OtpCode{}, repo.ErrNotFound
}

func (f *fakeOtpRepo) ConsumeAndSetPassword(ctx context.Context, codeID uuid.UUID, email, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
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

// fakeMessageRepo is an in-memory repo.MessageRepo. Create expands both
// participants through the user fake, like the real repo's join.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []model.Message
	users    *fakeUserRepo
}

func newFakeMessageRepo(users *fakeUserRepo) *fakeMessageRepo {
	return &fakeMessageRepo{users: users}
}

func (f *fakeMessageRepo) Create(ctx context.Context, fromID, toID uuid.UUID, text string) (model.Message, error) {
	from, err := f.users.GetByID(ctx, fromID)
	if err != nil {
		return model.Message{}, err
	}
	to, err := f.users.GetByID(ctx, toID)
	if err != nil {
		return model.Message{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := model.Message{
		ID:        uuid.New(),
		Text:      text,
		From:      participant(from),
		To:        participant(to),
		CreatedAt: time.Now().Add(time.Duration(len(f.messages)) * time.Millisecond),
	}
	f.messages = append(f.messages, msg)
	return msg, nil
}

func (f *fakeMessageRepo) Conversation(_ context.Context, a, b uuid.UUID, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for i := len(f.messages) - 1; i >= 0 && len(out) < limit; i-- {
		msg := f.messages[i]
		if (msg.From.ID == a && msg.To.ID == b) || (msg.From.ID == b && msg.To.ID == a) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func decodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func participant(user model.User) model.Participant {
	return model.Participant{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
}

// captureMailer records outgoing mail instead of sending it.
type captureMailer struct {
	mu   sync.Mutex
	body []string
}

func (m *captureMailer) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.body = append(m.body, body)
	return nil
}

func (m *captureMailer) lastBody() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.body) == 0 {
		return ""
	}
	return m.body[len(m.body)-1]
}

// testServer wires the full router over the fakes.
type testServer struct {
	Server *httptest.Server
	Users  *fakeUserRepo
	Otps   *fakeOtpRepo
	Hub    *ws.Hub
	Mailer *captureMailer
	Tokens *auth.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	users := newFakeUserRepo()
	otps := newFakeOtpRepo(users)
	messages := newFakeMessageRepo(users)
	mailer := &captureMailer{}

	tokens := auth.NewTokenService(testJWTSecret)
	authService := auth.NewAuthService(tokens, users)
	otpService := auth.NewOtpService(otps, users, mailer, "test-otp-salt")
	gate := middleware.NewGate(tokens)

	hub := ws.NewHub()
	wsHandler := ws.NewHandler(hub, gate)

	authHandler := handlers.NewAuthHandler(authService, otpService)
	userHandler := handlers.NewUserHandler(users, authService)
	messageHandler := handlers.NewMessageHandler(messages, hub)

	router := httphandler.NewRouter(gate, authHandler, userHandler, messageHandler, wsHandler, "http://localhost:3000")
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{
		Server: server,
		Users:  users,
		Otps:   otps,
		Hub:    hub,
		Mailer: mailer,
		Tokens: tokens,
	}
}
