package services

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/auth"
	"github.com/dmitrijs2005/userhub/internal/server/config"
	"github.com/dmitrijs2005/userhub/internal/server/mail"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"golang.org/x/crypto/bcrypt"
)

// memRepo is an in-memory users.Repository with a unique email index.
type memRepo struct {
	mu   sync.Mutex
	byID map[string]*models.User
	seq  int

	// hooks override a method when set
	createErr         error
	updatePasswordErr error
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*models.User{}}
}

func clone(u *models.User) *models.User {
	c := *u
	return &c
}

func (r *memRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.seq++
	u.ID = "u-" + strconv.Itoa(r.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.byID[u.ID] = clone(u)
	return u, nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(u), nil
}

func (r *memRepo) List(_ context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) UpdateProfile(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	r.byID[u.ID] = clone(u)
	return u, nil
}

func (r *memRepo) UpdateImage(_ context.Context, id, imageURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.UserImg = imageURL
	return nil
}

func (r *memRepo) UpdatePassword(_ context.Context, id, hash string, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updatePasswordErr != nil {
		return r.updatePasswordErr
	}
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if u.TokenVersion != expectedVersion {
		return common.ErrVersionConflict
	}
	u.Password = hash
	u.TokenVersion++
	return nil
}

func (r *memRepo) setRole(id string, role models.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].Role = role
}

func (r *memRepo) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// captureMailer records every message and fails those whose subject is in failSubjects.
type captureMailer struct {
	mu           sync.Mutex
	sent         []mail.Message
	failSubjects map[string]error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failSubjects[msg.Subject]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type fakeLimiter struct {
	allow bool
	err   error
	calls []string
}

func (l *fakeLimiter) Allow(_ context.Context, recipient string) (bool, error) {
	l.calls = append(l.calls, recipient)
	return l.allow, l.err
}

type fakeImages struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (f *fakeImages) Upload(_ context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.contentType = key, contentType
	f.body, _ = io.ReadAll(body)
	return "http://img.local/" + key, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testConfig() *config.Config {
	return &config.Config{
		FrontendBaseURL:            "http://localhost:3000",
		ResetTokenValidityDuration: time.Hour,
	}
}

// fixture wires both services over shared fakes.
type fixture struct {
	repo    *memRepo
	mailer  *captureMailer
	images  *fakeImages
	clock   *fakeClock
	hasher  auth.PasswordHasher
	users   *UserService
	resets  *PasswordResetService
	limiter *fakeLimiter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:   newMemRepo(),
		mailer: &captureMailer{},
		images: &fakeImages{},
		clock:  &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		hasher: auth.NewBcryptHasher(bcrypt.MinCost),
	}

	issuer := auth.NewIssuer([]byte("test-secret"), 24*time.Hour, time.Hour).WithClock(f.clock.Now)
	cfg := testConfig()

	f.users = NewUserService(f.repo, issuer, f.hasher, f.images, logging.Nop())
	f.resets = NewPasswordResetService(f.repo, issuer, f.hasher, f.mailer, nil, cfg, logging.Nop())
	f.resets.now = f.clock.Now
	return f
}

func (f *fixture) withLimiter(l *fakeLimiter) {
	f.limiter = l
	f.resets.limiter = l
}

func aliceInput() RegisterInput {
	return RegisterInput{
		Username: "alice",
		DOB:      time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		Gender:   models.GenderFemale,
		Email:    "a@x.com",
		Address:  "1 Main St",
		City:     "Riga",
		Pincode:  "1010",
		Password: "p1",
	}
}

func (f *fixture) register(t *testing.T, in RegisterInput) (*models.User, string) {
	t.Helper()
	u, tok, err := f.users.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register(%s) error: %v", in.Email, err)
	}
	return u, tok
}

func (f *fixture) claimsFor(t *testing.T, token string) *auth.SessionClaims {
	t.Helper()
	c, err := f.users.VerifySession(token)
	if err != nil {
		t.Fatalf("VerifySession error: %v", err)
	}
	return c
}
