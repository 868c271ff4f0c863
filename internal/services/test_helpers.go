package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/tenantauth/internal/auth"
	"github.com/BradenHooton/tenantauth/internal/models"
	"github.com/BradenHooton/tenantauth/internal/repositories"
	"github.com/BradenHooton/tenantauth/internal/tenant"
	pkgauth "github.com/BradenHooton/tenantauth/pkg/auth"
	pkglogger "github.com/BradenHooton/tenantauth/pkg/logger"
)

// MemoryUserRepository is an in-memory repositories.UserRepository. The
// optional Func fields override individual operations.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User

	InsertFunc          func(ctx context.Context, user *models.User) error
	FindByEmailFunc     func(ctx context.Context, email string, withHash bool) (*models.User, error)
	UpdateMigrationFunc func(ctx context.Context, user *models.User) (*models.User, error)
	ListFunc            func(ctx context.Context) ([]*models.User, error)
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*models.User)}
}

func copyUser(u *models.User, withHash bool) *models.User {
	c := *u
	if !withHash {
		c.PasswordHash = ""
	}
	return &c
}

func (m *MemoryUserRepository) Insert(ctx context.Context, user *models.User) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return models.ErrConflict
		}
	}
	m.users[user.ID] = copyUser(user, true)
	return nil
}

func (m *MemoryUserRepository) FindByEmail(ctx context.Context, email string, withHash bool) (*models.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email, withHash)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	email = models.NormalizeEmail(email)
	for _, u := range m.users {
		if u.DeletedAt == nil && strings.ToLower(u.Email) == email {
			return copyUser(u, withHash), nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MemoryUserRepository) FindByID(_ context.Context, id string, withHash bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, models.ErrNotFound
	}
	return copyUser(u, withHash), nil
}

func (m *MemoryUserRepository) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *MemoryUserRepository) List(ctx context.Context) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		if u.DeletedAt == nil {
			users = append(users, copyUser(u, false))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (m *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return models.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryUserRepository) UpdateMigration(ctx context.Context, user *models.User) (*models.User, error) {
	if m.UpdateMigrationFunc != nil {
		return m.UpdateMigrationFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[user.ID]
	if !ok || u.DeletedAt != nil {
		return nil, models.ErrNotFound
	}
	u.MigrationStatus = user.MigrationStatus
	u.ProviderName = user.ProviderName
	u.ProviderUserID = user.ProviderUserID
	u.MigrationDate = user.MigrationDate
	u.UpdatedAt = time.Now().UTC()
	return copyUser(u, false), nil
}

// Put stores a user directly, bypassing uniqueness checks.
func (m *MemoryUserRepository) Put(user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = copyUser(user, true)
}

// Get returns the stored copy of a user including the hash.
func (m *MemoryUserRepository) Get(id string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return copyUser(u, true)
	}
	return nil
}

// NewMemoryRegistry returns a tenant registry that lazily creates one
// in-memory repository per tenant, plus a lookup into what it created.
func NewMemoryRegistry() (*tenant.Registry[repositories.UserRepository], func(tenantID string) *MemoryUserRepository) {
	var mu sync.Mutex
	created := map[string]*MemoryUserRepository{}

	open := func(tenantID string) repositories.UserRepository {
		mu.Lock()
		defer mu.Unlock()
		repo, ok := created[tenantID]
		if !ok {
			repo = NewMemoryUserRepository()
			created[tenantID] = repo
		}
		return repo
	}

	registry := tenant.NewRegistry[repositories.UserRepository](open(""), open)
	lookup := func(tenantID string) *MemoryUserRepository {
		_ = open(tenantID)
		mu.Lock()
		defer mu.Unlock()
		return created[tenantID]
	}
	return registry, lookup
}

// MockAuthorizationClient implements AuthorizationClient for testing
type MockAuthorizationClient struct {
	ExchangeFunc func(ctx context.Context, code, codeVerifier string) (map[string]any, error)
}

func (m *MockAuthorizationClient) Exchange(ctx context.Context, code, codeVerifier string) (map[string]any, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code, codeVerifier)
	}
	return map[string]any{"sub": "external-user"}, nil
}

// SentResetEmail is one call recorded by RecordingNotifier.
type SentResetEmail struct {
	Email    string
	TenantID string
	Token    string
}

// RecordingNotifier implements PasswordResetNotifier by remembering calls.
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []SentResetEmail
	Err  error
}

func (n *RecordingNotifier) SendPasswordResetEmail(_ context.Context, email, tenantID, token string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, SentResetEmail{Email: email, TenantID: tenantID, Token: token})
	return n.Err
}

func (n *RecordingNotifier) Calls() []SentResetEmail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentResetEmail(nil), n.Sent...)
}

const TestJWTSecret = "test-secret-key-for-services-0123456789"

// TestLogger discards output.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestFixture wires services over in-memory tenant repositories.
type TestFixture struct {
	Registry *tenant.Registry[repositories.UserRepository]
	Repo     func(tenantID string) *MemoryUserRepository
	Tokens   *auth.TokenManager
	Hasher   *pkgauth.PasswordHasher
	Notifier *RecordingNotifier
	Authz    *MockAuthorizationClient
	Users    *UserService
	Auth     *AuthService
}

func NewTestFixture() *TestFixture {
	registry, lookup := NewMemoryRegistry()
	logger := TestLogger()
	audit := pkglogger.NewAuditLogger(logger)
	tokens := auth.NewTokenManager(TestJWTSecret, time.Hour, 30*time.Minute)
	hasher := pkgauth.NewPasswordHasher(4)
	notifier := &RecordingNotifier{}
	authz := &MockAuthorizationClient{}

	users := NewUserService(registry, hasher, tokens, notifier, 30*time.Minute, logger, audit)
	authService := NewAuthService(users, tokens, authz, nil, logger, audit)

	return &TestFixture{
		Registry: registry,
		Repo:     lookup,
		Tokens:   tokens,
		Hasher:   hasher,
		Notifier: notifier,
		Authz:    authz,
		Users:    users,
		Auth:     authService,
	}
}

// Seed stores a legacy user with the given password in a tenant.
func (f *TestFixture) Seed(tenantID, id, email, password string) *models.User {
	hash, err := f.Hasher.Hash(password)
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC()
	user := &models.User{
		ID:              id,
		Email:           email,
		PasswordHash:    hash,
		MigrationStatus: models.MigrationStatusNonMigrated,
		ProviderName:    models.ProviderLegacy,
		Enabled:         true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.Repo(tenantID).Put(user)
	return user
}

// Ctx returns a context resolved to tenantID.
func Ctx(tenantID string) context.Context {
	return tenant.WithTenant(context.Background(), tenantID)
}
