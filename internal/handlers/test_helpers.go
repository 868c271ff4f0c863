package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/tenantauth/internal/auth"
	"github.com/BradenHooton/tenantauth/internal/models"
	"github.com/BradenHooton/tenantauth/internal/services"
	pkghttp "github.com/BradenHooton/tenantauth/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   models.TokenTypeAccess,
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	LoginFunc          func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	ChangePasswordFunc func(ctx context.Context, userID, currentPassword, newPassword string) error
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string) error
	AuthorizeFunc      func(ctx context.Context, code, codeVerifier string) (string, error)
	MeFunc             func(ctx context.Context, userID string) (*services.UserResponse, error)
}

func (m *MockAuthService) Register(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, email, password)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc == nil {
		return nil
	}
	return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc == nil {
		return nil
	}
	return m.ResetPasswordFunc(ctx, token, newPassword)
}

func (m *MockAuthService) Authorize(ctx context.Context, code, codeVerifier string) (string, error) {
	if m.AuthorizeFunc == nil {
		return "", models.ErrUpstream
	}
	return m.AuthorizeFunc(ctx, code, codeVerifier)
}

func (m *MockAuthService) Me(ctx context.Context, userID string) (*services.UserResponse, error) {
	if m.MeFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.MeFunc(ctx, userID)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	FindAllFunc func(ctx context.Context) ([]*models.User, error)
}

func (m *MockUserService) FindAll(ctx context.Context) ([]*models.User, error) {
	if m.FindAllFunc == nil {
		return []*models.User{}, nil
	}
	return m.FindAllFunc(ctx)
}

// MockMigrationService implements MigrationService for testing
type MockMigrationService struct {
	CheckCredentialsFunc     func(ctx context.Context, email, password string) (*models.User, error)
	MarkMigratedFunc         func(ctx context.Context, email, providerUserID string, provider models.ProviderName) (*models.User, error)
	CheckEmailExistsFunc     func(ctx context.Context, email string) (*models.User, error)
	HandleForgotPasswordFunc func(ctx context.Context, email string) error
}

func (m *MockMigrationService) CheckCredentials(ctx context.Context, email, password string) (*models.User, error) {
	if m.CheckCredentialsFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.CheckCredentialsFunc(ctx, email, password)
}

func (m *MockMigrationService) MarkMigrated(ctx context.Context, email, providerUserID string, provider models.ProviderName) (*models.User, error) {
	if m.MarkMigratedFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.MarkMigratedFunc(ctx, email, providerUserID, provider)
}

func (m *MockMigrationService) CheckEmailExists(ctx context.Context, email string) (*models.User, error) {
	if m.CheckEmailExistsFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.CheckEmailExistsFunc(ctx, email)
}

func (m *MockMigrationService) HandleForgotPassword(ctx context.Context, email string) error {
	if m.HandleForgotPasswordFunc == nil {
		return nil
	}
	return m.HandleForgotPasswordFunc(ctx, email)
}
