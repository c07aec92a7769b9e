package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"questrya/internal/database"
	"questrya/internal/domain"
	"questrya/internal/handlers"
	"questrya/internal/logging"
	"questrya/internal/middleware"
	"questrya/internal/repositories"
	"questrya/internal/services"
	"questrya/internal/tasks"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const jwtSecret = "test_jwt_secret"

// recordingPublisher keeps every published message in memory.
type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (p *recordingPublisher) Publish(queue string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = make(map[string][][]byte)
	}
	p.messages[queue] = append(p.messages[queue], body)
	return nil
}

func (p *recordingPublisher) count(queue string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages[queue])
}

type testApp struct {
	app  *fiber.App
	auth *services.AuthService
	pub  *recordingPublisher
}

// setupApp sets up a Fiber app for testing with a private in-memory SQLite database.
func setupApp(t *testing.T, ready handlers.HealthCheck) *testApp {
	t.Helper()

	db, err := database.OpenSQLiteMemory(uuid.NewString())
	require.NoError(t, err)
	if ready == nil {
		ready = func(ctx context.Context) error { return database.Ping(ctx, db) }
	}

	logger := logging.Discard()
	hasher := domain.WithHasher(domain.NewBcryptHasher(bcrypt.MinCost))
	pub := &recordingPublisher{}

	userRepo := repositories.NewGORMUserRepository(db, hasher)
	userService := services.NewUserService(userRepo, pub, logger, hasher)
	authService := services.NewAuthService(userRepo, jwtSecret, time.Hour, 24*time.Hour, logger)
	enqueuer := tasks.NewEnqueuer(pub, "default", logger)
	dispatcher := tasks.NewDispatcher(logger)

	app := fiber.New()
	api := app.Group("/api")
	auth := middleware.AuthRequired(authService, logger)

	handlers.NewUserHandler(userService, logger).RegisterRoutes(api, auth)
	handlers.NewAuthHandler(authService, logger).RegisterRoutes(api)
	handlers.NewMonitorHandler("1.2.3", ready, logger).RegisterRoutes(api)
	handlers.NewTaskHandler(enqueuer, dispatcher, logger).RegisterRoutes(api, auth)

	return &testApp{app: app, auth: authService, pub: pub}
}

// call performs a JSON request and decodes the JSON response.
func (a *testApp) call(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (a *testApp) register(t *testing.T, username, email, password string) string {
	t.Helper()
	status, body := a.call(t, http.MethodPost, "/api/users/user", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusCreated, status, body)
	return body["uuid"].(string)
}

func (a *testApp) login(t *testing.T, email, password string) (string, string) {
	t.Helper()
	status, body := a.call(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, status, body)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestCreateUser(t *testing.T) {
	a := setupApp(t, nil)

	id := a.register(t, "picard", "jean_luc_picard@enterprise.org", "12345678")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, 1, a.pub.count(services.UserEventsQueue))

	status, body := a.call(t, http.MethodPost, "/api/users/user", map[string]string{
		"username": "picard2",
		"email":    "jean_luc_picard@enterprise.org",
		"password": "12345678",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "email already registered (jean_luc_picard@enterprise.org)", body["error"])
}

func TestCreateUserValidation(t *testing.T) {
	a := setupApp(t, nil)

	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{
			name:    "blank username",
			body:    map[string]string{"username": "   ", "email": "riker@enterprise.org", "password": "12345678"},
			message: "Username cannot be empty",
		},
		{
			name:    "short password",
			body:    map[string]string{"username": "riker", "email": "riker@enterprise.org", "password": "1234"},
			message: "Password must be at least 8 characters long",
		},
		{
			name:    "invalid email",
			body:    map[string]string{"username": "riker", "email": "abc@def", "password": "12345678"},
			message: "Invalid email address: abc@def",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.call(t, http.MethodPost, "/api/users/user", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestLoginAndGetUser(t *testing.T) {
	a := setupApp(t, nil)
	id := a.register(t, "picard", "jean_luc_picard@enterprise.org", "12345678")

	access, refresh := a.login(t, "Jean_Luc_Picard@enterprise.org", "12345678")
	assert.NotEmpty(t, refresh)

	status, body := a.call(t, http.MethodGet, "/api/users/user", nil, access)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body["uuid"])
	assert.Equal(t, "picard", body["username"])
	assert.Equal(t, "jean_luc_picard@enterprise.org", body["email"])

	status, body = a.call(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "jean_luc_picard@enterprise.org",
		"password": "wrongpassword",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", body["error"])
}

func TestProtectedRoutesRequireAccessToken(t *testing.T) {
	a := setupApp(t, nil)
	a.register(t, "picard", "jean_luc_picard@enterprise.org", "12345678")
	_, refresh := a.login(t, "jean_luc_picard@enterprise.org", "12345678")

	status, _ := a.call(t, http.MethodGet, "/api/users/user", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.call(t, http.MethodGet, "/api/users/user", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)

	// a refresh token is not an access token
	status, _ = a.call(t, http.MethodGet, "/api/users/user", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshToken(t *testing.T) {
	a := setupApp(t, nil)
	id := a.register(t, "picard", "jean_luc_picard@enterprise.org", "12345678")
	access, refresh := a.login(t, "jean_luc_picard@enterprise.org", "12345678")

	status, body := a.call(t, http.MethodPost, "/api/auth/token/new", nil, refresh)
	require.Equal(t, http.StatusOK, status, body)
	newAccess := body["access_token"].(string)

	claims, err := a.auth.ValidateToken(newAccess, services.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, claims["user_id"])

	status, _ = a.call(t, http.MethodPost, "/api/auth/token/new", nil, access)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUpdateUser(t *testing.T) {
	a := setupApp(t, nil)
	id := a.register(t, "picard", "jean_luc_picard@enterprise.org", "12345678")
	a.register(t, "riker", "riker@enterprise.org", "12345678")
	access, _ := a.login(t, "jean_luc_picard@enterprise.org", "12345678")

	status, body := a.call(t, http.MethodPatch, "/api/users/user", map[string]string{
		"email":    "newpicard@enterprise.org",
		"password": "newpassword123",
	}, access)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, id, body["uuid"])
	assert.Equal(t, "newpicard@enterprise.org", body["email"])
	assert.Equal(t, "UPDATED", body["password"])

	// old credentials no longer work, new ones do
	status, _ = a.call(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "jean_luc_picard@enterprise.org", "password": "12345678",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	a.login(t, "newpicard@enterprise.org", "newpassword123")

	status, body = a.call(t, http.MethodPatch, "/api/users/user", map[string]string{
		"email": "riker@enterprise.org",
	}, access)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "email already registered (riker@enterprise.org)", body["error"])

	status, _ = a.call(t, http.MethodPatch, "/api/users/user", map[string]string{}, access)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.call(t, http.MethodPatch, "/api/users/user", map[string]string{"password": "short"}, access)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Password must be at least 8 characters long", body["error"])
}

func TestGetUserDeletedAccount(t *testing.T) {
	a := setupApp(t, nil)

	// token for an identity that was never stored
	token, err := signAccess(uuid.NewString())
	require.NoError(t, err)

	status, body := a.call(t, http.MethodGet, "/api/users/user", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "user not found")
}

func TestMonitor(t *testing.T) {
	a := setupApp(t, nil)

	status, body := a.call(t, http.MethodGet, "/api/monitor/readiness", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["ready"])
	assert.Equal(t, "1.2.3", body["app_version"])
	assert.Equal(t, "fiber-framework "+fiber.Version, body["app_type"])

	status, body = a.call(t, http.MethodGet, "/api/monitor/liveness", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["live"])
	_, err := time.Parse(time.RFC3339Nano, body["timestamp"].(string))
	assert.NoError(t, err)

	down := setupApp(t, func(context.Context) error { return errors.New("connection refused") })
	status, _ = down.call(t, http.MethodGet, "/api/monitor/readiness", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestEnqueueTask(t *testing.T) {
	a := setupApp(t, nil)
	a.register(t, "picard", "jean_luc_picard@enterprise.org", "12345678")
	access, _ := a.login(t, "jean_luc_picard@enterprise.org", "12345678")

	status, body := a.call(t, http.MethodPost, "/api/tasks/compute", map[string]any{
		"args": map[string]any{"x": 1, "y": 2},
	}, access)
	require.Equal(t, http.StatusAccepted, status, body)
	assert.Equal(t, "compute", body["queue"])
	assert.NotEmpty(t, body["task_id"])
	assert.Equal(t, 1, a.pub.count("compute"))

	status, _ = a.call(t, http.MethodPost, "/api/tasks/self_destruct", nil, access)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.call(t, http.MethodPost, "/api/tasks/compute", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

// signAccess mints an access token for an arbitrary identity.
func signAccess(userID string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": "ghost",
		"type":     "access",
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
}
