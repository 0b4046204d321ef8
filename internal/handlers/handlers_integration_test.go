package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"jsonplaceholder/internal/handlers"
	"jsonplaceholder/internal/middleware"
	"jsonplaceholder/internal/models"
	"jsonplaceholder/internal/repositories"
	"jsonplaceholder/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp builds a Fiber app backed by a named in-memory SQLite database.
// Each test uses its own database name so registrations do not leak between
// tests.
func setupApp(dbName string) (*fiber.App, *services.AuthService, *gorm.DB, error) {
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.AuthUser{}); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	userRepo := repositories.NewGORMUserRepository(db)
	authUserRepo := repositories.NewGORMAuthUserRepository(db)
	txManager := repositories.NewGORMTxManager(db)

	authService := services.NewAuthService(authUserRepo, txManager, nil, jwtSecret)
	userService := services.NewUserService(userRepo, txManager, nil)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)

	app := fiber.New()
	authHandler.RegisterRoutes(app)
	userHandler.RegisterRoutes(app, middleware.AuthRequired(authService))

	return app, authService, db, nil
}

// doJSON performs a request with an optional JSON body and bearer token.
func doJSON(t *testing.T, app *fiber.App, method, url string, body interface{}, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1) // -1 for no timeout
	assert.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

// registerUser registers a fresh account and returns its token.
func registerUser(t *testing.T, app *fiber.App, name, username, email, password string) string {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"username": username,
		"email":    email,
		"password": password,
	}, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var jwtResp models.JwtResponse
	decodeBody(t, resp, &jwtResp)
	assert.NotEmpty(t, jwtResp.Token)
	return jwtResp.Token
}

// TestMain runs setup and teardown for all tests.
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app, authService, db, err := setupApp("authflow")
	assert.NoError(t, err)

	// Register.
	registerBody := map[string]string{
		"name":     "Test User",
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password123",
	}
	resp := doJSON(t, app, http.MethodPost, "/auth/register", registerBody, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var registerResp models.JwtResponse
	decodeBody(t, resp, &registerResp)
	assert.NotEmpty(t, registerResp.Token)
	assert.Equal(t, "Bearer", registerResp.Type)
	assert.Equal(t, "Test User", registerResp.User.Name)
	assert.Equal(t, "testuser", registerResp.User.Username)
	assert.Equal(t, "test@example.com", registerResp.User.Email)

	// Duplicate registration fails without creating a second pair.
	resp = doJSON(t, app, http.MethodPost, "/auth/register", registerBody, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	var userCount, authUserCount int64
	assert.NoError(t, db.Model(&models.User{}).Where("email = ?", "test@example.com").Count(&userCount).Error)
	assert.NoError(t, db.Model(&models.AuthUser{}).Where("email = ?", "test@example.com").Count(&authUserCount).Error)
	assert.Equal(t, int64(1), userCount)
	assert.Equal(t, int64(1), authUserCount)

	// Login with the registered credential.
	resp = doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp models.JwtResponse
	decodeBody(t, resp, &loginResp)
	assert.NotEmpty(t, loginResp.Token)
	assert.Equal(t, registerResp.User.ID, loginResp.User.ID)

	// The token's identity matches the registered credential.
	claims, err := authService.ValidateToken(loginResp.Token)
	assert.NoError(t, err)
	assert.Equal(t, "test@example.com", claims["email"])
	assert.Equal(t, float64(registerResp.User.ID), claims["user_id"])

	// Wrong password and unknown email fail alike.
	resp = doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "wrongpassword",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var wrongPassword map[string]string
	decodeBody(t, resp, &wrongPassword)

	resp = doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var unknownEmail map[string]string
	decodeBody(t, resp, &unknownEmail)
	assert.Equal(t, wrongPassword["message"], unknownEmail["message"])
}

func TestUserCRUDFlow(t *testing.T) {
	app, _, _, err := setupApp("crudflow")
	assert.NoError(t, err)
	token := registerUser(t, app, "Admin", "admin", "admin@example.com", "password123")

	// Create a user with every nested section.
	createBody := models.UserDTO{
		Name:     "Leanne Graham",
		Username: "Bret",
		Email:    "leanne@example.com",
		Phone:    "1-770-736-8031",
		Website:  "hildegard.org",
		Address: &models.AddressDTO{
			Street:  "Kulas Light",
			Suite:   "Apt. 556",
			City:    "Gwenborough",
			Zipcode: "92998-3874",
			Geo:     &models.GeoDTO{Lat: "-37.3159", Lng: "81.1496"},
		},
		Company: &models.CompanyDTO{
			Name:        "Romaguera-Crona",
			CatchPhrase: "Multi-layered client-server neural-net",
			Bs:          "harness real-time e-markets",
		},
	}
	resp := doJSON(t, app, http.MethodPost, "/users", createBody, token)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.UserDTO
	decodeBody(t, resp, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Bret", created.Username)
	assert.Equal(t, "-37.3159", created.Address.Geo.Lat)

	userURL := fmt.Sprintf("/users/%d", created.ID)

	// Reads are public.
	resp = doJSON(t, app, http.MethodGet, "/users", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.UserDTO
	decodeBody(t, resp, &list)
	assert.GreaterOrEqual(t, len(list), 2) // registration also created a profile

	resp = doJSON(t, app, http.MethodGet, userURL, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.UserDTO
	decodeBody(t, resp, &fetched)
	assert.Equal(t, "Romaguera-Crona", fetched.Company.Name)

	// Partial update: address without geo overwrites the address scalars but
	// keeps the stored geo; the absent company section survives untouched.
	resp = doJSON(t, app, http.MethodPut, userURL, models.UserDTO{
		Name:     "Leanne Graham",
		Username: "Bret",
		Email:    "leanne@example.com",
		Address:  &models.AddressDTO{Street: "New Street"},
	}, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.UserDTO
	decodeBody(t, resp, &updated)
	assert.Equal(t, "New Street", updated.Address.Street)
	assert.Equal(t, "", updated.Address.Suite)
	assert.Equal(t, "-37.3159", updated.Address.Geo.Lat)
	assert.Equal(t, "Romaguera-Crona", updated.Company.Name)

	// The merge result is persisted, not just echoed.
	resp = doJSON(t, app, http.MethodGet, userURL, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var refetched models.UserDTO
	decodeBody(t, resp, &refetched)
	assert.Equal(t, "New Street", refetched.Address.Street)
	assert.Equal(t, "-37.3159", refetched.Address.Geo.Lat)
	assert.Equal(t, "Romaguera-Crona", refetched.Company.Name)

	// Update without any nested sections keeps them all.
	resp = doJSON(t, app, http.MethodPut, userURL, models.UserDTO{
		Name:     "Leanne G.",
		Username: "Bret",
		Email:    "leanne@example.com",
	}, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &updated)
	assert.Equal(t, "Leanne G.", updated.Name)
	assert.Equal(t, "New Street", updated.Address.Street)
	assert.Equal(t, "-37.3159", updated.Address.Geo.Lat)

	// Delete, then the profile is gone.
	resp = doJSON(t, app, http.MethodDelete, userURL, nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, userURL, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, userURL, nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Unknown and malformed ids.
	resp = doJSON(t, app, http.MethodGet, "/users/9999", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/users/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteCascadesCredential(t *testing.T) {
	app, _, db, err := setupApp("cascade")
	assert.NoError(t, err)
	token := registerUser(t, app, "Doomed", "doomed", "doomed@example.com", "password123")

	var user models.User
	assert.NoError(t, db.First(&user, "email = ?", "doomed@example.com").Error)

	resp := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/users/%d", user.ID), nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var authUserCount int64
	assert.NoError(t, db.Model(&models.AuthUser{}).Where("email = ?", "doomed@example.com").Count(&authUserCount).Error)
	assert.Equal(t, int64(0), authUserCount)
}

func TestUserEndpointsRequireAuth(t *testing.T) {
	app, _, _, err := setupApp("gate")
	assert.NoError(t, err)

	body := models.UserDTO{Name: "N", Username: "u", Email: "u@example.com"}

	resp := doJSON(t, app, http.MethodPost, "/users", body, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPut, "/users/1", body, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, "/users/1", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/users", body, "not.a.token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Reads stay public.
	resp = doJSON(t, app, http.MethodGet, "/users", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestRegisterValidation(t *testing.T) {
	app, _, _, err := setupApp("validation")
	assert.NoError(t, err)

	// Missing email.
	resp := doJSON(t, app, http.MethodPost, "/auth/register", map[string]string{
		"name":     "No Email",
		"username": "noemail",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Equal(t, "Validation failed", body["message"])
	errs, ok := body["errors"].(map[string]interface{})
	assert.True(t, ok)
	assert.Contains(t, errs, "Email")

	// Password below the minimum length.
	resp = doJSON(t, app, http.MethodPost, "/auth/register", map[string]string{
		"name":     "Short",
		"username": "short",
		"email":    "short@example.com",
		"password": "123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Create requires the same scalar fields.
	token := registerUser(t, app, "Valid", "valid", "valid@example.com", "password123")
	resp = doJSON(t, app, http.MethodPost, "/users", map[string]string{"name": "No Email"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestConcurrentRegistrationSameEmail(t *testing.T) {
	app, _, db, err := setupApp("race")
	assert.NoError(t, err)

	registerBody := map[string]string{
		"name":     "Race User",
		"username": "raceuser",
		"email":    "race@example.com",
		"password": "password123",
	}

	const attempts = 2
	statuses := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := doJSON(t, app, http.MethodPost, "/auth/register", registerBody, "")
			statuses[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	// Exactly one registration wins; the loser sees the duplicate (or the
	// store's own serialization failure), never a second credential.
	successes := 0
	for _, status := range statuses {
		if status == http.StatusCreated {
			successes++
		}
	}
	assert.Equal(t, 1, successes)

	var userCount, authUserCount int64
	assert.NoError(t, db.Model(&models.User{}).Where("email = ?", "race@example.com").Count(&userCount).Error)
	assert.NoError(t, db.Model(&models.AuthUser{}).Where("email = ?", "race@example.com").Count(&authUserCount).Error)
	assert.Equal(t, int64(1), userCount, "losing registration must not leave an orphaned profile")
	assert.Equal(t, int64(1), authUserCount)
}
