package storefront_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	storefront "github.com/goliatone/go-storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type httpHarness struct {
	*testEnv
	app *fiber.App
}

func newHTTPHarness(t *testing.T, opts ...storefront.ControllerOption) *httpHarness {
	t.Helper()
	env := newTestEnv(t)

	app := fiber.New(fiber.Config{ErrorHandler: storefront.ErrorHandler(storefront.NopLogger())})
	opts = append([]storefront.ControllerOption{storefront.WithControllerLogger(storefront.NopLogger())}, opts...)
	controller := storefront.NewController(env.accounts, env.catalog, env.guard, opts...)
	controller.RegisterRoutes(app)

	return &httpHarness{testEnv: env, app: app}
}

func (h *httpHarness) do(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	status, raw := h.doRaw(t, method, path, token, payload)

	body := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return status, body
}

func (h *httpHarness) doRaw(t *testing.T, method, path, token string, payload any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestHealthEndpoint(t *testing.T) {
	h := newHTTPHarness(t)
	status, body := h.do(t, http.MethodGet, "/test", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "API is working", body["message"])
}

func TestHTTPAccountLifecycle(t *testing.T) {
	h := newHTTPHarness(t)

	status, body := h.do(t, http.MethodPost, "/register", "", fiber.Map{
		"name":     "Alice",
		"email":    "a@x.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "User created successfully. OTP sent to email.", body["message"])

	status, body = h.do(t, http.MethodPost, "/register", "", fiber.Map{
		"name":     "Alice",
		"email":    "a@x.com",
		"password": "password1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["errors"], "email")

	status, body = h.do(t, http.MethodPost, "/login", "", fiber.Map{"email": "a@x.com", "password": "password1"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Email not verified. Please verify with OTP.", body["message"])

	status, body = h.do(t, http.MethodPost, "/verify-otp", "", fiber.Map{"email": "nobody@x.com", "otp_code": "123456"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", body["message"])

	status, body = h.do(t, http.MethodPost, "/verify-otp", "", fiber.Map{"email": "a@x.com", "otp_code": otherCode(h.mailer.code("a@x.com"))})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid OTP", body["message"])

	status, body = h.do(t, http.MethodPost, "/verify-otp", "", fiber.Map{"email": "a@x.com", "otp_code": h.mailer.code("a@x.com")})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Email verified successfully!", body["message"])
	assert.NotEmpty(t, body["token"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotNil(t, user["email_verified_at"])
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "otp_code")

	status, body = h.do(t, http.MethodPost, "/login", "", fiber.Map{"email": "a@x.com", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", body["message"])

	status, body = h.do(t, http.MethodPost, "/login", "", fiber.Map{"email": "a@x.com", "password": "password1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Login successful", body["message"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	status, body = h.do(t, http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Alice", body["name"])
	assert.Equal(t, "user", body["role"])

	status, body = h.do(t, http.MethodPut, "/profile", token, fiber.Map{"name": "Alice L."})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Profile updated successfully", body["message"])
	user, ok = body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alice L.", user["name"])
	assert.Equal(t, "a@x.com", user["email"])

	status, body = h.do(t, http.MethodPut, "/change-password", token, fiber.Map{
		"current_password":          "wrongpass",
		"new_password":              "password2",
		"new_password_confirmation": "password2",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Current password is incorrect", body["message"])

	status, _ = h.do(t, http.MethodPut, "/change-password", token, fiber.Map{
		"current_password":          "password1",
		"new_password":              "short",
		"new_password_confirmation": "short",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body = h.do(t, http.MethodPut, "/change-password", token, fiber.Map{
		"current_password":          "password1",
		"new_password":              "password2",
		"new_password_confirmation": "password2",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Password changed successfully", body["message"])

	status, body = h.do(t, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out", body["message"])

	status, body = h.do(t, http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthenticated.", body["message"])
}

func TestHTTPRegisterMailFailure(t *testing.T) {
	h := newHTTPHarness(t)
	h.mailer.fail(errors.New("dial tcp: connection refused"))

	status, body := h.do(t, http.MethodPost, "/register", "", fiber.Map{
		"name":     "Alice",
		"email":    "a@x.com",
		"password": "password1",
	})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to send OTP email. Registration cancelled.", body["message"])
	assert.Equal(t, "dial tcp: connection refused", body["error"])

	h.mailer.fail(nil)
	status, _ = h.do(t, http.MethodPost, "/register", "", fiber.Map{
		"name":     "Alice",
		"email":    "a@x.com",
		"password": "password1",
	})
	assert.Equal(t, http.StatusCreated, status)
}

func TestHTTPExpiredOTP(t *testing.T) {
	h := newHTTPHarness(t)
	code := h.register(t, "Alice", "a@x.com", "password1")
	h.clock.Advance(10 * time.Minute)

	status, body := h.do(t, http.MethodPost, "/verify-otp", "", fiber.Map{"email": "a@x.com", "otp_code": code})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "OTP expired", body["message"])
}

func TestHTTPMalformedBody(t *testing.T) {
	h := newHTTPHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPProtectedRoutesRequireToken(t *testing.T) {
	h := newHTTPHarness(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/profile"},
		{http.MethodPut, "/profile"},
		{http.MethodPut, "/change-password"},
		{http.MethodPost, "/logout"},
		{http.MethodGet, "/products"},
		{http.MethodGet, "/products/00000000-0000-0000-0000-000000000000"},
		{http.MethodPost, "/products"},
		{http.MethodPut, "/products/00000000-0000-0000-0000-000000000000"},
		{http.MethodDelete, "/products/00000000-0000-0000-0000-000000000000"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			status, _ := h.do(t, r.method, r.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, status)

			status, _ = h.do(t, r.method, r.path, "bogus", nil)
			assert.Equal(t, http.StatusUnauthorized, status)
		})
	}
}

func TestHTTPProductRoleGate(t *testing.T) {
	h := newHTTPHarness(t)

	_, userToken := h.verifiedAccount(t, "Bob", "b@x.com", "password1")
	_, adminToken := h.adminAccount(t)

	product := fiber.Map{"name": "Keyboard", "description": "Mechanical", "price": 120, "stock": 0}

	status, body := h.do(t, http.MethodPost, "/products", userToken, product)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden: Only admin can access this", body["message"])

	status, body = h.do(t, http.MethodPost, "/products", adminToken, product)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Product created successfully", body["message"])
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Keyboard", data["name"])
	assert.EqualValues(t, 0, data["stock"])
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)

	item := fmt.Sprintf("/products/%s", id)

	status, body = h.do(t, http.MethodGet, item, userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Keyboard", body["name"])

	status, raw := h.doRaw(t, http.MethodGet, "/products", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)

	update := fiber.Map{"name": "Keyboard v2", "description": "Mechanical", "price": 150, "stock": 3}

	status, _ = h.do(t, http.MethodPut, item, userToken, update)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = h.do(t, http.MethodPut, item, adminToken, update)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Product updated successfully", body["message"])
	data, ok = body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Keyboard v2", data["name"])
	assert.EqualValues(t, 150, data["price"])

	status, _ = h.do(t, http.MethodPost, "/products", adminToken, fiber.Map{"name": "", "price": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = h.do(t, http.MethodDelete, item, userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = h.do(t, http.MethodDelete, item, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Product deleted successfully", body["message"])

	status, _ = h.do(t, http.MethodGet, item, userToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(t, http.MethodDelete, item, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(t, http.MethodGet, "/products/not-a-uuid", userToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHTTPRateLimit(t *testing.T) {
	h := newHTTPHarness(t, storefront.WithRateLimiter(storefront.NewRateLimiter(0.001, 2)))

	payload := fiber.Map{"email": "ghost@x.com", "password": "password1"}

	for i := 0; i < 2; i++ {
		status, _ := h.do(t, http.MethodPost, "/login", "", payload)
		assert.Equal(t, http.StatusUnauthorized, status)
	}

	status, body := h.do(t, http.MethodPost, "/login", "", payload)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Too many requests", body["message"])

	status, _ = h.do(t, http.MethodGet, "/test", "", nil)
	assert.Equal(t, http.StatusOK, status)
}
