package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventmate/eventmate/internal/config"
	"github.com/eventmate/eventmate/pkg/event"
	"github.com/eventmate/eventmate/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

func testConfig() config.Application {
	return config.Application{
		Frontend: config.Frontend{Origin: testOrigin},
		Auth: config.Auth{
			JwtSecret:  "router-test-secret",
			TokenTTL:   time.Hour,
			CookieName: "jwt",
		},
	}
}

func setupRouter(t *testing.T) (http.Handler, *Dependencies) {
	t.Helper()
	cfg := testConfig()
	deps := buildDependencies(user.NewStubUserRepository(), event.NewStubRepository(), nil, cfg)
	return CORS(cfg.Frontend.Origin, NewRouter(deps, cfg)), deps
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func (c *client) signup(name, email string) {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/auth/signup", user.SignupRequestDTO{
		Name:           name,
		Email:          email,
		Password:       "secret123",
		RetypePassword: "secret123",
	})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "jwt" {
			c.cookie = cookie
		}
	}
	require.NotNil(c.t, c.cookie)
}

func ptr[T any](v T) *T {
	return &v
}

func sampleEvent(capacity int) event.EventRequestDTO {
	return event.EventRequestDTO{
		Title:       ptr("Go meetup"),
		Description: ptr("Talks and pizza"),
		Date:        ptr("2030-03-14T18:00:00Z"),
		Location:    ptr("Warsaw"),
		Capacity:    ptr(capacity),
		TicketPrice: ptr(0.0),
		ImageUrls:   ptr([]string{"https://img.example.com/1.png"}),
		ContactInfo: ptr("org@example.com"),
	}
}

func TestRouter_Health(t *testing.T) {
	handler, _ := setupRouter(t)
	c := &client{t: t, handler: handler}

	w := c.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_ProtectedRoutesRequireSession(t *testing.T) {
	handler, _ := setupRouter(t)
	c := &client{t: t, handler: handler}

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/events/today"},
		{http.MethodGet, "/api/events/allEvents"},
		{http.MethodPost, "/api/events"},
		{http.MethodPost, "/api/events/join/3f2a1c9e-0000-4000-8000-000000000001"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := c.do(p.method, p.path, nil)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"success":false,"message":"Unauthorized"}`, w.Body.String())
		})
	}
}

func TestRouter_EventLifecycle(t *testing.T) {
	handler, _ := setupRouter(t)
	owner := &client{t: t, handler: handler}
	guest := &client{t: t, handler: handler}
	late := &client{t: t, handler: handler}
	owner.signup("Olivia", "olivia@example.com")
	guest.signup("Gus", "gus@example.com")
	late.signup("Lena", "lena@example.com")

	// given
	w := owner.do(http.MethodPost, "/api/events/", sampleEvent(1))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created event.EventResponseDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	id := created.Event.Id

	// when
	joined := guest.do(http.MethodPost, "/api/events/join/"+id, nil)
	full := late.do(http.MethodPost, "/api/events/join/"+id, nil)

	// then
	assert.Equal(t, http.StatusOK, joined.Code, joined.Body.String())
	assert.Equal(t, http.StatusBadRequest, full.Code)
	assert.Contains(t, full.Body.String(), "full")

	// when
	listed := guest.do(http.MethodGet, "/api/events/attending", nil)

	// then
	require.Equal(t, http.StatusOK, listed.Code)
	var attending event.EventsResponseDTO
	require.NoError(t, json.NewDecoder(listed.Body).Decode(&attending))
	require.Len(t, attending.Events, 1)
	assert.Equal(t, 1, attending.Events[0].TicketsSold)

	// when
	left := guest.do(http.MethodPost, "/api/events/"+id+"/leave", nil)
	rejoined := late.do(http.MethodPost, "/api/events/join/"+id, nil)

	// then
	assert.Equal(t, http.StatusOK, left.Code, left.Body.String())
	assert.Equal(t, http.StatusOK, rejoined.Code, rejoined.Body.String())

	// when
	forbidden := guest.do(http.MethodDelete, "/api/events/"+id, nil)
	deleted := owner.do(http.MethodDelete, "/api/events/"+id, nil)
	gone := owner.do(http.MethodGet, "/api/events/"+id, nil)

	// then
	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	assert.Equal(t, http.StatusOK, deleted.Code)
	assert.Equal(t, http.StatusNotFound, gone.Code)
}

func TestRouter_StaticPathsWinOverId(t *testing.T) {
	handler, _ := setupRouter(t)
	c := &client{t: t, handler: handler}
	c.signup("Olivia", "olivia@example.com")

	for _, path := range []string{"/api/events/allEvents", "/api/events/myEvents", "/api/events/attending", "/api/events/today"} {
		w := c.do(http.MethodGet, path, nil)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"success":true`, path)
	}
}

func TestRouter_LogoutRevokesSession(t *testing.T) {
	handler, _ := setupRouter(t)
	c := &client{t: t, handler: handler}
	c.signup("Olivia", "olivia@example.com")
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/auth/me", nil).Code)

	// when
	w := c.do(http.MethodPost, "/api/auth/logout", nil)

	// then
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/auth/me", nil).Code)
}
