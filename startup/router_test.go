package startup

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/authorization"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/handlers"
	application "github.com/trak2026z/rezerwacjaNoclegowBE2/service"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/store/memory"
)

type apiResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

type api struct {
	t       *testing.T
	handler http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger, _ := test.NewNullLogger()
	tracer := trace.NewNoopTracerProvider().Tracer("test")

	tokens, err := application.NewTokenService("router-secret", time.Hour)
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer("../rbac_model.conf", "../policy.csv")
	require.NoError(t, err)

	users := memory.NewUserStore()
	rooms := memory.NewRoomStore(users)
	attempts := memory.NewLoginCache(10*time.Minute, nil)

	authService := application.NewAuthService(users, tokens, attempts, tracer, logger)
	roomService := application.NewRoomService(rooms, nil, tracer, logger)

	router := NewRouter(logger, enforcer, tokens,
		handlers.NewAuthHandler(authService, tracer, logger),
		handlers.NewRoomHandler(roomService, tracer, logger),
		handlers.NewHealthHandler(nil, logger),
	)
	return &api{t: t, handler: router}
}

func (a *api) do(method, path, token string, body interface{}) (int, apiResponse) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	assert.NotEmpty(a.t, rec.Header().Get("X-Request-ID"))
	return rec.Code, resp
}

func (a *api) register(username string) (token, id string) {
	a.t.Helper()
	code, resp := a.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email":    username + "@example.com",
		"username": username,
		"password": "Secret#123",
	})
	require.Equal(a.t, http.StatusCreated, code, resp.Message)
	user := resp.Data["user"].(map[string]interface{})
	return resp.Data["token"].(string), user["_id"].(string)
}

func roomOf(t *testing.T, resp apiResponse) map[string]interface{} {
	t.Helper()
	room, ok := resp.Data["room"].(map[string]interface{})
	require.True(t, ok, "response has no room: %+v", resp)
	return room
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)

	code, resp := a.do(http.MethodGet, "/auth/check-email/alice@example.com", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Email is available", resp.Message)

	aliceToken, aliceID := a.register("alice")

	code, resp = a.do(http.MethodGet, "/auth/check-username/Alice", "", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, resp.Success)

	code, resp = a.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "alice@example.com", "username": "other", "password": "Secret#123",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Email is already taken.", resp.Message)

	code, resp = a.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "Secret#123"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Login successful!", resp.Message)
	assert.NotEmpty(t, resp.Data["token"])

	code, resp = a.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "Wrong#1234"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid password", resp.Message)

	code, resp = a.do(http.MethodGet, "/auth/profile", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	user := resp.Data["user"].(map[string]interface{})
	assert.Equal(t, aliceID, user["_id"])
	assert.NotContains(t, user, "password")

	code, _ = a.do(http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp = a.do(http.MethodGet, "/auth/profile/public/alice", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", resp.Data["user"].(map[string]interface{})["username"])
}

func TestRoomLifecycle(t *testing.T) {
	a := newAPI(t)
	ownerToken, ownerID := a.register("owner")
	guestToken, guestID := a.register("guest")

	code, resp := a.do(http.MethodGet, "/rooms", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No rooms found.", resp.Message)

	code, _ = a.do(http.MethodPost, "/rooms", "", map[string]string{"title": "Sunny loft"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp = a.do(http.MethodPost, "/rooms", ownerToken, map[string]interface{}{
		"title": "  Sunny loft  ",
		"body":  "Bright room close to the old town",
		"city":  "Krakow",
		"likes": 100,
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.Equal(t, "Room created!", resp.Message)
	room := roomOf(t, resp)
	roomID := room["_id"].(string)
	assert.Equal(t, "Sunny loft", room["title"])
	assert.EqualValues(t, 0, room["likes"])
	assert.Equal(t, ownerID, room["createdBy"].(map[string]interface{})["_id"])
	assert.Equal(t, "owner", room["createdBy"].(map[string]interface{})["username"])

	code, resp = a.do(http.MethodGet, "/rooms?city=krakow", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Data["rooms"], 1)

	code, resp = a.do(http.MethodGet, "/rooms/not-an-id", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid ID format.", resp.Message)

	code, _ = a.do(http.MethodPut, "/rooms/"+roomID, guestToken, map[string]string{"title": "Stolen room"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = a.do(http.MethodPut, "/rooms/"+roomID, ownerToken, map[string]string{
		"startAt": "2030-05-10",
		"endsAt":  "2030-05-01",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Start date must be earlier than end date", resp.Message)

	code, resp = a.do(http.MethodPut, "/rooms/"+roomID, ownerToken, map[string]string{
		"title":   "Sunny loft with balcony",
		"startAt": "2030-05-01",
		"endsAt":  "2030-05-10",
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "Room updated!", resp.Message)
	assert.Equal(t, "Sunny loft with balcony", roomOf(t, resp)["title"])

	code, resp = a.do(http.MethodPost, "/rooms/"+roomID+"/like", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = a.do(http.MethodPost, "/rooms/"+roomID+"/like", guestToken, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "Room liked!", resp.Message)
	assert.EqualValues(t, 1, roomOf(t, resp)["likes"])

	code, _ = a.do(http.MethodPost, "/rooms/"+roomID+"/like", guestToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = a.do(http.MethodPost, "/rooms/"+roomID+"/dislike", guestToken, nil)
	require.Equal(t, http.StatusOK, code)
	room = roomOf(t, resp)
	assert.EqualValues(t, 0, room["likes"])
	assert.EqualValues(t, 1, room["dislikes"])
	assert.Equal(t, []interface{}{guestID}, room["dislikedBy"])

	code, resp = a.do(http.MethodPost, "/rooms/"+roomID+"/reserve", ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "You cannot reserve your own room.", resp.Message)

	code, resp = a.do(http.MethodPost, "/rooms/"+roomID+"/reserve", guestToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Room reserved!", resp.Message)
	room = roomOf(t, resp)
	assert.Equal(t, true, room["reserved"])
	assert.Equal(t, "guest", room["reservedBy"].(map[string]interface{})["username"])

	code, resp = a.do(http.MethodPost, "/rooms/"+roomID+"/reserve", guestToken, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Room already reserved.", resp.Message)

	code, resp = a.do(http.MethodGet, "/rooms?city=Krakow&from=2030-05-02&to=2030-05-04", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = a.do(http.MethodGet, "/rooms?city=Krakow&from=2030-06-01&to=2030-06-04", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodDelete, "/rooms/"+roomID, guestToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = a.do(http.MethodDelete, "/rooms/"+roomID, ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Room deleted!", resp.Message)

	code, resp = a.do(http.MethodGet, "/rooms/"+roomID, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Room not found.", resp.Message)
}

func TestForgedTokenOnProtectedRoute(t *testing.T) {
	a := newAPI(t)

	code, resp := a.do(http.MethodPost, "/rooms", "forged.token.value", map[string]string{"title": "Sunny loft"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid or expired token", resp.Message)

	code, _ = a.do(http.MethodGet, "/health", "forged.token.value", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestSecurityHeadersAndHealth(t *testing.T) {
	a := newAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestUnknownRoute(t *testing.T) {
	a := newAPI(t)

	code, resp := a.do(http.MethodGet, "/rooms/"+"0123456789abcdef01234567"+"/extra", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		code, resp = a.do(method, "/bookings", "", nil)
		assert.Equal(t, http.StatusNotFound, code, method)
		assert.Equal(t, "Route not found", resp.Message)
	}

	code, _ = a.do(http.MethodPut, "/rooms/0123456789abcdef01234567", "", map[string]string{"title": "Attic"})
	assert.Equal(t, http.StatusUnauthorized, code, "known routes still go through the policy")
}

func TestMethodNotAllowed(t *testing.T) {
	a := newAPI(t)
	token, _ := a.register("mallory")

	code, resp := a.do(http.MethodPost, "/rooms", token, map[string]string{
		"title": "Quiet attic",
		"body":  "Skylight over the bed",
		"city":  "Krakow",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	roomID := roomOf(t, resp)["_id"].(string)

	code, resp = a.do(http.MethodPost, "/rooms/"+roomID, token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Method not allowed", resp.Message)
}
