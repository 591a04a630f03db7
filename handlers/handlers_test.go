package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
	application "github.com/trak2026z/rezerwacjaNoclegowBE2/service"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/store/memory"
)

type handlerFixture struct {
	router *mux.Router
	auth   *application.AuthService
	rooms  *application.RoomService
}

// newHandlerFixture mounts the handlers without the policy layer; callers
// attach an identity to the request context themselves.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	tracer := trace.NewNoopTracerProvider().Tracer("test")

	tokens, err := application.NewTokenService("handler-secret", time.Hour)
	require.NoError(t, err)
	users := memory.NewUserStore()
	auth := application.NewAuthService(users, tokens, nil, tracer, logger)
	rooms := application.NewRoomService(memory.NewRoomStore(users), nil, tracer, logger)

	router := mux.NewRouter()
	NewAuthHandler(auth, tracer, logger).Init(router)
	NewRoomHandler(rooms, tracer, logger).Init(router)
	return &handlerFixture{router: router, auth: auth, rooms: rooms}
}

func (f *handlerFixture) user(t *testing.T, username string) domain.Identity {
	t.Helper()
	result, err := f.auth.Register(context.Background(), &domain.RegisterRequest{
		Email:    username + "@example.com",
		Username: username,
		Password: "Secret#123",
	})
	require.NoError(t, err)
	return domain.Identity{UserID: result.User.ID}
}

func (f *handlerFixture) serve(method, path string, identity *domain.Identity, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if identity != nil {
		req = req.WithContext(domain.WithIdentity(req.Context(), *identity))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterRejectsMalformedJSON(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.serve(http.MethodPost, "/auth/register", nil, `{"email":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.InvalidRequestFormatError, decodeEnvelope(t, rec)["message"])
}

func TestRegisterRejectsOversizedBody(t *testing.T) {
	f := newHandlerFixture(t)
	body := `{"email":"bob@example.com","username":"bob","password":"Secret#123","bio":"` + strings.Repeat("x", 20<<10) + `"}`

	rec := f.serve(http.MethodPost, "/auth/register", nil, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.RequestTooLarge, decodeEnvelope(t, rec)["message"])

	owner := f.user(t, "henry")
	rec = f.serve(http.MethodPost, "/rooms", &owner,
		`{"title":"Sea loft","city":"Gdansk","body":"`+strings.Repeat("y", 20<<10)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.RequestTooLarge, decodeEnvelope(t, rec)["message"])
}

func TestRegisterValidationMessage(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.serve(http.MethodPost, "/auth/register", nil,
		`{"email":"not-an-email","username":"bob","password":"Secret#123"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email format", decodeEnvelope(t, rec)["message"])
}

func TestCheckUsernameAvailability(t *testing.T) {
	f := newHandlerFixture(t)
	f.user(t, "carol")

	rec := f.serve(http.MethodGet, "/auth/check-username/dave", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Username is available", decodeEnvelope(t, rec)["message"])

	rec = f.serve(http.MethodGet, "/auth/check-username/carol", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.UsernameTaken, decodeEnvelope(t, rec)["message"])
}

func TestProfileWithoutIdentity(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.serve(http.MethodGet, "/auth/profile", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublicProfileUnknownUser(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.serve(http.MethodGet, "/auth/profile/public/nobody", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.UserNotFound, decodeEnvelope(t, rec)["message"])
}

func TestCreateRoomValidation(t *testing.T) {
	f := newHandlerFixture(t)
	owner := f.user(t, "erin")

	rec := f.serve(http.MethodPost, "/rooms", &owner, `{"title":"Loft","body":"Nice and quiet","city":"Gdansk"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.serve(http.MethodPost, "/rooms", &owner, `{"title":"Sea loft","body":"Nice and quiet","city":"Gdansk","startAt":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.InvalidDateFormat, decodeEnvelope(t, rec)["message"])

	rec = f.serve(http.MethodPost, "/rooms", &owner, `{"title":"Sea loft","body":"Nice and quiet","city":"Gdansk"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decodeEnvelope(t, rec)["data"].(map[string]interface{})["room"].(map[string]interface{})
	assert.Equal(t, domain.DefaultImageLink, room["imgLink"])
	assert.NotContains(t, room, "version")
}

func TestRoomListingBadDates(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.serve(http.MethodGet, "/rooms?from=yesterday&to=2030-01-01", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid date format for from or to", decodeEnvelope(t, rec)["message"])

	rec = f.serve(http.MethodGet, "/rooms?from=2030-02-01&to=2030-01-01", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOwnerMiddleware(t *testing.T) {
	f := newHandlerFixture(t)
	owner := f.user(t, "frank")
	other := f.user(t, "grace")

	rec := f.serve(http.MethodPost, "/rooms", &owner, `{"title":"Forest cabin","body":"Wood stove and silence","city":"Zakopane"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	roomID := decodeEnvelope(t, rec)["data"].(map[string]interface{})["room"].(map[string]interface{})["_id"].(string)

	rec = f.serve(http.MethodDelete, "/rooms/"+roomID, &other, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.NotRoomOwner, decodeEnvelope(t, rec)["message"])

	rec = f.serve(http.MethodPut, "/rooms/"+roomID, nil, `{"title":"Forest hut"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.serve(http.MethodPut, "/rooms/000000000000000000000000", &owner, `{"title":"Forest hut"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.serve(http.MethodPut, "/rooms/"+roomID, &owner, `{"title":"Forest hut"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Room updated!", decodeEnvelope(t, rec)["message"])
}

func TestHealthHandler(t *testing.T) {
	logger, _ := test.NewNullLogger()
	router := mux.NewRouter()
	NewHealthHandler(map[string]HealthCheck{
		"mongo": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	}, logger).Init(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "degraded", data["status"])
	assert.Equal(t, "ok", data["mongo"])
	assert.Equal(t, "unavailable", data["redis"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rezerwacje_")
}
