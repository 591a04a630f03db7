package application

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/store/memory"
)

var tracer = trace.NewNoopTracerProvider().Tracer("test")

type fixture struct {
	users    *memory.UserStore
	rooms    *memory.RoomStore
	attempts *memory.LoginCache
	tokens   *TokenService
	auth     *AuthService
	room     *RoomService
	logs     *test.Hook
	logger   *logrus.Logger
}

func newFixture(t *testing.T, notifier domain.ReservationNotifier) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	tokens, err := NewTokenService("test-secret", 24*time.Hour)
	require.NoError(t, err)

	users := memory.NewUserStore()
	rooms := memory.NewRoomStore(users)
	attempts := memory.NewLoginCache(10*time.Minute, nil)

	return &fixture{
		users:    users,
		rooms:    rooms,
		attempts: attempts,
		tokens:   tokens,
		auth:     NewAuthService(users, tokens, attempts, tracer, logger),
		room:     NewRoomService(rooms, notifier, tracer, logger),
		logs:     hook,
		logger:   logger,
	}
}

func (f *fixture) register(t *testing.T, username string) *domain.AuthResult {
	t.Helper()
	result, err := f.auth.Register(context.Background(), &domain.RegisterRequest{
		Email:    username + "@example.com",
		Username: username,
		Password: "Secret#123",
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) createRoom(t *testing.T, owner *domain.AuthResult, title string) *domain.Room {
	t.Helper()
	body, city := "A quiet room with a view", "Krakow"
	room, err := f.room.CreateRoom(context.Background(), owner.User.ID, &domain.RoomPayload{
		Title: &title,
		Body:  &body,
		City:  &city,
	})
	require.NoError(t, err)
	return room
}
