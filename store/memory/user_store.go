// Package memory holds map-backed implementations of the domain stores, used
// for local runs without MongoDB and by tests.
package memory

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]domain.User

	// RegisterErr, when set, is returned by the next Register call.
	RegisterErr error
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[primitive.ObjectID]domain.User)}
}

func (store *UserStore) Register(_ context.Context, user *domain.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.RegisterErr != nil {
		err := store.RegisterErr
		store.RegisterErr = nil
		return err
	}
	for _, existing := range store.users {
		if existing.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
		if existing.Username == user.Username {
			return domain.ErrDuplicateUsername
		}
	}
	user.ID = primitive.NewObjectID()
	store.users[user.ID] = *user
	return nil
}

func (store *UserStore) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	user, ok := store.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (store *UserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return store.find(func(user domain.User) bool { return user.Username == username }), nil
}

func (store *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return store.find(func(user domain.User) bool { return user.Email == email }), nil
}

func (store *UserStore) find(match func(domain.User) bool) *domain.User {
	store.mu.RLock()
	defer store.mu.RUnlock()

	for _, user := range store.users {
		if match(user) {
			found := user
			return &found
		}
	}
	return nil
}

func (store *UserStore) summary(id primitive.ObjectID) *domain.UserSummary {
	store.mu.RLock()
	defer store.mu.RUnlock()

	user, ok := store.users[id]
	if !ok {
		return nil
	}
	return user.Summary()
}
