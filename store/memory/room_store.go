package memory

import (
	"context"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
)

// RoomStore keeps rooms in insertion order and hands out copies, so callers
// never share state with the store.
type RoomStore struct {
	mu    sync.Mutex
	users *UserStore
	order []primitive.ObjectID
	rooms map[primitive.ObjectID]domain.Room

	// UpdateHook runs at the start of Update and React, before the lock is
	// taken. Tests use it to add latency or a concurrent writer.
	UpdateHook func(id primitive.ObjectID)
}

func NewRoomStore(users *UserStore) *RoomStore {
	return &RoomStore{
		users: users,
		rooms: make(map[primitive.ObjectID]domain.Room),
	}
}

func (store *RoomStore) Insert(_ context.Context, room *domain.Room) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if room.ID.IsZero() {
		room.ID = primitive.NewObjectID()
	}
	room.Version = 0
	store.rooms[room.ID] = copyRoom(room)
	store.order = append(store.order, room.ID)
	return nil
}

func (store *RoomStore) Get(_ context.Context, id primitive.ObjectID) (*domain.Room, error) {
	store.mu.Lock()
	room, ok := store.rooms[id]
	store.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return store.populate(room), nil
}

func (store *RoomStore) GetAll(_ context.Context, filter domain.RoomFilter) ([]*domain.Room, error) {
	store.mu.Lock()
	matched := make([]domain.Room, 0, len(store.order))
	for i := len(store.order) - 1; i >= 0; i-- {
		room := store.rooms[store.order[i]]
		if matches(room, filter) {
			matched = append(matched, room)
		}
	}
	store.mu.Unlock()

	rooms := make([]*domain.Room, 0, len(matched))
	for _, room := range matched {
		rooms = append(rooms, store.populate(room))
	}
	return rooms, nil
}

func (store *RoomStore) Update(_ context.Context, room *domain.Room) error {
	if store.UpdateHook != nil {
		store.UpdateHook(room.ID)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	stored, ok := store.rooms[room.ID]
	if !ok || stored.Version != room.Version {
		return domain.ErrVersionConflict
	}
	room.Version++
	updated := copyRoom(room)
	updated.CreatedBy = stored.CreatedBy
	updated.CreatedAt = stored.CreatedAt
	updated.Likes, updated.LikedBy = stored.Likes, stored.LikedBy
	updated.Dislikes, updated.DislikedBy = stored.Dislikes, stored.DislikedBy
	store.rooms[room.ID] = updated
	return nil
}

func (store *RoomStore) React(_ context.Context, id, userID primitive.ObjectID, reaction domain.Reaction) (bool, error) {
	if store.UpdateHook != nil {
		store.UpdateHook(id)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	stored, ok := store.rooms[id]
	if !ok {
		return false, nil
	}
	updated := copyRoom(&stored)
	if updated.ApplyReaction(userID, reaction) != nil {
		return false, nil
	}
	store.rooms[id] = updated
	return true, nil
}

func (store *RoomStore) Delete(_ context.Context, id primitive.ObjectID) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.rooms[id]; !ok {
		return domain.ErrRoomNotFound
	}
	delete(store.rooms, id)
	for i, candidate := range store.order {
		if candidate == id {
			store.order = append(store.order[:i], store.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len reports the number of stored rooms.
func (store *RoomStore) Len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.rooms)
}

func (store *RoomStore) populate(room domain.Room) *domain.Room {
	populated := copyRoom(&room)
	if store.users != nil {
		populated.Owner = store.users.summary(room.CreatedBy)
		if room.ReservedBy != nil {
			populated.Reserver = store.users.summary(*room.ReservedBy)
		}
	}
	return &populated
}

func matches(room domain.Room, filter domain.RoomFilter) bool {
	if filter.City != "" && !strings.EqualFold(room.City, filter.City) {
		return false
	}
	if filter.From == nil || filter.To == nil || !room.Reserved {
		return true
	}
	if room.EndsAt != nil && room.EndsAt.Before(*filter.From) {
		return true
	}
	return room.StartAt != nil && room.StartAt.After(*filter.To)
}

func copyRoom(room *domain.Room) domain.Room {
	out := *room
	out.LikedBy = append([]primitive.ObjectID{}, room.LikedBy...)
	out.DislikedBy = append([]primitive.ObjectID{}, room.DislikedBy...)
	if room.ReservedBy != nil {
		reservedBy := *room.ReservedBy
		out.ReservedBy = &reservedBy
	}
	if room.StartAt != nil {
		startAt := *room.StartAt
		out.StartAt = &startAt
	}
	if room.EndsAt != nil {
		endsAt := *room.EndsAt
		out.EndsAt = &endsAt
	}
	out.Owner = nil
	out.Reserver = nil
	return out
}
