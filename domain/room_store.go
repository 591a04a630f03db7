package domain

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrVersionConflict is returned by Update when the stored room no longer
	// carries the version the caller loaded.
	ErrVersionConflict = errors.New("room version conflict")
	ErrRoomNotFound    = errors.New("room not found")
)

type RoomStore interface {
	Insert(ctx context.Context, room *Room) error
	// Get returns the populated room or (nil, nil).
	Get(ctx context.Context, id primitive.ObjectID) (*Room, error)
	// GetAll returns populated rooms, newest first.
	GetAll(ctx context.Context, filter RoomFilter) ([]*Room, error)
	// Update saves the editable fields and the reservation if the stored
	// version still equals room.Version, then bumps room.Version. Reaction
	// fields are never written by Update.
	Update(ctx context.Context, room *Room) error
	// React atomically moves userID to the reaction and recounts likes and
	// dislikes. It reports false when the room is missing, is owned by
	// userID, or already holds that reaction for userID.
	React(ctx context.Context, id, userID primitive.ObjectID, reaction Reaction) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
