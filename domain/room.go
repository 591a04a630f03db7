package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
)

type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

// ReactionState is the per (room, user) position in the like/dislike machine.
type ReactionState int

const (
	ReactionNone ReactionState = iota
	ReactionLiked
	ReactionDisliked
)

func (room *Room) IsOwnedBy(userID primitive.ObjectID) bool {
	return room.CreatedBy == userID
}

func (room *Room) ReactionOf(userID primitive.ObjectID) ReactionState {
	switch {
	case containsID(room.LikedBy, userID):
		return ReactionLiked
	case containsID(room.DislikedBy, userID):
		return ReactionDisliked
	default:
		return ReactionNone
	}
}

// CheckReaction reports why userID may not move to the requested reaction,
// or nil when the transition is allowed.
func (room *Room) CheckReaction(userID primitive.ObjectID, reaction Reaction) error {
	if reaction != ReactionLike && reaction != ReactionDislike {
		return apperrors.BadRequest("Invalid reaction type. Use 'like' or 'dislike'.")
	}
	if room.IsOwnedBy(userID) {
		return apperrors.BadRequest(fmt.Sprintf("Cannot %s your own room.", reaction))
	}

	state := room.ReactionOf(userID)
	switch {
	case reaction == ReactionLike && state == ReactionLiked:
		return apperrors.BadRequest("You already liked this room.")
	case reaction == ReactionDislike && state == ReactionDisliked:
		return apperrors.BadRequest("You already disliked this room.")
	}
	return nil
}

// ApplyReaction moves userID to the requested reaction. The room is left
// untouched when an error is returned.
func (room *Room) ApplyReaction(userID primitive.ObjectID, reaction Reaction) error {
	if err := room.CheckReaction(userID, reaction); err != nil {
		return err
	}

	if reaction == ReactionLike {
		room.DislikedBy = removeID(room.DislikedBy, userID)
		room.LikedBy = append(room.LikedBy, userID)
	} else {
		room.LikedBy = removeID(room.LikedBy, userID)
		room.DislikedBy = append(room.DislikedBy, userID)
	}
	room.Likes = len(room.LikedBy)
	room.Dislikes = len(room.DislikedBy)
	return nil
}

// Reserve claims an unreserved room for userID. Guards run in order: owner,
// then already reserved.
func (room *Room) Reserve(userID primitive.ObjectID) error {
	if room.IsOwnedBy(userID) {
		return apperrors.ForbiddenError(apperrors.OwnRoomReserve)
	}
	if room.Reserved {
		return apperrors.Conflict(apperrors.RoomAlreadyReserved)
	}
	reservedBy := userID
	room.Reserved = true
	room.ReservedBy = &reservedBy
	return nil
}

// Apply merges the provided payload fields onto the room and re-checks the
// availability window.
func (room *Room) Apply(payload *RoomPayload) error {
	startAt, endsAt := room.StartAt, room.EndsAt
	if payload.StartAt != nil {
		startAt = payload.StartAt
	}
	if payload.EndsAt != nil {
		endsAt = payload.EndsAt
	}
	if err := ValidateWindow(startAt, endsAt); err != nil {
		return err
	}

	if payload.Title != nil {
		room.Title = *payload.Title
	}
	if payload.Body != nil {
		room.Body = *payload.Body
	}
	if payload.City != nil {
		room.City = *payload.City
	}
	if payload.ImgLink != nil {
		room.ImgLink = *payload.ImgLink
	}
	room.StartAt = startAt
	room.EndsAt = endsAt
	return nil
}

// ValidateWindow enforces startAt < endsAt when both bounds are present.
func ValidateWindow(startAt, endsAt *time.Time) error {
	if startAt == nil || endsAt == nil {
		return nil
	}
	if !startAt.Before(*endsAt) {
		return apperrors.BadRequest(apperrors.StartBeforeEnd)
	}
	return nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
