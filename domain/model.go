package domain

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultImageLink = "https://picsum.photos/800/600"

type User struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Email     string             `bson:"email" json:"email"`
	Username  string             `bson:"username" json:"username"`
	Password  string             `bson:"password" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// UserSummary is the public projection of a user: what gets populated into
// rooms and returned by the profile endpoints.
type UserSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"_id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email" json:"email"`
}

func (user *User) Summary() *UserSummary {
	return &UserSummary{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}

type Room struct {
	ID         primitive.ObjectID   `bson:"_id"`
	Title      string               `bson:"title"`
	Body       string               `bson:"body"`
	City       string               `bson:"city"`
	ImgLink    string               `bson:"imgLink"`
	CreatedBy  primitive.ObjectID   `bson:"createdBy"`
	CreatedAt  time.Time            `bson:"createdAt"`
	StartAt    *time.Time           `bson:"startAt,omitempty"`
	EndsAt     *time.Time           `bson:"endsAt,omitempty"`
	Likes      int                  `bson:"likes"`
	LikedBy    []primitive.ObjectID `bson:"likedBy"`
	Dislikes   int                  `bson:"dislikes"`
	DislikedBy []primitive.ObjectID `bson:"dislikedBy"`
	Reserved   bool                 `bson:"reserved"`
	ReservedBy *primitive.ObjectID  `bson:"reservedBy,omitempty"`
	Version    int64                `bson:"version"`

	// Filled by the store's $lookup stages on read, never persisted.
	Owner    *UserSummary `bson:"owner,omitempty"`
	Reserver *UserSummary `bson:"reserver,omitempty"`
}

type roomJSON struct {
	ID         primitive.ObjectID   `json:"_id"`
	Title      string               `json:"title"`
	Body       string               `json:"body"`
	City       string               `json:"city"`
	ImgLink    string               `json:"imgLink"`
	CreatedBy  *UserSummary         `json:"createdBy"`
	CreatedAt  time.Time            `json:"createdAt"`
	StartAt    *time.Time           `json:"startAt,omitempty"`
	EndsAt     *time.Time           `json:"endsAt,omitempty"`
	Likes      int                  `json:"likes"`
	LikedBy    []primitive.ObjectID `json:"likedBy"`
	Dislikes   int                  `json:"dislikes"`
	DislikedBy []primitive.ObjectID `json:"dislikedBy"`
	Reserved   bool                 `json:"reserved"`
	ReservedBy *UserSummary         `json:"reservedBy,omitempty"`
}

// MarshalJSON renders owner and reserver as summaries, falling back to a bare
// id when the room was not populated.
func (room Room) MarshalJSON() ([]byte, error) {
	out := roomJSON{
		ID:         room.ID,
		Title:      room.Title,
		Body:       room.Body,
		City:       room.City,
		ImgLink:    room.ImgLink,
		CreatedBy:  room.Owner,
		CreatedAt:  room.CreatedAt,
		StartAt:    room.StartAt,
		EndsAt:     room.EndsAt,
		Likes:      room.Likes,
		LikedBy:    room.LikedBy,
		Dislikes:   room.Dislikes,
		DislikedBy: room.DislikedBy,
		Reserved:   room.Reserved,
		ReservedBy: room.Reserver,
	}
	if out.CreatedBy == nil {
		out.CreatedBy = &UserSummary{ID: room.CreatedBy}
	}
	if out.ReservedBy == nil && room.ReservedBy != nil {
		out.ReservedBy = &UserSummary{ID: *room.ReservedBy}
	}
	if out.LikedBy == nil {
		out.LikedBy = []primitive.ObjectID{}
	}
	if out.DislikedBy == nil {
		out.DislikedBy = []primitive.ObjectID{}
	}
	return json.Marshal(out)
}

// RoomFilter narrows the room listing. Zero values mean "no constraint";
// From and To only apply together.
type RoomFilter struct {
	City string
	From *time.Time
	To   *time.Time
}

type AuthResult struct {
	User  *UserSummary `json:"user"`
	Token string       `json:"token"`
}
