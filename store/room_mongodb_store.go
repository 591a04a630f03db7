package store

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
)

type RoomMongoDBStore struct {
	rooms  *mongo.Collection
	tracer trace.Tracer
}

func NewRoomMongoDBStore(client *mongo.Client, database string, tracer trace.Tracer) *RoomMongoDBStore {
	rooms := client.Database(database).Collection(ROOMS_COLLECTION)
	return &RoomMongoDBStore{
		rooms:  rooms,
		tracer: tracer,
	}
}

func (store *RoomMongoDBStore) Insert(ctx context.Context, room *domain.Room) error {
	ctx, span := store.tracer.Start(ctx, "RoomStore.Insert")
	defer span.End()
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if room.ID.IsZero() {
		room.ID = primitive.NewObjectID()
	}
	room.LikedBy = nonNil(room.LikedBy)
	room.DislikedBy = nonNil(room.DislikedBy)
	room.Version = 0
	if _, err := store.rooms.InsertOne(ctx, room); err != nil {
		span.SetStatus(codes.Error, "Error inserting room")
		return err
	}
	return nil
}

func (store *RoomMongoDBStore) Get(ctx context.Context, id primitive.ObjectID) (*domain.Room, error) {
	ctx, span := store.tracer.Start(ctx, "RoomStore.Get")
	defer span.End()

	rooms, err := store.aggregate(ctx, bson.M{"_id": id})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, nil
	}
	return rooms[0], nil
}

func (store *RoomMongoDBStore) GetAll(ctx context.Context, filter domain.RoomFilter) ([]*domain.Room, error) {
	ctx, span := store.tracer.Start(ctx, "RoomStore.GetAll")
	defer span.End()

	rooms, err := store.aggregate(ctx, roomFilter(filter))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rooms, nil
}

func (store *RoomMongoDBStore) Update(ctx context.Context, room *domain.Room) error {
	ctx, span := store.tracer.Start(ctx, "RoomStore.Update")
	defer span.End()
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{
		"title":      room.Title,
		"body":       room.Body,
		"city":       room.City,
		"imgLink":    room.ImgLink,
		"reserved":   room.Reserved,
	}
	unset := bson.M{}
	setOrUnset(set, unset, "startAt", room.StartAt)
	setOrUnset(set, unset, "endsAt", room.EndsAt)
	if room.ReservedBy != nil {
		set["reservedBy"] = *room.ReservedBy
	} else {
		unset["reservedBy"] = ""
	}

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := store.rooms.UpdateOne(ctx, versionFilter(room.ID, room.Version), update)
	if err != nil {
		span.SetStatus(codes.Error, "Error updating room")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrVersionConflict
	}
	room.Version++
	return nil
}

func (store *RoomMongoDBStore) React(ctx context.Context, id, userID primitive.ObjectID, reaction domain.Reaction) (bool, error) {
	ctx, span := store.tracer.Start(ctx, "RoomStore.React")
	defer span.End()
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter, update := reactionUpdate(id, userID, reaction)
	result, err := store.rooms.UpdateOne(ctx, filter, update)
	if err != nil {
		span.SetStatus(codes.Error, "Error reacting to room")
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (store *RoomMongoDBStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := store.tracer.Start(ctx, "RoomStore.Delete")
	defer span.End()
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := store.rooms.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		span.SetStatus(codes.Error, "Error deleting room")
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

// aggregate runs match, newest-first sort and the owner/reserver population.
func (store *RoomMongoDBStore) aggregate(ctx context.Context, match bson.M) ([]*domain.Room, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := store.rooms.Aggregate(ctx, roomPipeline(match))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decode(ctx, cursor)
}

func roomPipeline(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
		lookupUser("createdBy", "owner"),
		unwind("$owner"),
		lookupUser("reservedBy", "reserver"),
		unwind("$reserver"),
		{{Key: "$project", Value: bson.D{
			{Key: "owner.password", Value: 0},
			{Key: "owner.createdAt", Value: 0},
			{Key: "reserver.password", Value: 0},
			{Key: "reserver.createdAt", Value: 0},
		}}},
	}
}

func lookupUser(localField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: USERS_COLLECTION},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: as},
	}}}
}

func unwind(path string) bson.D {
	return bson.D{{Key: "$unwind", Value: bson.D{
		{Key: "path", Value: path},
		{Key: "preserveNullAndEmptyArrays", Value: true},
	}}}
}

func roomFilter(filter domain.RoomFilter) bson.M {
	match := bson.M{}
	if filter.City != "" {
		match["city"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(filter.City) + "$", Options: "i"}
	}
	if filter.From != nil && filter.To != nil {
		match["$or"] = bson.A{
			bson.M{"reserved": false},
			bson.M{"endsAt": bson.M{"$lt": *filter.From}},
			bson.M{"startAt": bson.M{"$gt": *filter.To}},
		}
	}
	return match
}

// versionFilter matches rooms written before the version field existed as
// version 0.
// reactionUpdate builds one conditional pipeline update: userID joins the
// target set, leaves the opposite one, and both counters are recomputed from
// the set sizes.
func reactionUpdate(id, userID primitive.ObjectID, reaction domain.Reaction) (bson.M, mongo.Pipeline) {
	target, opposite := "likedBy", "dislikedBy"
	if reaction == domain.ReactionDislike {
		target, opposite = opposite, target
	}

	filter := bson.M{
		"_id":       id,
		"createdBy": bson.M{"$ne": userID},
		target:      bson.M{"$ne": userID},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			target: bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$" + target, bson.A{}}},
				bson.A{userID},
			}},
			opposite: bson.M{"$filter": bson.M{
				"input": bson.M{"$ifNull": bson.A{"$" + opposite, bson.A{}}},
				"cond":  bson.M{"$ne": bson.A{"$$this", userID}},
			}},
		}}},
		{{Key: "$set", Value: bson.M{
			"likes":    bson.M{"$size": "$likedBy"},
			"dislikes": bson.M{"$size": "$dislikedBy"},
		}}},
	}
	return filter, update
}

func versionFilter(id primitive.ObjectID, version int64) bson.M {
	if version == 0 {
		return bson.M{
			"_id": id,
			"$or": bson.A{
				bson.M{"version": 0},
				bson.M{"version": bson.M{"$exists": false}},
			},
		}
	}
	return bson.M{"_id": id, "version": version}
}

func setOrUnset(set, unset bson.M, key string, value *time.Time) {
	if value == nil {
		unset[key] = ""
		return
	}
	set[key] = *value
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}

func decode(ctx context.Context, cursor *mongo.Cursor) (rooms []*domain.Room, err error) {
	for cursor.Next(ctx) {
		var room domain.Room
		if err = cursor.Decode(&room); err != nil {
			return
		}
		rooms = append(rooms, &room)
	}
	err = cursor.Err()
	return
}
