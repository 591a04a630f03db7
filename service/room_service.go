package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/metrics"
)

// maxSaveAttempts bounds the load, mutate, conditional save loop.
const maxSaveAttempts = 3

const notifyTimeout = 30 * time.Second

type RoomService struct {
	store    domain.RoomStore
	notifier domain.ReservationNotifier
	tracer   trace.Tracer
	logger   *logrus.Logger
	now      func() time.Time
}

// NewRoomService builds the service; notifier may be nil.
func NewRoomService(store domain.RoomStore, notifier domain.ReservationNotifier, tracer trace.Tracer, logger *logrus.Logger) *RoomService {
	return &RoomService{
		store:    store,
		notifier: notifier,
		tracer:   tracer,
		logger:   logger,
		now:      time.Now,
	}
}

func (service *RoomService) CreateRoom(ctx context.Context, ownerID primitive.ObjectID, payload *domain.RoomPayload) (*domain.Room, error) {
	ctx, span := service.tracer.Start(ctx, "RoomService.CreateRoom")
	defer span.End()

	if err := payload.ValidateForCreate(); err != nil {
		return nil, err
	}

	room := &domain.Room{
		Title:     *payload.Title,
		Body:      *payload.Body,
		City:      *payload.City,
		ImgLink:   domain.DefaultImageLink,
		CreatedBy: ownerID,
		CreatedAt: service.now().UTC(),
		StartAt:   payload.StartAt,
		EndsAt:    payload.EndsAt,
	}
	if payload.ImgLink != nil && *payload.ImgLink != "" {
		room.ImgLink = *payload.ImgLink
	}

	if err := service.store.Insert(ctx, room); err != nil {
		span.SetStatus(codes.Error, "Error inserting room")
		return nil, err
	}
	service.logger.Infof("RoomService.CreateRoom : room %s created by %s", room.ID.Hex(), ownerID.Hex())

	return service.reload(ctx, room)
}

// ListRooms returns matching rooms newest first. An empty result is NotFound.
func (service *RoomService) ListRooms(ctx context.Context, filter domain.RoomFilter) ([]*domain.Room, error) {
	ctx, span := service.tracer.Start(ctx, "RoomService.ListRooms")
	defer span.End()

	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, apperrors.BadRequest(apperrors.StartBeforeEnd)
	}

	rooms, err := service.store.GetAll(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, "Error listing rooms")
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, apperrors.NotFound(apperrors.NoRoomsFound)
	}
	return rooms, nil
}

func (service *RoomService) GetRoom(ctx context.Context, id primitive.ObjectID) (*domain.Room, error) {
	ctx, span := service.tracer.Start(ctx, "RoomService.GetRoom")
	defer span.End()

	room, err := service.store.Get(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, "Error fetching room")
		return nil, err
	}
	if room == nil {
		return nil, apperrors.NotFound(apperrors.RoomNotFound)
	}
	return room, nil
}

// UpdateRoom merges payload onto the stored room. Only the owner may update.
func (service *RoomService) UpdateRoom(ctx context.Context, requesterID, roomID primitive.ObjectID, payload *domain.RoomPayload) (*domain.Room, error) {
	ctx, span := service.tracer.Start(ctx, "RoomService.UpdateRoom")
	defer span.End()

	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return service.mutate(ctx, roomID, func(room *domain.Room) error {
		if !room.IsOwnedBy(requesterID) {
			return apperrors.ForbiddenError(apperrors.NotRoomOwner)
		}
		return room.Apply(payload)
	})
}

func (service *RoomService) DeleteRoom(ctx context.Context, requesterID, roomID primitive.ObjectID) error {
	ctx, span := service.tracer.Start(ctx, "RoomService.DeleteRoom")
	defer span.End()

	room, err := service.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsOwnedBy(requesterID) {
		return apperrors.ForbiddenError(apperrors.NotRoomOwner)
	}
	if err := service.store.Delete(ctx, roomID); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return apperrors.NotFound(apperrors.RoomNotFound)
		}
		span.SetStatus(codes.Error, "Error deleting room")
		return err
	}
	service.logger.Infof("RoomService.DeleteRoom : room %s deleted", roomID.Hex())
	return nil
}

func (service *RoomService) React(ctx context.Context, userID, roomID primitive.ObjectID, reaction domain.Reaction) (*domain.Room, error) {
	ctx, span := service.tracer.Start(ctx, "RoomService.React")
	defer span.End()

	// Reactions by different users never conflict: the store write is a
	// single conditional update. A miss means this user's reaction or the
	// room itself changed since the check, so the check runs again.
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		room, err := service.GetRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if err := room.CheckReaction(userID, reaction); err != nil {
			return nil, err
		}

		applied, err := service.store.React(ctx, roomID, userID, reaction)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if applied {
			metrics.Reactions.WithLabelValues(string(reaction)).Inc()
			return service.reload(ctx, room)
		}
	}
	return nil, apperrors.Conflict(apperrors.RoomModifiedConcurrently)
}

func (service *RoomService) Reserve(ctx context.Context, userID, roomID primitive.ObjectID) (*domain.Room, error) {
	ctx, span := service.tracer.Start(ctx, "RoomService.Reserve")
	defer span.End()

	room, err := service.mutate(ctx, roomID, func(room *domain.Room) error {
		return room.Reserve(userID)
	})
	if err != nil {
		return nil, err
	}
	metrics.Reservations.Inc()
	service.logger.Infof("RoomService.Reserve : room %s reserved by %s", roomID.Hex(), userID.Hex())

	if service.notifier != nil {
		go service.notify(context.WithoutCancel(ctx), room)
	}
	return room, nil
}

// A failed notification never undoes the reservation.
func (service *RoomService) notify(ctx context.Context, room *domain.Room) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := service.notifier.RoomReserved(ctx, room); err != nil {
		service.logger.Errorf("RoomService.Reserve : notifying owner of room %s: %v", room.ID.Hex(), err)
	}
}

// mutate loads the room, applies change and saves it only if nobody else
// saved in between. On a lost race the whole cycle is retried.
func (service *RoomService) mutate(ctx context.Context, roomID primitive.ObjectID, change func(*domain.Room) error) (*domain.Room, error) {
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		room, err := service.GetRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if err := change(room); err != nil {
			return nil, err
		}

		err = service.store.Update(ctx, room)
		if err == nil {
			return service.reload(ctx, room)
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		metrics.VersionConflicts.Inc()
		service.logger.Warnf("RoomService.mutate : version conflict on room %s, attempt %d", roomID.Hex(), attempt)
	}
	return nil, apperrors.Conflict(apperrors.RoomModifiedConcurrently)
}

// reload re-reads the room so owner and reserver come back populated.
func (service *RoomService) reload(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	stored, err := service.store.Get(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, apperrors.NotFound(apperrors.RoomNotFound)
	}
	return stored, nil
}
