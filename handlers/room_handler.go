package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
	application "github.com/trak2026z/rezerwacjaNoclegowBE2/service"
)

type KeyRoom struct{}

type KeyRoomPayload struct{}

type RoomHandler struct {
	service *application.RoomService
	tracer  trace.Tracer
	logger  *logrus.Logger
}

func NewRoomHandler(service *application.RoomService, tracer trace.Tracer, logger *logrus.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		tracer:  tracer,
		logger:  logger,
	}
}

func (handler *RoomHandler) Init(router *mux.Router) {
	rooms := router.PathPrefix("/rooms").Subrouter()
	rooms.HandleFunc("", handler.GetAll).Methods(http.MethodGet)
	rooms.Handle("", handler.MiddlewareRoomDeserialization(http.HandlerFunc(handler.Create))).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}", handler.Get).Methods(http.MethodGet)
	rooms.Handle("/{id}", handler.MiddlewareRoomOwner(handler.MiddlewareRoomDeserialization(http.HandlerFunc(handler.Update)))).Methods(http.MethodPut)
	rooms.Handle("/{id}", handler.MiddlewareRoomOwner(http.HandlerFunc(handler.Delete))).Methods(http.MethodDelete)
	rooms.HandleFunc("/{id}/like", handler.react(domain.ReactionLike, "Room liked!")).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/dislike", handler.react(domain.ReactionDislike, "Room disliked!")).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/reserve", handler.Reserve).Methods(http.MethodPost)
}

// MiddlewareRoomDeserialization decodes the body into a RoomPayload stored
// under KeyRoomPayload{}.
func (handler *RoomHandler) MiddlewareRoomDeserialization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		var raw map[string]interface{}
		if err := decodeJSON(rw, h, &raw); err != nil {
			WriteError(rw, h, handler.logger, err)
			return
		}
		payload, err := domain.DecodeRoomPayload(raw)
		if err != nil {
			WriteError(rw, h, handler.logger, err)
			return
		}
		ctx := context.WithValue(h.Context(), KeyRoomPayload{}, payload)
		next.ServeHTTP(rw, h.WithContext(ctx))
	})
}

// MiddlewareRoomOwner lets the request through only when the caller created
// the room. The loaded room is stored under KeyRoom{}.
func (handler *RoomHandler) MiddlewareRoomOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		identity, ok := domain.IdentityFromContext(h.Context())
		if !ok {
			WriteError(rw, h, handler.logger, apperrors.Unauthorized(apperrors.MissingHeaderError))
			return
		}
		roomID, err := roomIDFromRequest(h)
		if err != nil {
			WriteError(rw, h, handler.logger, err)
			return
		}
		room, err := handler.service.GetRoom(h.Context(), roomID)
		if err != nil {
			WriteError(rw, h, handler.logger, err)
			return
		}
		if !room.IsOwnedBy(identity.UserID) {
			WriteError(rw, h, handler.logger, apperrors.ForbiddenError(apperrors.NotRoomOwner))
			return
		}
		ctx := context.WithValue(h.Context(), KeyRoom{}, room)
		next.ServeHTTP(rw, h.WithContext(ctx))
	})
}

func (handler *RoomHandler) Create(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RoomHandler.Create")
	defer span.End()

	identity, ok := domain.IdentityFromContext(ctx)
	if !ok {
		WriteError(writer, req, handler.logger, apperrors.Unauthorized(apperrors.MissingHeaderError))
		return
	}
	payload := ctx.Value(KeyRoomPayload{}).(*domain.RoomPayload)

	room, err := handler.service.CreateRoom(ctx, identity.UserID, payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(writer, http.StatusCreated, "Room created!", map[string]interface{}{"room": room})
}

func (handler *RoomHandler) GetAll(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RoomHandler.GetAll")
	defer span.End()

	filter, err := roomFilterFromQuery(req)
	if err != nil {
		WriteError(writer, req, handler.logger, err)
		return
	}

	rooms, err := handler.service.ListRooms(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(writer, http.StatusOK, "", map[string]interface{}{"rooms": rooms})
}

func (handler *RoomHandler) Get(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RoomHandler.Get")
	defer span.End()

	roomID, err := roomIDFromRequest(req)
	if err != nil {
		WriteError(writer, req, handler.logger, err)
		return
	}
	room, err := handler.service.GetRoom(ctx, roomID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(writer, http.StatusOK, "", map[string]interface{}{"room": room})
}

func (handler *RoomHandler) Update(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RoomHandler.Update")
	defer span.End()

	identity, _ := domain.IdentityFromContext(ctx)
	room := ctx.Value(KeyRoom{}).(*domain.Room)
	payload := ctx.Value(KeyRoomPayload{}).(*domain.RoomPayload)

	updated, err := handler.service.UpdateRoom(ctx, identity.UserID, room.ID, payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(writer, http.StatusOK, "Room updated!", map[string]interface{}{"room": updated})
}

func (handler *RoomHandler) Delete(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RoomHandler.Delete")
	defer span.End()

	identity, _ := domain.IdentityFromContext(ctx)
	room := ctx.Value(KeyRoom{}).(*domain.Room)

	if err := handler.service.DeleteRoom(ctx, identity.UserID, room.ID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(writer, http.StatusOK, "Room deleted!", nil)
}

func (handler *RoomHandler) react(reaction domain.Reaction, message string) http.HandlerFunc {
	return func(writer http.ResponseWriter, req *http.Request) {
		ctx, span := handler.tracer.Start(req.Context(), "RoomHandler.React")
		defer span.End()

		identity, ok := domain.IdentityFromContext(ctx)
		if !ok {
			WriteError(writer, req, handler.logger, apperrors.Unauthorized(apperrors.MissingHeaderError))
			return
		}
		roomID, err := roomIDFromRequest(req)
		if err != nil {
			WriteError(writer, req, handler.logger, err)
			return
		}

		room, err := handler.service.React(ctx, identity.UserID, roomID, reaction)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			WriteError(writer, req, handler.logger, err)
			return
		}
		jsonResponse(writer, http.StatusOK, message, map[string]interface{}{"room": room})
	}
}

func (handler *RoomHandler) Reserve(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "RoomHandler.Reserve")
	defer span.End()

	identity, ok := domain.IdentityFromContext(ctx)
	if !ok {
		WriteError(writer, req, handler.logger, apperrors.Unauthorized(apperrors.MissingHeaderError))
		return
	}
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		WriteError(writer, req, handler.logger, err)
		return
	}

	room, err := handler.service.Reserve(ctx, identity.UserID, roomID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(writer, http.StatusOK, "Room reserved!", map[string]interface{}{"room": room})
}

func roomIDFromRequest(req *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(req)["id"])
	if err != nil {
		return primitive.NilObjectID, apperrors.Wrap(apperrors.KindBadRequest, apperrors.InvalidIDError, err)
	}
	return id, nil
}

func roomFilterFromQuery(req *http.Request) (domain.RoomFilter, error) {
	query := req.URL.Query()
	filter := domain.RoomFilter{City: query.Get("city")}

	for key, target := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		value := query.Get(key)
		if value == "" {
			continue
		}
		parsed, err := domain.ParseTime(value)
		if err != nil {
			return filter, apperrors.Wrap(apperrors.KindBadRequest, "Invalid date format for from or to", err)
		}
		*target = &parsed
	}
	return filter, nil
}
