package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
	application "github.com/trak2026z/rezerwacjaNoclegowBE2/service"
)

type AuthHandler struct {
	service *application.AuthService
	tracer  trace.Tracer
	logger  *logrus.Logger
}

func NewAuthHandler(service *application.AuthService, tracer trace.Tracer, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		tracer:  tracer,
		logger:  logger,
	}
}

func (handler *AuthHandler) Init(router *mux.Router) {
	auth := router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", handler.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", handler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/check-email/{email}", handler.CheckEmail).Methods(http.MethodGet)
	auth.HandleFunc("/check-username/{username}", handler.CheckUsername).Methods(http.MethodGet)
	auth.HandleFunc("/profile", handler.Profile).Methods(http.MethodGet)
	auth.HandleFunc("/profile/public/{username}", handler.PublicProfile).Methods(http.MethodGet)
}

func (handler *AuthHandler) Register(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.Register")
	defer span.End()

	var request domain.RegisterRequest
	if err := decodeJSON(writer, req, &request); err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}

	result, err := handler.service.Register(ctx, &request)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(writer, http.StatusCreated, "Account registered!", result)
}

func (handler *AuthHandler) Login(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.Login")
	defer span.End()

	var request domain.LoginRequest
	if err := decodeJSON(writer, req, &request); err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}

	result, err := handler.service.Login(ctx, &request)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(writer, http.StatusOK, "Login successful!", result)
}

func (handler *AuthHandler) CheckEmail(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.CheckEmail")
	defer span.End()

	taken, err := handler.service.IsEmailTaken(ctx, mux.Vars(req)["email"])
	if err != nil {
		WriteError(writer, req, handler.logger, err)
		return
	}
	if taken {
		WriteError(writer, req, handler.logger, apperrors.Conflict(apperrors.EmailTaken))
		return
	}
	jsonResponse(writer, http.StatusOK, "Email is available", nil)
}

func (handler *AuthHandler) CheckUsername(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.CheckUsername")
	defer span.End()

	taken, err := handler.service.IsUsernameTaken(ctx, mux.Vars(req)["username"])
	if err != nil {
		WriteError(writer, req, handler.logger, err)
		return
	}
	if taken {
		WriteError(writer, req, handler.logger, apperrors.Conflict(apperrors.UsernameTaken))
		return
	}
	jsonResponse(writer, http.StatusOK, "Username is available", nil)
}

func (handler *AuthHandler) Profile(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.Profile")
	defer span.End()

	identity, ok := domain.IdentityFromContext(ctx)
	if !ok {
		WriteError(writer, req, handler.logger, apperrors.Unauthorized(apperrors.MissingHeaderError))
		return
	}

	user, err := handler.service.Profile(ctx, identity.UserID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		WriteError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(writer, http.StatusOK, "", map[string]interface{}{"user": user})
}

func (handler *AuthHandler) PublicProfile(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.PublicProfile")
	defer span.End()

	user, err := handler.service.PublicProfile(ctx, mux.Vars(req)["username"])
	if err != nil {
		WriteError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(writer, http.StatusOK, "", map[string]interface{}{"user": user})
}

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 16 << 10

func decodeJSON(writer http.ResponseWriter, req *http.Request, target interface{}) error {
	body := http.MaxBytesReader(writer, req.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.Wrap(apperrors.KindBadRequest, apperrors.RequestTooLarge, err)
		}
		return apperrors.Wrap(apperrors.KindBadRequest, apperrors.InvalidRequestFormatError, err)
	}
	return nil
}
