package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/metrics"
)

// MaxLoginFailures is how many wrong passwords a username may collect before
// logins are refused until the failure window expires.
const MaxLoginFailures = 5

type AuthService struct {
	store    domain.UserStore
	tokens   *TokenService
	attempts domain.LoginAttemptCache
	tracer   trace.Tracer
	logger   *logrus.Logger
}

// NewAuthService builds the service; attempts may be nil to disable login
// throttling.
func NewAuthService(store domain.UserStore, tokens *TokenService, attempts domain.LoginAttemptCache, tracer trace.Tracer, logger *logrus.Logger) *AuthService {
	return &AuthService{
		store:    store,
		tokens:   tokens,
		attempts: attempts,
		tracer:   tracer,
		logger:   logger,
	}
}

func (service *AuthService) Register(ctx context.Context, request *domain.RegisterRequest) (*domain.AuthResult, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	request.Normalize()
	if err := request.Validate(); err != nil {
		return nil, err
	}

	taken, err := service.IsEmailTaken(ctx, request.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Conflict(apperrors.EmailTaken)
	}
	taken, err = service.IsUsernameTaken(ctx, request.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Conflict(apperrors.UsernameTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		span.SetStatus(codes.Error, "Error hashing password")
		return nil, err
	}
	user := &domain.User{
		Email:     request.Email,
		Username:  request.Username,
		Password:  string(hash),
		CreatedAt: time.Now().UTC(),
	}
	if err := service.store.Register(ctx, user); err != nil {
		// a concurrent registration can still win the unique index
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			return nil, apperrors.Conflict(apperrors.EmailTaken)
		case errors.Is(err, domain.ErrDuplicateUsername):
			return nil, apperrors.Conflict(apperrors.UsernameTaken)
		}
		span.SetStatus(codes.Error, "Error registering user")
		return nil, err
	}
	service.logger.Infof("AuthService.Register : user %s registered", user.ID.Hex())

	return service.authResult(user)
}

func (service *AuthService) Login(ctx context.Context, request *domain.LoginRequest) (*domain.AuthResult, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	request.Normalize()
	if err := request.Validate(); err != nil {
		return nil, err
	}

	if service.throttled(ctx, request.Username) {
		metrics.LoginFailures.Inc()
		return nil, apperrors.Unauthorized(apperrors.TooManyLoginAttempts)
	}

	user, err := service.store.GetByUsername(ctx, request.Username)
	if err != nil {
		span.SetStatus(codes.Error, "Error fetching user")
		return nil, err
	}
	if user == nil {
		metrics.LoginFailures.Inc()
		return nil, apperrors.NotFound(apperrors.UserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(request.Password)); err != nil {
		metrics.LoginFailures.Inc()
		service.recordFailure(ctx, request.Username)
		return nil, apperrors.Unauthorized(apperrors.InvalidPassword)
	}
	service.resetFailures(ctx, request.Username)

	return service.authResult(user)
}

func (service *AuthService) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.IsEmailTaken")
	defer span.End()

	user, err := service.store.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

func (service *AuthService) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.IsUsernameTaken")
	defer span.End()

	user, err := service.store.GetByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// Profile returns the caller's own summary.
func (service *AuthService) Profile(ctx context.Context, userID primitive.ObjectID) (*domain.UserSummary, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.Profile")
	defer span.End()

	user, err := service.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound(apperrors.UserNotFound)
	}
	return user.Summary(), nil
}

func (service *AuthService) PublicProfile(ctx context.Context, username string) (*domain.UserSummary, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.PublicProfile")
	defer span.End()

	user, err := service.store.GetByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound(apperrors.UserNotFound)
	}
	return user.Summary(), nil
}

func (service *AuthService) authResult(user *domain.User) (*domain.AuthResult, error) {
	token, err := service.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{User: user.Summary(), Token: token}, nil
}

// Cache failures never block a login; throttling is best effort.
func (service *AuthService) throttled(ctx context.Context, username string) bool {
	if service.attempts == nil {
		return false
	}
	failures, err := service.attempts.Failures(ctx, username)
	if err != nil {
		service.logger.Errorf("AuthService.Login : reading login failures: %v", err)
		return false
	}
	return failures >= MaxLoginFailures
}

func (service *AuthService) recordFailure(ctx context.Context, username string) {
	if service.attempts == nil {
		return
	}
	count, err := service.attempts.RecordFailure(ctx, username)
	if err != nil {
		service.logger.Errorf("AuthService.Login : recording login failure: %v", err)
		return
	}
	if count >= MaxLoginFailures {
		service.logger.Warnf("AuthService.Login : %s reached %d failed logins", username, count)
	}
}

func (service *AuthService) resetFailures(ctx context.Context, username string) {
	if service.attempts == nil {
		return
	}
	if err := service.attempts.Reset(ctx, username); err != nil {
		service.logger.Errorf("AuthService.Login : resetting login failures: %v", err)
	}
}
