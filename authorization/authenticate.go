package authorization

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
)

type TokenVerifier interface {
	Verify(raw string) (primitive.ObjectID, error)
}

type keyAuthError struct{}

// Authenticate resolves the bearer token, if any, into a domain.Identity.
// It never rejects a request itself: a bad token is remembered so the policy
// check can explain a denial, and is ignored on public routes.
func Authenticate(verifier TokenVerifier, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			raw, err := bearerToken(header)
			if err == nil {
				var userID primitive.ObjectID
				userID, err = verifier.Verify(raw)
				if err == nil {
					ctx = domain.WithIdentity(ctx, domain.Identity{UserID: userID})
				}
			}
			if err != nil {
				logger.WithError(err).Debug("Authenticate : bearer token rejected")
				ctx = context.WithValue(ctx, keyAuthError{}, err)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.Unauthorized(apperrors.InvalidHeaderFormatError)
	}
	return strings.TrimSpace(parts[1]), nil
}

// authError is the reason an anonymous caller gets for a denied request.
func authError(ctx context.Context) error {
	if err, ok := ctx.Value(keyAuthError{}).(error); ok {
		return err
	}
	return apperrors.Unauthorized(apperrors.MissingHeaderError)
}
