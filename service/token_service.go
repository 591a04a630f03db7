package application

import (
	"errors"
	"time"

	"github.com/cristalhq/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
)

type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// TokenService issues and verifies HS256 bearer tokens that carry a user id.
type TokenService struct {
	signer   jwt.Signer
	verifier jwt.Verifier
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	key := []byte(secret)
	signer, err := jwt.NewSignerHS(jwt.HS256, key)
	if err != nil {
		return nil, err
	}
	verifier, err := jwt.NewVerifierHS(jwt.HS256, key)
	if err != nil {
		return nil, err
	}
	return &TokenService{
		signer:   signer,
		verifier: verifier,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

func (service *TokenService) Issue(userID primitive.ObjectID) (string, error) {
	now := service.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(service.ttl)),
		},
		UserID: userID.Hex(),
	}

	token, err := jwt.NewBuilder(service.signer).Build(claims)
	if err != nil {
		return "", err
	}
	return token.String(), nil
}

// Verify returns the user id of a well-formed, correctly signed, unexpired
// token. Every failure is reported as the same Unauthorized error.
func (service *TokenService) Verify(raw string) (primitive.ObjectID, error) {
	token, err := jwt.Parse([]byte(raw), service.verifier)
	if err != nil {
		return primitive.NilObjectID, apperrors.Wrap(apperrors.KindUnauthorized, apperrors.InvalidTokenError, err)
	}

	var claims Claims
	if err := token.DecodeClaims(&claims); err != nil {
		return primitive.NilObjectID, apperrors.Wrap(apperrors.KindUnauthorized, apperrors.InvalidTokenError, err)
	}
	if claims.ExpiresAt == nil || !claims.IsValidAt(service.now()) {
		return primitive.NilObjectID, apperrors.Unauthorized(apperrors.InvalidTokenError)
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, apperrors.Wrap(apperrors.KindUnauthorized, apperrors.InvalidTokenError, err)
	}
	return userID, nil
}
