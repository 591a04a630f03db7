package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "mapstructure"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	if err := v.RegisterValidation("password", strongPasswordField); err != nil {
		panic(err)
	}
	return v
}

// Requires an upper case letter, a lower case letter, a digit and a special character.
func strongPasswordField(fl validator.FieldLevel) bool {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range fl.Field().String() {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSpecial
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72,password"`
}

func (request *RegisterRequest) Normalize() {
	request.Email = NormalizeEmail(request.Email)
	request.Username = NormalizeUsername(request.Username)
}

func (request *RegisterRequest) Validate() error {
	return structError(validate.Struct(request))
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (request *LoginRequest) Normalize() {
	request.Username = NormalizeUsername(request.Username)
}

func (request *LoginRequest) Validate() error {
	if request.Username == "" || request.Password == "" {
		return apperrors.BadRequest("Username and password are required")
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// RoomPayload carries the client-writable room fields. Nil means "not sent".
type RoomPayload struct {
	Title   *string    `mapstructure:"title" validate:"omitempty,min=5,max=50"`
	Body    *string    `mapstructure:"body" validate:"omitempty,min=5,max=500"`
	City    *string    `mapstructure:"city" validate:"omitempty,min=1,max=100"`
	ImgLink *string    `mapstructure:"imgLink" validate:"omitempty,url"`
	StartAt *time.Time `mapstructure:"startAt"`
	EndsAt  *time.Time `mapstructure:"endsAt"`
}

// DecodeRoomPayload maps a decoded JSON object onto a RoomPayload. Keys that
// are not client-writable are ignored.
func DecodeRoomPayload(raw map[string]interface{}) (*RoomPayload, error) {
	payload := &RoomPayload{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: stringToTimeHook,
		Result:     payload,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		var parseErr *time.ParseError
		// mapstructure flattens hook errors into strings
		if errors.As(err, &parseErr) || strings.Contains(err.Error(), "parsing time") {
			return nil, apperrors.Wrap(apperrors.KindBadRequest, apperrors.InvalidDateFormat, err)
		}
		return nil, apperrors.Wrap(apperrors.KindBadRequest, apperrors.InvalidRequestFormatError, err)
	}
	trim(payload.Title)
	trim(payload.Body)
	trim(payload.City)
	trim(payload.ImgLink)
	return payload, nil
}

func trim(value *string) {
	if value != nil {
		*value = strings.TrimSpace(*value)
	}
}

// ValidateForCreate checks the fields a new room needs on top of Validate.
func (payload *RoomPayload) ValidateForCreate() error {
	switch {
	case payload.Title == nil || *payload.Title == "":
		return apperrors.BadRequest("Title is required")
	case payload.Body == nil || *payload.Body == "":
		return apperrors.BadRequest("Body is required")
	case payload.City == nil || *payload.City == "":
		return apperrors.BadRequest("City is required")
	}
	return payload.Validate()
}

func (payload *RoomPayload) Validate() error {
	if err := structError(validate.Struct(payload)); err != nil {
		return err
	}
	return ValidateWindow(payload.StartAt, payload.EndsAt)
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// ParseTime accepts RFC3339 timestamps and bare dates.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func stringToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	return ParseTime(data.(string))
}

func structError(err error) error {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return apperrors.Wrap(apperrors.KindBadRequest, apperrors.InvalidRequestFormatError, err)
	}
	return apperrors.Wrap(apperrors.KindBadRequest, fieldMessage(validationErrors[0]), err)
}

func fieldMessage(fe validator.FieldError) string {
	field := capitalize(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "email":
		return "Invalid email format"
	case "alphanum":
		return "Username must be alphanumeric"
	case "password":
		return "Password must include an uppercase letter, a lowercase letter, a number and a special character"
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
