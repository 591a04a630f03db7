package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
)

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func jsonResponse(writer http.ResponseWriter, status int, message string, data interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

// written is implemented by response writers that track whether a header was
// already sent.
type written interface {
	Written() bool
}

// WriteError renders err as the JSON error envelope. Unknown errors are logged
// in full and reported to the client as a bare 500.
func WriteError(writer http.ResponseWriter, req *http.Request, logger *logrus.Logger, err error) {
	entry := logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	})
	if id := RequestID(req.Context()); id != "" {
		entry = entry.WithField("request_id", id)
	}

	status := http.StatusInternalServerError
	message := apperrors.InternalServerError
	if appErr, ok := apperrors.As(err); ok {
		status = appErr.Status()
		message = appErr.Message
		entry.WithField("kind", appErr.Kind.String()).Warn(err.Error())
	} else {
		entry.WithError(err).Error("unhandled error")
	}

	if w, ok := writer.(written); ok && w.Written() {
		entry.Warn("response already started, error not sent to client")
		return
	}
	jsonResponse(writer, status, message, nil)
}

// WriteMethodNotAllowed answers a known path hit with an unsupported method.
// 405 sits outside the AppError kinds, so it is written directly.
func WriteMethodNotAllowed(writer http.ResponseWriter, req *http.Request, logger *logrus.Logger) {
	logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	}).Warn(apperrors.MethodNotAllowed)
	jsonResponse(writer, http.StatusMethodNotAllowed, apperrors.MethodNotAllowed, nil)
}
