package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/gomail.v2"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
)

var ErrOwnerUnknown = errors.New("room owner has no e-mail address")

// Sender delivers prepared messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailNotifier e-mails room owners when their room gets reserved.
type MailNotifier struct {
	sender Sender
	from   string
	cb     *gobreaker.CircuitBreaker
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewMailNotifier(sender Sender, from string, tracer trace.Tracer, logger *logrus.Logger) *MailNotifier {
	return &MailNotifier{
		sender: sender,
		from:   from,
		cb:     CircuitBreaker("smtp", logger),
		tracer: tracer,
		logger: logger,
	}
}

// NewSMTPNotifier dials the configured SMTP server for every message.
func NewSMTPNotifier(host string, port int, username, password string, tracer trace.Tracer, logger *logrus.Logger) *MailNotifier {
	dialer := gomail.NewDialer(host, port, username, password)
	return NewMailNotifier(dialer, username, tracer, logger)
}

func (notifier *MailNotifier) RoomReserved(ctx context.Context, room *domain.Room) error {
	_, span := notifier.tracer.Start(ctx, "MailNotifier.RoomReserved")
	defer span.End()

	if room.Owner == nil || room.Owner.Email == "" {
		span.SetStatus(codes.Error, ErrOwnerUnknown.Error())
		return ErrOwnerUnknown
	}

	message := reservationMessage(notifier.from, room)
	_, err := notifier.cb.Execute(func() (interface{}, error) {
		return nil, notifier.sender.DialAndSend(message)
	})
	if err != nil {
		span.SetStatus(codes.Error, "Error sending reservation mail")
		return fmt.Errorf("sending reservation mail: %w", err)
	}
	notifier.logger.Infof("MailNotifier.RoomReserved : owner of room %s notified", room.ID.Hex())
	return nil
}

func reservationMessage(from string, room *domain.Room) *gomail.Message {
	reserver := "another user"
	if room.Reserver != nil {
		reserver = room.Reserver.Username
	}

	message := gomail.NewMessage()
	message.SetHeader("From", from)
	message.SetHeader("To", room.Owner.Email)
	message.SetHeader("Subject", fmt.Sprintf("Your room \"%s\" has been reserved", room.Title))
	message.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nyour room \"%s\" in %s was reserved by %s.\n",
		room.Owner.Username, room.Title, room.City, reserver,
	))
	return message
}

func CircuitBreaker(name string, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			Interval:    0,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 2
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warnf("Circuit Breaker '%s' changed from '%s' to '%s'", name, from, to)
			},
		},
	)
}
