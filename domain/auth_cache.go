package domain

import "context"

// LoginAttemptCache counts failed logins per username for a bounded window.
type LoginAttemptCache interface {
	Failures(ctx context.Context, username string) (int, error)
	RecordFailure(ctx context.Context, username string) (int, error)
	Reset(ctx context.Context, username string) error
}

type ReservationNotifier interface {
	RoomReserved(ctx context.Context, room *Room) error
}
