package notify

import (
	"context"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindError   Kind = "error"
)

// Notification is a fire-and-forget message meant for the shopper.
type Notification struct {
	ProfileID string    `json:"profile_id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// Sink delivers notifications. Implementations never report failures back.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

func New(profileID string, kind Kind, message string) Notification {
	return Notification{
		ProfileID: profileID,
		Kind:      kind,
		Message:   message,
		At:        time.Now().UTC(),
	}
}

// Multi fans a notification out to every sink.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		s.Notify(ctx, n)
	}
}

type Discard struct{}

func (Discard) Notify(context.Context, Notification) {}
