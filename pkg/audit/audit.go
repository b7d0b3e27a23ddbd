// Package audit records security-relevant login events. Services call the
// recorder explicitly at each mutation point; subscribers receive every
// event in registration order.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names an auditable event
type EventType string

const (
	EventLoginFailed     EventType = "login_failed"
	EventOtpIssued       EventType = "otp_issued"
	EventOtpVerifyFailed EventType = "otp_verify_failed"
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginCancelled  EventType = "login_cancelled"
)

// Event is a single audit record
type Event struct {
	Type       EventType
	OccurredAt time.Time
	UserID     uuid.UUID // zero when the user is unknown, e.g. a failed email lookup
	Email      string
	RequestIP  string
	UserAgent  string
	Detail     string
}

// Subscriber receives audit events. Subscribers must not block; a slow
// subscriber delays every later one.
type Subscriber interface {
	Notify(ctx context.Context, event Event)
}

// SubscriberFunc adapts a function to the Subscriber interface
type SubscriberFunc func(ctx context.Context, event Event)

func (f SubscriberFunc) Notify(ctx context.Context, event Event) {
	f(ctx, event)
}

// Recorder fans audit events out to its subscribers
type Recorder struct {
	subscribers []Subscriber
}

// NewRecorder creates a recorder with the given subscribers. Order is
// preserved: events reach subscribers in the order given here.
func NewRecorder(subscribers ...Subscriber) *Recorder {
	return &Recorder{subscribers: subscribers}
}

// Subscribe appends a subscriber
func (r *Recorder) Subscribe(s Subscriber) {
	r.subscribers = append(r.subscribers, s)
}

// Record stamps the event and delivers it to every subscriber in order
func (r *Recorder) Record(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	for _, s := range r.subscribers {
		s.Notify(ctx, event)
	}
}
