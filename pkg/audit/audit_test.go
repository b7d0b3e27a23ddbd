package audit

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_DeliversInOrder(t *testing.T) {
	var order []string
	recorder := NewRecorder(
		SubscriberFunc(func(ctx context.Context, event Event) {
			order = append(order, "first")
		}),
		SubscriberFunc(func(ctx context.Context, event Event) {
			order = append(order, "second")
		}),
	)
	recorder.Subscribe(SubscriberFunc(func(ctx context.Context, event Event) {
		order = append(order, "third")
	}))

	recorder.Record(context.Background(), Event{Type: EventLoginSucceeded})

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestRecord_StampsTime(t *testing.T) {
	var got Event
	recorder := NewRecorder(SubscriberFunc(func(ctx context.Context, event Event) {
		got = event
	}))

	recorder.Record(context.Background(), Event{Type: EventOtpIssued, UserID: uuid.New()})

	assert.False(t, got.OccurredAt.IsZero())
}

func TestRecord_NoSubscribers(t *testing.T) {
	recorder := NewRecorder()

	// must not panic
	recorder.Record(context.Background(), Event{Type: EventLoginFailed})
}

func TestSlogSubscriber(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	recorder := NewRecorder(NewSlogSubscriber(logger))
	userID := uuid.New()
	recorder.Record(context.Background(), Event{
		Type:      EventOtpVerifyFailed,
		UserID:    userID,
		Email:     "member@example.com",
		RequestIP: "203.0.113.9",
	})

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "otp_verify_failed")
	assert.Contains(t, out, userID.String())
	assert.Contains(t, out, "member@example.com")
	assert.Contains(t, out, "203.0.113.9")
}
