package events

import (
	"context"
	"log/slog"
	"os"
	"testing"
)

func TestMockEventPublisher_EnvelopeStructure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	publisher := NewMockEventPublisher(logger)
	ctx := context.Background()

	err := publisher.Publish(ctx, TypeSessionSubmitted, SessionSubmittedEvent{
		SessionID: "sess-1",
		PaperID:   3,
		StudentID: "student-1",
		EndReason: "manual",
		Answered:  42,
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(published))
	}

	event := published[0]
	if event.Type != TypeSessionSubmitted {
		t.Errorf("type = %q, want %q", event.Type, TypeSessionSubmitted)
	}
	if event.ID == "" {
		t.Error("event ID should not be empty")
	}
	if event.Source != "exam-session-service" {
		t.Errorf("source = %q", event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("version = %q", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("event timestamp should not be zero")
	}

	data, ok := event.Data.(SessionSubmittedEvent)
	if !ok {
		t.Fatalf("unexpected data type %T", event.Data)
	}
	if data.SessionID != "sess-1" || data.Answered != 42 {
		t.Errorf("unexpected payload %+v", data)
	}
}

func TestMockEventPublisher_ClearEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	publisher := NewMockEventPublisher(logger)

	publisher.Publish(context.Background(), TypeSessionGraded, SessionGradedEvent{SessionID: "s"})
	publisher.ClearEvents()

	if got := publisher.GetPublishedEvents(); len(got) != 0 {
		t.Errorf("expected no events after clear, got %d", len(got))
	}
}
