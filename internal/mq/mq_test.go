package mq

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Preflight/internal/domain"
)

func TestDecide(t *testing.T) {
	transient := errors.New("database unavailable")

	tests := []struct {
		name        string
		err         error
		redelivered bool
		expected    Disposition
	}{
		{"success", nil, false, DispositionAck},
		{"success after redelivery", nil, true, DispositionAck},
		{"transient first attempt", transient, false, DispositionRequeue},
		{"transient after redelivery", transient, true, DispositionDeadLetter},
		{"permanent", Permanent(transient), false, DispositionDeadLetter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.err, tt.redelivered); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestPermanent(t *testing.T) {
	cause := errors.New("run not found")
	err := Permanent(cause)

	if !errors.Is(err, ErrPermanent) || !errors.Is(err, cause) {
		t.Errorf("Permanent should wrap both sentinel and cause: %v", err)
	}
}

func TestParsePayload(t *testing.T) {
	run := domain.NewRun(domain.ReviewRequest{Owner: "acme", Repo: "shop", Number: 42})

	msg, err := NewMessage(MessageTypeValidationRequested, ValidationRequestedPayload{
		RunID:  run.ID,
		Owner:  "acme",
		Repo:   "shop",
		Number: 42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		t.Errorf("message id should be a uuid: %q", msg.ID)
	}

	payload, err := ParsePayload[ValidationRequestedPayload](msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.RunID != run.ID {
		t.Errorf("expected run id %s, got %s", run.ID, payload.RunID)
	}
	if payload.ReviewRequest() != run.ReviewRequest {
		t.Errorf("unexpected review request: %v", payload.ReviewRequest())
	}

	broken := &Message{Type: MessageTypeValidationRequested, Payload: []byte(`"not an object"`)}
	if _, err := ParsePayload[ValidationRequestedPayload](broken); err == nil {
		t.Error("expected error for malformed payload")
	}
}
