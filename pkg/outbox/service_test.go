package outbox

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
)

type captureRepo struct {
	events []models.OutboxEvent
}

func (c *captureRepo) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitWrapsDataInEnvelope(t *testing.T) {
	repo := &captureRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	aggregateID := uuid.New()
	err = svc.Emit(&gorm.DB{}, EmitInput{
		EventType:     enums.OutboxEventInvoiceCreated,
		AggregateType: enums.OutboxAggregateInvoice,
		AggregateID:   aggregateID,
		Data:          map[string]string{"ncf": "B0100000001"},
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	event := repo.events[0]
	if event.EventType != enums.OutboxEventInvoiceCreated {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.AggregateID != aggregateID {
		t.Fatal("aggregate id not preserved")
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != 1 || envelope.EventID == "" {
		t.Fatalf("bad envelope: %+v", envelope)
	}

	var data map[string]string
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["ncf"] != "B0100000001" {
		t.Fatalf("data not preserved: %v", data)
	}
}

func TestEmitValidatesInput(t *testing.T) {
	svc, _ := NewService(&captureRepo{})

	if err := svc.Emit(nil, EmitInput{}); err == nil {
		t.Fatal("expected error without transaction")
	}
	if err := svc.Emit(&gorm.DB{}, EmitInput{
		EventType:     enums.OutboxEventType("bogus"),
		AggregateType: enums.OutboxAggregateInvoice,
		AggregateID:   uuid.New(),
	}); err == nil {
		t.Fatal("expected error for invalid event type")
	}
	if err := svc.Emit(&gorm.DB{}, EmitInput{
		EventType:     enums.OutboxEventInvoiceCreated,
		AggregateType: enums.OutboxAggregateInvoice,
	}); err == nil {
		t.Fatal("expected error for missing aggregate id")
	}
}
