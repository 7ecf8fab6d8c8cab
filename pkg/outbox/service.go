package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
)

type inserter interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
}

// Service writes domain events into the outbox inside the caller's transaction
// so they commit or roll back together with the state change.
type Service struct {
	repo inserter
}

func NewService(repo inserter) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return &Service{repo: repo}, nil
}

// EmitInput describes one event to append.
type EmitInput struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
}

// Emit appends an event row within tx.
func (s *Service) Emit(tx *gorm.DB, input EmitInput) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if !input.EventType.IsValid() {
		return fmt.Errorf("invalid outbox event type %q", input.EventType)
	}
	if !input.AggregateType.IsValid() {
		return fmt.Errorf("invalid outbox aggregate type %q", input.AggregateType)
	}
	if input.AggregateID == uuid.Nil {
		return fmt.Errorf("aggregate id required")
	}

	data, err := json.Marshal(input.Data)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}

	envelope := PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Actor:      input.Actor,
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode event envelope: %w", err)
	}

	return s.repo.Insert(tx, models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     input.EventType,
		AggregateType: input.AggregateType,
		AggregateID:   input.AggregateID,
		Payload:       payload,
	})
}
