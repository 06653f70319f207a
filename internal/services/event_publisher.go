package services

import (
	"context"

	"medishare/internal/domain/donation"
	"medishare/internal/events"
	"medishare/pkg/logger"

	"go.uber.org/zap"
)

// EventPublisher emits donation lifecycle events. Publishing is best effort:
// a failed publish is logged and never fails the operation.
type EventPublisher struct {
	bus events.Bus
	log *logger.Logger
}

func NewEventPublisher(bus events.Bus, log *logger.Logger) *EventPublisher {
	if bus == nil {
		bus = events.NopBus{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &EventPublisher{bus: bus, log: log}
}

// PublishCreated emits donation.created to the donor's channel
func (p *EventPublisher) PublishCreated(ctx context.Context, d donation.Donation) {
	p.publish(ctx, events.EventTypeDonationCreated, d.ID.String(), events.DonationCreatedPayload{
		DonationID: d.ID.String(),
		DonorID:    d.DonorID.String(),
		ItemType:   string(d.ItemType),
		Status:     string(d.Status),
	}, d.DonorID.String())
}

// PublishStatusChanged emits donation.status_changed, or donation.requested
// when a receiver claimed the record.
func (p *EventPublisher) PublishStatusChanged(ctx context.Context, operation string, from donation.Status, d donation.Donation, actor Actor) {
	eventType := events.EventTypeDonationStatusChanged
	if operation == OperationReceiverRequest {
		eventType = events.EventTypeDonationRequested
	}

	payload := events.DonationStatusChangedPayload{
		DonationID: d.ID.String(),
		DonorID:    d.DonorID.String(),
		From:       string(from),
		To:         string(d.Status),
		ChangedBy:  actor.ID.String(),
		Operation:  operation,
	}
	audience := []string{d.DonorID.String()}
	if d.ReceiverID != nil {
		payload.ReceiverID = d.ReceiverID.String()
		audience = append(audience, payload.ReceiverID)
	}
	p.publish(ctx, eventType, d.ID.String(), payload, audience...)
}

func (p *EventPublisher) PublishDeleted(ctx context.Context, d donation.Donation, actor Actor, imageErr error) {
	payload := events.DonationDeletedPayload{
		DonationID: d.ID.String(),
		DonorID:    d.DonorID.String(),
		DeletedBy:  actor.ID.String(),
	}
	if imageErr != nil {
		payload.ImageDeleteError = imageErr.Error()
	}
	audience := []string{d.DonorID.String()}
	if d.ReceiverID != nil {
		audience = append(audience, d.ReceiverID.String())
	}
	p.publish(ctx, events.EventTypeDonationDeleted, d.ID.String(), payload, audience...)
}

func (p *EventPublisher) publish(ctx context.Context, eventType, aggregateID string, payload interface{}, audience ...string) {
	env, err := events.NewEnvelope(eventType, events.AggregateDonation, aggregateID, payload, audience...)
	if err != nil {
		p.log.Error(ctx, "failed to build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := p.bus.Publish(ctx, env); err != nil {
		p.log.Warn(ctx, "failed to publish event",
			zap.String("event_type", eventType),
			zap.String("donation_id", aggregateID),
			zap.Error(err),
		)
	}
}
