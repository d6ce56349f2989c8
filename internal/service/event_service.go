package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/observability"
)

// EventKind enumerates every domain event the realtime core can fan out.
type EventKind int

const (
	EventAppointmentCreated EventKind = iota
	EventAppointmentUpdated
	EventAppointmentDeleted
	EventLinkAccepted
	EventLinkRejected
	EventLinkCanceled
)

// String returns the wire name of the event.
func (k EventKind) String() string {
	switch k {
	case EventAppointmentCreated:
		return "appointment_created"
	case EventAppointmentUpdated:
		return "appointment_updated"
	case EventAppointmentDeleted:
		return "appointment_deleted"
	case EventLinkAccepted:
		return "request_accepted"
	case EventLinkRejected:
		return "request_rejected"
	case EventLinkCanceled:
		return "request_canceled"
	}
	return "unknown"
}

// DomainEvent is an ephemeral description of a domain-state change. Exactly
// one of Appointment or Link is set, matching the Kind. ActorID identifies
// who triggered a link change; the dispatcher notifies the other party.
type DomainEvent struct {
	Kind        EventKind
	Appointment *dto.AppointmentResponse
	Link        *dto.LinkResponse
	ActorID     uint
}

// EventDispatcher turns domain events into room-scoped payloads and requests
// their broadcast. Dispatch is fire-and-forget: delivery problems are logged
// and swallowed, never surfaced to the mutation that produced the event.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event DomainEvent)
}

type eventDispatcher struct {
	broker RoomBroker
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewEventDispatcher creates the domain event dispatcher.
func NewEventDispatcher(broker RoomBroker, logger zerolog.Logger) EventDispatcher {
	return &eventDispatcher{
		broker: broker,
		logger: logger.With().Str("component", "event_dispatcher").Logger(),
		tracer: otel.Tracer("github.com/medico-project/medico-go-api/internal/service/events"),
	}
}

type eventDelivery struct {
	room    string
	payload any
}

func (d *eventDispatcher) Dispatch(ctx context.Context, event DomainEvent) {
	deliveries := routeEvent(event)
	if len(deliveries) == 0 {
		d.logger.Warn().Str("event", event.Kind.String()).Msg("domain event had no addressable party")
		return
	}

	spanCtx, span := d.tracer.Start(ctx, "events.dispatch", trace.WithAttributes(
		attribute.String("event.kind", event.Kind.String()),
	))
	defer span.End()

	for _, delivery := range deliveries {
		raw, err := json.Marshal(delivery.payload)
		if err != nil {
			span.RecordError(err)
			d.logger.Error().Err(err).Str("event", event.Kind.String()).Msg("failed to marshal domain event")
			continue
		}

		d.broker.Publish(spanCtx, delivery.room, raw)
		observability.EventsDispatched().WithLabelValues(event.Kind.String()).Inc()
	}
}

// routeEvent maps a domain event onto the notification channel rooms of the
// parties it concerns. Appointment events fan out to both parties, each
// tagged with its own role; link events address the counterparty only.
func routeEvent(event DomainEvent) []eventDelivery {
	switch event.Kind {
	case EventAppointmentCreated, EventAppointmentUpdated, EventAppointmentDeleted:
		if event.Appointment == nil {
			return nil
		}

		appointment := *event.Appointment
		deliveries := []eventDelivery{{
			room: AppointmentRoom(appointment.PatientID),
			payload: dto.AppointmentEventPayload{
				Event:       event.Kind.String(),
				Appointment: appointment,
				Target:      dto.EventTargetPatient,
			},
		}}

		if appointment.DoctorID != nil {
			deliveries = append(deliveries, eventDelivery{
				room: AppointmentRoom(*appointment.DoctorID),
				payload: dto.AppointmentEventPayload{
					Event:       event.Kind.String(),
					Appointment: appointment,
					Target:      dto.EventTargetDoctor,
				},
			})
		}

		return deliveries

	case EventLinkAccepted, EventLinkRejected, EventLinkCanceled:
		if event.Link == nil {
			return nil
		}

		counterparty := event.Link.FromUserID
		if event.ActorID == event.Link.FromUserID {
			counterparty = event.Link.ToUserID
		}

		return []eventDelivery{{
			room: LinkRoom(counterparty),
			payload: dto.LinkEventPayload{
				Event: event.Kind.String(),
				Link:  *event.Link,
			},
		}}
	}

	return nil
}
