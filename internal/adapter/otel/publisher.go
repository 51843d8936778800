package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// TracingPublisher records onboarding events as producer spans and counts
// them by event and outcome before handing them to the queue.
type TracingPublisher struct {
	next      domain.EventPublisher
	tracer    trace.Tracer
	published metric.Int64Counter
}

var _ domain.EventPublisher = (*TracingPublisher)(nil)

func NewTracingPublisher(next domain.EventPublisher) *TracingPublisher {
	published, err := otel.Meter(tracerName).Int64Counter("garagedesk.onboarding.events",
		metric.WithDescription("Onboarding events handed to the job queue."),
	)
	if err != nil {
		otel.Handle(err)
	}
	return &TracingPublisher{
		next:      next,
		tracer:    otel.Tracer(tracerName),
		published: published,
	}
}

func (p *TracingPublisher) Publish(ctx context.Context, event domain.Event, subject domain.Subject) error {
	attrs := []attribute.KeyValue{attribute.String("event.type", string(event))}
	if subject.OrganisationID != "" {
		attrs = append(attrs, attribute.String("organisation.id", subject.OrganisationID))
	}
	if subject.UserID != "" {
		attrs = append(attrs, attribute.String("user.id", subject.UserID))
	}

	ctx, span := p.tracer.Start(ctx, "onboarding.publish "+string(event),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	outcome := "ok"
	err := p.next.Publish(ctx, event, subject)
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
	}

	if p.published != nil {
		p.published.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event.type", string(event)),
			attribute.String("outcome", outcome),
		))
	}
	return err
}
