package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// TracingProber wraps a domain.ExistenceProber with a span per probe and a
// counter of probe outcomes.
type TracingProber struct {
	next     domain.ExistenceProber
	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

// Compile-time check: TracingProber implements domain.ExistenceProber.
var _ domain.ExistenceProber = (*TracingProber)(nil)

// NewTracingProber creates a tracing decorator around the given prober.
func NewTracingProber(next domain.ExistenceProber) *TracingProber {
	outcomes, err := otel.Meter(tracerName).Int64Counter("garagedesk.setup.probes",
		metric.WithDescription("Setup existence probes by probe and outcome."),
	)
	if err != nil {
		otel.Handle(err)
	}
	return &TracingProber{
		next:     next,
		tracer:   otel.Tracer(tracerName),
		outcomes: outcomes,
	}
}

func (p *TracingProber) SuperAdminExists(ctx context.Context) domain.ProbeResult {
	return p.observe(ctx, domain.ProbeSuperAdmin, p.next.SuperAdminExists)
}

func (p *TracingProber) OrganisationExists(ctx context.Context) domain.ProbeResult {
	return p.observe(ctx, domain.ProbeOrganisation, p.next.OrganisationExists)
}

func (p *TracingProber) AdminExists(ctx context.Context, organisationID string) domain.ProbeResult {
	return p.observe(ctx, domain.ProbeAdmin, func(ctx context.Context) domain.ProbeResult {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("organisation.id", organisationID))
		return p.next.AdminExists(ctx, organisationID)
	})
}

func (p *TracingProber) SessionPresent(ctx context.Context) domain.ProbeResult {
	return p.observe(ctx, domain.ProbeSession, p.next.SessionPresent)
}

func (p *TracingProber) observe(ctx context.Context, probe string, run func(context.Context) domain.ProbeResult) domain.ProbeResult {
	ctx, span := p.tracer.Start(ctx, "Probe."+probe,
		trace.WithAttributes(attribute.String("probe.name", probe)),
	)
	defer span.End()

	result := run(ctx)

	outcome := "not_found"
	switch r := result.(type) {
	case domain.Exists:
		outcome = "exists"
	case domain.ProbeFailed:
		outcome = "failed"
		var transportErr *domain.ProbeTransportError
		if errors.As(r.Err, &transportErr) && transportErr.Timeout {
			outcome = "timeout"
		}
		span.RecordError(r.Err)
		span.SetStatus(codes.Error, r.Err.Error())
	}
	span.SetAttributes(attribute.String("probe.outcome", outcome))

	if p.outcomes != nil {
		p.outcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("probe.name", probe),
			attribute.String("probe.outcome", outcome),
		))
	}
	return result
}
