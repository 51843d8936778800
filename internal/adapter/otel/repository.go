package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

const tracerName = "github.com/neomorfeo/garagedesk/internal/adapter/otel"

// TracingStore wraps a domain.Store with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingStore struct {
	next   domain.Store
	tracer trace.Tracer
}

// Compile-time check: TracingStore implements domain.Store.
var _ domain.Store = (*TracingStore)(nil)

// NewTracingStore creates a tracing decorator around the given store.
func NewTracingStore(next domain.Store) *TracingStore {
	return &TracingStore{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingStore) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "Store."+name, trace.WithAttributes(attrs...))
}

// finish records err on span. A missing row is an answer, not a failure.
func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *TracingStore) CreateSuperAdmin(ctx context.Context, a domain.SuperAdmin) (err error) {
	ctx, span := s.start(ctx, "CreateSuperAdmin", attribute.String("super_admin.id", a.ID))
	defer func() { finish(span, err) }()
	return s.next.CreateSuperAdmin(ctx, a)
}

func (s *TracingStore) GetSuperAdmin(ctx context.Context, id string) (_ domain.SuperAdmin, err error) {
	ctx, span := s.start(ctx, "GetSuperAdmin", attribute.String("super_admin.id", id))
	defer func() { finish(span, err) }()
	return s.next.GetSuperAdmin(ctx, id)
}

func (s *TracingStore) GetSuperAdminByEmail(ctx context.Context, email string) (_ domain.SuperAdmin, err error) {
	ctx, span := s.start(ctx, "GetSuperAdminByEmail")
	defer func() { finish(span, err) }()
	return s.next.GetSuperAdminByEmail(ctx, email)
}

func (s *TracingStore) CountActiveSuperAdmins(ctx context.Context) (n int, err error) {
	ctx, span := s.start(ctx, "CountActiveSuperAdmins")
	defer func() {
		span.SetAttributes(attribute.Int("result.count", n))
		finish(span, err)
	}()
	return s.next.CountActiveSuperAdmins(ctx)
}

func (s *TracingStore) CreateOrganisation(ctx context.Context, o domain.Organisation) (err error) {
	ctx, span := s.start(ctx, "CreateOrganisation",
		attribute.String("organisation.id", o.ID),
		attribute.String("organisation.slug", o.Slug),
		attribute.String("organisation.plan", o.Plan),
	)
	defer func() { finish(span, err) }()
	return s.next.CreateOrganisation(ctx, o)
}

func (s *TracingStore) GetOrganisation(ctx context.Context, id string) (_ domain.Organisation, err error) {
	ctx, span := s.start(ctx, "GetOrganisation", attribute.String("organisation.id", id))
	defer func() { finish(span, err) }()
	return s.next.GetOrganisation(ctx, id)
}

func (s *TracingStore) CountActiveOrganisations(ctx context.Context) (n int, err error) {
	ctx, span := s.start(ctx, "CountActiveOrganisations")
	defer func() {
		span.SetAttributes(attribute.Int("result.count", n))
		finish(span, err)
	}()
	return s.next.CountActiveOrganisations(ctx)
}

func (s *TracingStore) CreateUser(ctx context.Context, u domain.User) (err error) {
	ctx, span := s.start(ctx, "CreateUser",
		attribute.String("user.id", u.ID),
		attribute.String("user.role", string(u.Role)),
		attribute.String("organisation.id", u.OrganisationID),
	)
	defer func() { finish(span, err) }()
	return s.next.CreateUser(ctx, u)
}

func (s *TracingStore) GetUser(ctx context.Context, id string) (_ domain.User, err error) {
	ctx, span := s.start(ctx, "GetUser", attribute.String("user.id", id))
	defer func() { finish(span, err) }()
	return s.next.GetUser(ctx, id)
}

func (s *TracingStore) GetUserByEmail(ctx context.Context, email string) (_ domain.User, err error) {
	ctx, span := s.start(ctx, "GetUserByEmail")
	defer func() { finish(span, err) }()
	return s.next.GetUserByEmail(ctx, email)
}

func (s *TracingStore) ListUsers(ctx context.Context, organisationID string) (users []domain.User, err error) {
	ctx, span := s.start(ctx, "ListUsers", attribute.String("organisation.id", organisationID))
	defer func() {
		span.SetAttributes(attribute.Int("result.count", len(users)))
		finish(span, err)
	}()
	return s.next.ListUsers(ctx, organisationID)
}

func (s *TracingStore) CountAdmins(ctx context.Context, organisationID string) (n int, err error) {
	ctx, span := s.start(ctx, "CountAdmins", attribute.String("organisation.id", organisationID))
	defer func() {
		span.SetAttributes(attribute.Int("result.count", n))
		finish(span, err)
	}()
	return s.next.CountAdmins(ctx, organisationID)
}
