package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	fsmadapter "github.com/neomorfeo/garagedesk/internal/adapter/fsm"
	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

var errBackendDown = errors.New("backend unreachable")

// --- In-memory store ---

type memStore struct {
	mu          sync.Mutex
	superAdmins map[string]domain.SuperAdmin
	orgs        map[string]domain.Organisation
	users       map[string]domain.User

	// failReads makes every read fail with errBackendDown.
	failReads bool
}

func newMemStore() *memStore {
	return &memStore{
		superAdmins: make(map[string]domain.SuperAdmin),
		orgs:        make(map[string]domain.Organisation),
		users:       make(map[string]domain.User),
	}
}

func (m *memStore) CreateSuperAdmin(_ context.Context, a domain.SuperAdmin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.superAdmins {
		if existing.Active {
			return domain.ErrSuperAdminExists
		}
	}
	m.superAdmins[a.ID] = a
	return nil
}

func (m *memStore) GetSuperAdmin(_ context.Context, id string) (domain.SuperAdmin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return domain.SuperAdmin{}, errBackendDown
	}
	a, ok := m.superAdmins[id]
	if !ok {
		return domain.SuperAdmin{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *memStore) GetSuperAdminByEmail(_ context.Context, email string) (domain.SuperAdmin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.superAdmins {
		if a.Email == email {
			return a, nil
		}
	}
	return domain.SuperAdmin{}, domain.ErrNotFound
}

func (m *memStore) CountActiveSuperAdmins(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return 0, errBackendDown
	}
	n := 0
	for _, a := range m.superAdmins {
		if a.Active {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateOrganisation(_ context.Context, o domain.Organisation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orgs {
		if existing.Slug == o.Slug {
			return &domain.SlugConflictError{Slug: o.Slug}
		}
	}
	m.orgs[o.ID] = o
	return nil
}

func (m *memStore) GetOrganisation(_ context.Context, id string) (domain.Organisation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return domain.Organisation{}, errBackendDown
	}
	o, ok := m.orgs[id]
	if !ok {
		return domain.Organisation{}, domain.ErrNotFound
	}
	return o, nil
}

func (m *memStore) CountActiveOrganisations(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return 0, errBackendDown
	}
	n := 0
	for _, o := range m.orgs {
		if o.Status == domain.OrganisationActive {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return &domain.EmailConflictError{Email: u.Email}
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memStore) GetUser(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return domain.User{}, errBackendDown
	}
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memStore) ListUsers(_ context.Context, organisationID string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.OrganisationID == organisationID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) CountAdmins(_ context.Context, organisationID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return 0, errBackendDown
	}
	n := 0
	for _, u := range m.users {
		if u.Role == domain.RoleAdmin && u.Active && (organisationID == "" || u.OrganisationID == organisationID) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) setFailReads(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReads = v
}

// --- Prober stub ---

// stubProber returns fixed results unless a hook overrides a probe.
type stubProber struct {
	superAdmin, organisation, admin, session domain.ProbeResult

	onSuperAdmin func(ctx context.Context) domain.ProbeResult
	onSession    func(ctx context.Context) domain.ProbeResult
}

func proberWith(superAdmin, organisation, admin, session bool) *stubProber {
	return &stubProber{
		superAdmin:   result(superAdmin),
		organisation: result(organisation),
		admin:        result(admin),
		session:      result(session),
	}
}

func result(exists bool) domain.ProbeResult {
	if exists {
		return domain.Exists{}
	}
	return domain.NotFound{}
}

func (p *stubProber) SuperAdminExists(ctx context.Context) domain.ProbeResult {
	if p.onSuperAdmin != nil {
		return p.onSuperAdmin(ctx)
	}
	return p.superAdmin
}

func (p *stubProber) OrganisationExists(_ context.Context) domain.ProbeResult {
	return p.organisation
}

func (p *stubProber) AdminExists(_ context.Context, _ string) domain.ProbeResult {
	return p.admin
}

func (p *stubProber) SessionPresent(ctx context.Context) domain.ProbeResult {
	if p.onSession != nil {
		return p.onSession(ctx)
	}
	return p.session
}

// --- Publisher and tokens ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event, _ domain.Subject) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type stubTokens struct {
	mu     sync.Mutex
	issued map[string]domain.Principal
}

func newStubTokens() *stubTokens {
	return &stubTokens{issued: make(map[string]domain.Principal)}
}

func (s *stubTokens) Issue(p domain.Principal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "token-" + p.ID
	s.issued[token] = p
	return token, nil
}

func (s *stubTokens) Verify(token string) (domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.issued[strings.TrimSpace(token)]
	if !ok {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return p, nil
}

// --- Wiring helpers ---

func newMachine(prober domain.ExistenceProber) *app.Machine {
	return app.NewMachine(prober, fsmadapter.New(), time.Second)
}

type fixture struct {
	store      *memStore
	publisher  *recordingPublisher
	tokens     *stubTokens
	auth       *app.Auth
	onboarding *app.Onboarding
	guard      *app.Guard
	newMachine func() *app.Machine
}

func newFixture() *fixture {
	store := newMemStore()
	publisher := &recordingPublisher{}
	tokens := newStubTokens()
	auth := app.NewAuth(store, tokens)
	probes := app.NewProbes(store)
	mk := func() *app.Machine { return newMachine(probes) }

	return &fixture{
		store:      store,
		publisher:  publisher,
		tokens:     tokens,
		auth:       auth,
		onboarding: app.NewOnboarding(store, publisher, auth),
		guard:      app.NewGuard(mk, store),
		newMachine: mk,
	}
}

// seedDeployment creates a super-admin, one active organisation, and an admin in it.
func (f *fixture) seedDeployment() (domain.Organisation, domain.User) {
	hash, err := app.HashPassword("correct-horse")
	if err != nil {
		panic(fmt.Sprintf("hashing: %v", err))
	}
	ctx := context.Background()
	_ = f.store.CreateSuperAdmin(ctx, domain.NewSuperAdmin("sa-1", "root@garagedesk.test", "Root", hash))
	org := domain.NewOrganisation("org-1", "Acme Garage", "acme", "free")
	_ = f.store.CreateOrganisation(ctx, org)
	user := domain.NewUser("u-1", org.ID, "a@acme.test", "Alice", domain.RoleAdmin, hash)
	_ = f.store.CreateUser(ctx, user)
	return org, user
}
