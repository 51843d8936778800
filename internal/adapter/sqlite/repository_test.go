package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/neomorfeo/garagedesk/internal/adapter/sqlite"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

// newTestStore creates a file-backed SQLite store in a temp dir.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "garagedesk.db"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreateOrganisation(t *testing.T, store *sqlite.Store, o domain.Organisation) {
	t.Helper()
	if err := store.CreateOrganisation(context.Background(), o); err != nil {
		t.Fatalf("CreateOrganisation failed: %v", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	n, err := store.CountActiveOrganisations(context.Background())
	if err != nil {
		t.Fatalf("CountActiveOrganisations: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestCreateOrganisation_And_Get(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	org := domain.NewOrganisation("org-1", "Acme Garage", "acme", "monthly")
	org.Email = "desk@acme.test"
	org.Phone = "+44 20 7946 0000"
	mustCreateOrganisation(t, store, org)

	got, err := store.GetOrganisation(ctx, "org-1")
	if err != nil {
		t.Fatalf("GetOrganisation failed: %v", err)
	}

	if got.Name != "Acme Garage" {
		t.Errorf("Name = %q, want %q", got.Name, "Acme Garage")
	}
	if got.Slug != "acme" {
		t.Errorf("Slug = %q, want %q", got.Slug, "acme")
	}
	if got.Plan != "monthly" {
		t.Errorf("Plan = %q, want %q", got.Plan, "monthly")
	}
	if got.Email != "desk@acme.test" || got.Phone != "+44 20 7946 0000" {
		t.Errorf("contact = %q / %q", got.Email, got.Phone)
	}
	if got.Status != domain.OrganisationActive {
		t.Errorf("Status = %q, want %q", got.Status, domain.OrganisationActive)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
}

func TestGetOrganisation_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetOrganisation(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateOrganisation_DuplicateSlug(t *testing.T) {
	store := newTestStore(t)

	mustCreateOrganisation(t, store, domain.NewOrganisation("org-1", "First", "same-slug", "free"))

	err := store.CreateOrganisation(context.Background(), domain.NewOrganisation("org-2", "Second", "same-slug", "free"))
	var slugErr *domain.SlugConflictError
	if !errors.As(err, &slugErr) {
		t.Fatalf("expected SlugConflictError, got %v", err)
	}
	if slugErr.Slug != "same-slug" {
		t.Errorf("slug = %q, want %q", slugErr.Slug, "same-slug")
	}
}

func TestCountActiveOrganisations_IgnoresSuspended(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreateOrganisation(t, store, domain.NewOrganisation("org-1", "One", "one", "free"))
	mustCreateOrganisation(t, store, domain.NewOrganisation("org-2", "Two", "two", "free"))

	if err := store.SetOrganisationStatus(ctx, "org-2", domain.OrganisationSuspended); err != nil {
		t.Fatalf("SetOrganisationStatus: %v", err)
	}

	n, err := store.CountActiveOrganisations(ctx)
	if err != nil {
		t.Fatalf("CountActiveOrganisations: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	if err := store.SetOrganisationStatus(ctx, "missing", domain.OrganisationSuspended); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSuperAdmins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if n, _ := store.CountActiveSuperAdmins(ctx); n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}

	admin := domain.NewSuperAdmin("sa-1", "Root@GarageDesk.test", "Root", "hash")
	if err := store.CreateSuperAdmin(ctx, admin); err != nil {
		t.Fatalf("CreateSuperAdmin: %v", err)
	}

	got, err := store.GetSuperAdminByEmail(ctx, " ROOT@garagedesk.test")
	if err != nil {
		t.Fatalf("GetSuperAdminByEmail: %v", err)
	}
	if got.ID != "sa-1" || !got.Active {
		t.Errorf("got %+v", got)
	}

	if _, err := store.GetSuperAdmin(ctx, "sa-1"); err != nil {
		t.Errorf("GetSuperAdmin: %v", err)
	}
	if _, err := store.GetSuperAdmin(ctx, "sa-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if n, _ := store.CountActiveSuperAdmins(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	dup := domain.NewSuperAdmin("sa-2", "root@garagedesk.test", "Other", "hash")
	if err := store.CreateSuperAdmin(ctx, dup); !errors.Is(err, domain.ErrSuperAdminExists) {
		t.Errorf("expected ErrSuperAdminExists, got %v", err)
	}
}

func TestCreateSuperAdmin_OnlyOnePerDeployment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateSuperAdmin(ctx, domain.NewSuperAdmin("sa-1", "root@garagedesk.test", "Root", "hash")); err != nil {
		t.Fatalf("CreateSuperAdmin: %v", err)
	}

	second := domain.NewSuperAdmin("sa-2", "intruder@evil.test", "Intruder", "hash")
	if err := store.CreateSuperAdmin(ctx, second); !errors.Is(err, domain.ErrSuperAdminExists) {
		t.Fatalf("expected ErrSuperAdminExists, got %v", err)
	}
	if _, err := store.GetSuperAdmin(ctx, "sa-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second super-admin was stored: %v", err)
	}
	if n, _ := store.CountActiveSuperAdmins(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestCreateSuperAdmin_ConcurrentSetups(t *testing.T) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := domain.NewSuperAdmin(fmt.Sprintf("sa-%d", i), fmt.Sprintf("root%d@garagedesk.test", i), "Root", "hash")
			errs[i] = store.CreateSuperAdmin(ctx, a)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case !errors.Is(err, domain.ErrSuperAdminExists):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("%d setups created a super-admin, want 1", won)
	}
	if n, _ := store.CountActiveSuperAdmins(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreateOrganisation(t, store, domain.NewOrganisation("org-1", "One", "one", "free"))
	mustCreateOrganisation(t, store, domain.NewOrganisation("org-2", "Two", "two", "free"))

	users := []domain.User{
		domain.NewUser("u-1", "org-1", "admin@one.test", "Ada", domain.RoleAdmin, "hash"),
		domain.NewUser("u-2", "org-1", "mech@one.test", "Max", domain.RoleMechanic, "hash"),
		domain.NewUser("u-3", "org-2", "admin@two.test", "Tom", domain.RoleAdmin, "hash"),
	}
	for _, u := range users {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser(%s): %v", u.ID, err)
		}
	}

	got, err := store.GetUserByEmail(ctx, "MECH@one.test")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.Role != domain.RoleMechanic || got.OrganisationID != "org-1" {
		t.Errorf("got %+v", got)
	}

	list, err := store.ListUsers(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}

	for orgID, want := range map[string]int{"org-1": 1, "org-2": 1, "": 2, "org-3": 0} {
		n, err := store.CountAdmins(ctx, orgID)
		if err != nil {
			t.Fatalf("CountAdmins(%q): %v", orgID, err)
		}
		if n != want {
			t.Errorf("CountAdmins(%q) = %d, want %d", orgID, n, want)
		}
	}

	var emailErr *domain.EmailConflictError
	dup := domain.NewUser("u-4", "org-2", "admin@one.test", "Dup", domain.RoleManager, "hash")
	if err := store.CreateUser(ctx, dup); !errors.As(err, &emailErr) {
		t.Errorf("expected EmailConflictError, got %v", err)
	}

	if _, err := store.GetUser(ctx, "u-404"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
