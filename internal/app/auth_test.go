package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

func TestHashPassword(t *testing.T) {
	if _, err := app.HashPassword("short"); !errors.Is(err, domain.ErrPasswordTooShort) {
		t.Errorf("err = %v, want ErrPasswordTooShort", err)
	}

	hash, err := app.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct-horse" {
		t.Error("password stored in clear")
	}
}

func TestAuth_SignIn(t *testing.T) {
	f := newFixture()
	org, user := f.seedDeployment()
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantRole domain.Role
		wantOrg  string
		wantErr  error
	}{
		{"organisation user", "A@Acme.test ", "correct-horse", domain.RoleAdmin, org.ID, nil},
		{"super-admin", "root@garagedesk.test", "correct-horse", domain.RoleSuperAdmin, "", nil},
		{"wrong password", user.Email, "nope-nope", "", "", domain.ErrInvalidCredentials},
		{"unknown email", "ghost@acme.test", "correct-horse", "", "", domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, token, err := f.auth.SignIn(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SignIn: %v", err)
			}
			if p.Role != tt.wantRole || p.OrganisationID != tt.wantOrg {
				t.Errorf("principal = %+v", p)
			}

			got, err := f.auth.Authenticate(token)
			if err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			if got != p {
				t.Errorf("Authenticate = %+v, want %+v", got, p)
			}
		})
	}
}

func TestAuth_InactiveUserCannotSignIn(t *testing.T) {
	f := newFixture()
	org, _ := f.seedDeployment()
	hash, _ := app.HashPassword("correct-horse")

	u := domain.NewUser("u-9", org.ID, "off@acme.test", "Off", domain.RoleManager, hash)
	u.Active = false
	_ = f.store.CreateUser(context.Background(), u)

	if _, _, err := f.auth.SignIn(context.Background(), u.Email, "correct-horse"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuth_AuthenticateRejectsUnknownToken(t *testing.T) {
	f := newFixture()
	if _, err := f.auth.Authenticate("forged"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
