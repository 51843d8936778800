package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

const minPasswordLength = 8

// HashPassword validates and bcrypt-hashes a password.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", domain.ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Auth is the sign-in side of the auth collaborator.
type Auth struct {
	store  domain.Store
	tokens domain.TokenIssuer
}

// NewAuth creates an authenticator over the given store and token issuer.
func NewAuth(store domain.Store, tokens domain.TokenIssuer) *Auth {
	return &Auth{store: store, tokens: tokens}
}

// SignIn checks credentials against organisation users first, then
// super-admins, and returns the principal with a bearer token.
func (a *Auth) SignIn(ctx context.Context, email, password string) (domain.Principal, string, error) {
	email = domain.NormalizeEmail(email)

	principal, hash, err := a.lookup(ctx, email)
	if err != nil {
		return domain.Principal{}, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return domain.Principal{}, "", domain.ErrInvalidCredentials
	}

	token, err := a.tokens.Issue(principal)
	if err != nil {
		return domain.Principal{}, "", fmt.Errorf("issuing token: %w", err)
	}
	return principal, token, nil
}

func (a *Auth) lookup(ctx context.Context, email string) (domain.Principal, string, error) {
	user, err := a.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.Active {
			return domain.Principal{}, "", domain.ErrInvalidCredentials
		}
		return domain.Principal{
			ID:             user.ID,
			Email:          user.Email,
			Name:           user.Name,
			Role:           user.Role,
			OrganisationID: user.OrganisationID,
		}, user.PasswordHash, nil
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Principal{}, "", fmt.Errorf("looking up user: %w", err)
	}

	admin, err := a.store.GetSuperAdminByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.Principal{}, "", domain.ErrInvalidCredentials
	case err != nil:
		return domain.Principal{}, "", fmt.Errorf("looking up super-admin: %w", err)
	case !admin.Active:
		return domain.Principal{}, "", domain.ErrInvalidCredentials
	}
	return domain.Principal{
		ID:    admin.ID,
		Email: admin.Email,
		Name:  admin.Name,
		Role:  domain.RoleSuperAdmin,
	}, admin.PasswordHash, nil
}

// Authenticate resolves a bearer token to its principal.
func (a *Auth) Authenticate(token string) (domain.Principal, error) {
	return a.tokens.Verify(token)
}
