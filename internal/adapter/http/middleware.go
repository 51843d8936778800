package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/neomorfeo/garagedesk/internal/app"
	"github.com/neomorfeo/garagedesk/internal/domain"
)

// Cookie names.
const (
	TokenCookie = "garagedesk_token"
	SetupCookie = "garagedesk_setup"
	OrgCookie   = "garagedesk_org"
)

type cookies struct {
	secure bool
}

func (c cookies) make(name, value string, ttl time.Duration) http.Cookie {
	cookie := http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	}
	return cookie
}

func (c cookies) clear(name string) http.Cookie {
	cookie := c.make(name, "", 0)
	cookie.MaxAge = -1
	return cookie
}

// Authenticate resolves the bearer token (Authorization header first, then
// the token cookie) and stores the principal in the request context. An
// absent or invalid token leaves the request anonymous.
func Authenticate(auth *app.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := auth.Authenticate(token)
			if err != nil {
				slog.DebugContext(r.Context(), "ignoring invalid token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

type setupSessionKey struct{}

type setupSession struct {
	id      string
	machine *app.Machine
}

func setupSessionFrom(ctx context.Context) (setupSession, bool) {
	s, ok := ctx.Value(setupSessionKey{}).(setupSession)
	return s, ok
}

// setupSessions attaches the caller's setup session to setup and sign-in
// requests. Setup requests without a live session get a new one and its
// cookie; sign-in only ever attaches an existing session.
func setupSessions(sessions *app.SetupSessions, ttl time.Duration, c cookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			setup := strings.HasPrefix(r.URL.Path, "/api/v1/setup")
			signIn := r.URL.Path == "/api/v1/auth/sign-in"
			if !setup && !signIn {
				next.ServeHTTP(w, r)
				return
			}

			var sess setupSession
			if cookie, err := r.Cookie(SetupCookie); err == nil {
				if m, err := sessions.Get(cookie.Value); err == nil {
					sess = setupSession{id: cookie.Value, machine: m}
				}
			}

			if sess.machine == nil && setup {
				id, m, err := sessions.Open()
				if err != nil {
					writeProblem(w, http.StatusInternalServerError, "internal", "could not start setup", domain.Decision{})
					return
				}
				sess = setupSession{id: id, machine: m}
				cookie := c.make(SetupCookie, id, ttl)
				http.SetCookie(w, &cookie)
			}

			if sess.machine != nil {
				r = r.WithContext(context.WithValue(r.Context(), setupSessionKey{}, sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAccess runs the access guard before every protected request. Content
// behind it renders only for an authenticated principal, in a live
// organisation, with one of roles (any role when empty). API requests get a
// JSON problem; page navigations are redirected to the safe view.
func RequireAccess(guard *app.Guard, secureCookies bool, roles ...domain.Role) func(http.Handler) http.Handler {
	c := cookies{secure: secureCookies}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var principal *domain.Principal
			if p, ok := domain.PrincipalFromContext(ctx); ok {
				principal = &p
			}

			var cached domain.OrgSelection
			if cookie, err := r.Cookie(OrgCookie); err == nil {
				cached = domain.ParseOrgSelection(cookie.Value)
			}

			d := guard.Check(ctx, principal, cached, roles...)

			if d.InvalidateOrgCache {
				cookie := c.clear(OrgCookie)
				http.SetCookie(w, &cookie)
			}

			if !d.Allowed() {
				deny(w, r, d)
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithOrganisation(ctx, d.OrganisationID)))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, d domain.Decision) {
	status, code := denial(d)
	if status >= http.StatusInternalServerError {
		slog.WarnContext(r.Context(), "access guard could not decide", "error", d.Err)
	}

	if strings.HasPrefix(r.URL.Path, "/api/") {
		detail := http.StatusText(status)
		if d.Err != nil {
			detail = d.Err.Error()
		}
		writeProblem(w, status, code, detail, d)
		return
	}

	http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
}

func denial(d domain.Decision) (int, string) {
	var roleErr *domain.InsufficientRoleError
	switch {
	case d.Status == domain.GuardLoading:
		return http.StatusServiceUnavailable, "probe_failed"
	case d.Status == domain.GuardSetupRequired:
		return http.StatusConflict, "setup_incomplete"
	case d.Status == domain.GuardUnauthenticated:
		return http.StatusUnauthorized, "unauthenticated"
	case d.Status == domain.GuardOrgRequired:
		return http.StatusForbidden, "organisation_required"
	case errors.As(d.Err, &roleErr):
		return http.StatusForbidden, "insufficient_role"
	default:
		return http.StatusForbidden, "forbidden"
	}
}

// Problem is the JSON body of a request the guard refused.
type Problem struct {
	Status   int    `json:"status"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Code     string `json:"code"`
	Step     string `json:"step,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, code, detail string, d domain.Decision) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Status:   status,
		Title:    http.StatusText(status),
		Detail:   detail,
		Code:     code,
		Step:     string(d.Step),
		Redirect: d.Redirect,
	})
}
