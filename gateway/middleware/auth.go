package middleware

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/nhb-labs/agentic-wallet/byoa"
)

type contextKey string

// ContextKeyExternalAgent carries the authenticated BYOA agent record for
// handlers reached through RequireBearerAgent.
const ContextKeyExternalAgent contextKey = "gateway.externalAgent"

// AdminAuthConfig configures the admin-key middleware.
type AdminAuthConfig struct {
	// AdminKey is compared against the X-Admin-Key header in constant
	// time. An empty AdminKey disables admin-scoped endpoints entirely
	// rather than accepting any request, a fail-closed default.
	AdminKey string
}

// Authenticator implements the platform's two auth schemes: an admin-key
// header compare for agent-management endpoints, and a bearer
// control-token lookup against the External Agent Registry for BYOA
// intent submission. This replaces the teacher's JWT-claim verification —
// control tokens are opaque random bytes with no claims to check.
type Authenticator struct {
	cfg      AdminAuthConfig
	registry *byoa.Registry
	logger   *log.Logger
}

// NewAuthenticator constructs an Authenticator over the admin-key config
// and the External Agent Registry used to authenticate bearer tokens.
func NewAuthenticator(cfg AdminAuthConfig, registry *byoa.Registry, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.Default()
	}
	return &Authenticator{cfg: cfg, registry: registry, logger: logger}
}

// RequireAdminKey rejects any request whose X-Admin-Key header does not
// match the configured admin key. Comparison is constant-time.
func (a *Authenticator) RequireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.AdminKey == "" {
			a.logger.Printf("auth: rejecting admin request, no admin key configured")
			http.Error(w, "admin endpoints are disabled", http.StatusForbidden)
			return
		}
		supplied := r.Header.Get("X-Admin-Key")
		if !constantTimeEquals(supplied, a.cfg.AdminKey) {
			http.Error(w, "invalid admin key", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireBearerAgent authenticates the Authorization: Bearer control token
// against the External Agent Registry and attaches the resolved agent to
// the request context for downstream handlers.
func (a *Authenticator) RequireBearerAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r.Header.Get("Authorization"))
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		agent, err := a.registry.AuthenticateToken(token)
		if err != nil {
			http.Error(w, "invalid or revoked control token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ContextKeyExternalAgent, agent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExternalAgentFromContext retrieves the agent attached by
// RequireBearerAgent, if any.
func ExternalAgentFromContext(ctx context.Context) (*byoa.Agent, bool) {
	agent, ok := ctx.Value(ContextKeyExternalAgent).(*byoa.Agent)
	return agent, ok
}

// constantTimeEquals compares two strings so that neither a length
// mismatch nor a content mismatch short-circuits into a cheaper path.
func constantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
