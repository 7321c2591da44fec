package middleware

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/ayush/devconnector/backend/internal/auth"
	"github.com/ayush/devconnector/backend/internal/respond"
)

// TokenHeader carries the bearer token on every protected request.
const TokenHeader = "x-auth-token"

const (
	MsgNoToken      = "No token, Access denied"
	MsgInvalidToken = "Invalid token, Access denied"
)

// ReasonMissing is the Decision reason when no token was sent. Other
// rejections carry the auth.TokenReason of the failed verification.
const ReasonMissing = "missing"

// TokenVerifier is the verification primitive of the credential manager.
type TokenVerifier interface {
	VerifyToken(token string) (auth.Identity, error)
}

// Decision is the outcome of gating one request. Reason is for logs only;
// clients see Status and Message.
type Decision struct {
	Authenticated bool
	Identity      auth.Identity
	Status        int
	Message       string
	Reason        string
}

// Gate turns a raw request into an authenticated identity or a rejection.
// It never touches the database.
type Gate struct {
	tokens TokenVerifier
}

func NewGate(tokens TokenVerifier) *Gate {
	return &Gate{tokens: tokens}
}

// Decide inspects the token header of r.
func (g *Gate) Decide(r *http.Request) Decision {
	token := r.Header.Get(TokenHeader)
	if token == "" {
		return Decision{Status: http.StatusUnauthorized, Message: MsgNoToken, Reason: ReasonMissing}
	}

	id, err := g.tokens.VerifyToken(token)
	if err != nil {
		reason := string(auth.ReasonMalformed)
		var terr *auth.TokenError
		if errors.As(err, &terr) {
			reason = string(terr.Reason)
		}
		return Decision{Status: http.StatusUnauthorized, Message: MsgInvalidToken, Reason: reason}
	}
	return Decision{Authenticated: true, Identity: id}
}

// RequireAuth is middleware that runs the gate and injects the identity into
// the request context, or answers 401 without calling next.
func RequireAuth(g *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Decide(r)
			if !d.Authenticated {
				hlog.FromRequest(r).Debug().Str("reason", d.Reason).Msg("request rejected")
				respond.Message(w, d.Status, d.Message)
				return
			}

			ctx := auth.WithIdentity(r.Context(), d.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
