// pkg/middleware/connect.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"

	"qalilab/pkg/tenants"
)

// Claims is the verified result of an inbound Connect token: which tenant is
// talking to us and, for deep links from an issue panel, which issue.
type Claims struct {
	ClientKey string
	IssueKey  string
}

type ctxClaimsKey struct{}

const clockSkew = 30 * time.Second

// VerifyConnect guards tenant-scoped routes. The token arrives either as
// "Authorization: JWT <tok>" or as a ?jwt= query parameter (Jira iframes use
// the latter). Verification is two-pass: an unverified decode to learn the
// issuer, a registry lookup, then a full signature + validity check against
// that tenant's shared secret. Rejections carry a generic message only — the
// token and the secret stay out of responses and logs.
func VerifyConnect(store tenants.Store, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			unverified, err := jwt.ParseInsecure([]byte(raw))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			iss := unverified.Issuer()
			if iss == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			inst, err := store.Get(r.Context(), iss)
			if err != nil {
				log.Warnw("inbound token from unknown tenant", "iss", iss)
				http.Error(w, "unknown tenant", http.StatusUnauthorized)
				return
			}
			verified, err := jwt.Parse([]byte(raw),
				jwt.WithKey(jwa.HS256, []byte(inst.SharedSecret)),
				jwt.WithValidate(true),
				jwt.WithAcceptableSkew(clockSkew),
			)
			if err != nil {
				log.Warnw("inbound token verification failed", "iss", iss)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			claims := Claims{ClientKey: iss, IssueKey: issueKeyFromContext(verified)}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxClaimsKey{}, claims)))
		})
	}
}

// ClaimsFrom returns the verified claims placed by VerifyConnect, or the zero
// value when the route was not guarded.
func ClaimsFrom(ctx context.Context) Claims {
	if v := ctx.Value(ctxClaimsKey{}); v != nil {
		return v.(Claims)
	}
	return Claims{}
}

func tokenFromRequest(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "jwt ") {
		return strings.TrimSpace(authz[len("JWT "):])
	}
	return r.URL.Query().Get("jwt")
}

// issueKeyFromContext digs the issue key out of the embedded context claim
// ({"jira":{"issue":{"key":"ACD-12"}}}), when present.
func issueKeyFromContext(tok jwt.Token) string {
	v, ok := tok.Get("context")
	if !ok {
		return ""
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	jira, ok := m["jira"].(map[string]any)
	if !ok {
		return ""
	}
	issue, ok := jira["issue"].(map[string]any)
	if !ok {
		return ""
	}
	key, _ := issue["key"].(string)
	return key
}
