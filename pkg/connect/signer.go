// pkg/connect/signer.go
package connect

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"qalilab/pkg/tenants"
)

// TokenTTL is the lifetime of an outbound token. Tokens are minted fresh per
// tracker call and never persisted, so a short window is enough.
const TokenTTL = 3 * time.Minute

// qshCompatPlaceholder is the constant the historical deployment sent instead
// of a computed query-string hash. Kept selectable for compatibility with that
// peer; see CONNECT_QSH_COMPAT.
const qshCompatPlaceholder = "context-qsh"

// Signer mints Connect JWTs for outbound tracker calls on behalf of an
// installed tenant.
type Signer struct {
	AppKey    string // iss claim — the application's own key
	QSHCompat bool
}

// Token builds and signs a token for one request against inst's instance.
// inst must come from the registry: callers are expected to have resolved the
// installation first, which is what makes the "no entry, no call" invariant
// hold.
func (s Signer) Token(inst tenants.Installation, method, path string, query url.Values) (string, error) {
	if inst.ClientKey == "" || inst.SharedSecret == "" {
		return "", fmt.Errorf("installation for %q has no shared secret", inst.ClientKey)
	}
	qsh := qshCompatPlaceholder
	if !s.QSHCompat {
		qsh = QueryHash(method, path, query)
	}
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer(s.AppKey).
		Subject(inst.ClientKey).
		IssuedAt(now).
		Expiration(now.Add(TokenTTL)).
		Claim("qsh", qsh).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(inst.SharedSecret)))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

// QueryHash computes the canonical request hash the Connect protocol expects:
// sha256 over "METHOD&path&canonical-query". Query keys are sorted, values for
// a repeated key are sorted and comma-joined, and the jwt parameter itself is
// excluded.
func QueryHash(method, path string, query url.Values) string {
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "jwt" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vals := append([]string(nil), query[k]...)
		sort.Strings(vals)
		enc := make([]string, len(vals))
		for i, v := range vals {
			enc[i] = canonEscape(v)
		}
		parts = append(parts, canonEscape(k)+"="+strings.Join(enc, ","))
	}
	canonical := strings.ToUpper(method) + "&" + path + "&" + strings.Join(parts, "&")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// canonEscape percent-encodes like url.QueryEscape but with %20 for spaces,
// as the canonical form requires.
func canonEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
