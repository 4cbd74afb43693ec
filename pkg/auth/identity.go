package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
)

type ctxAuthorKey struct{}

// SigningKeys is the set of HMAC secrets accepted for signed-author
// headers, populated at startup from configuration.
var signingKeys []string

func SetSigningKeys(keys []string) { signingKeys = keys }

// RequireSignedAuthor verifies HMAC signature headers and injects the
// verified author id into the request context.
func RequireSignedAuthor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role-Name")
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-User-Signature"))

		// Backend/admin callers may omit the signature entirely; if one
		// is present it is still verified below.
		if role == "backend" || role == "admin" {
			if sig == "" {
				if userID != "" {
					r = r.WithContext(context.WithValue(r.Context(), ctxAuthorKey{}, userID))
				}
				next.ServeHTTP(w, r)
				return
			}
		}

		if sig == "" || userID == "" {
			logger.Warn("missing_signature_headers", "path", r.URL.Path, "remote", r.RemoteAddr)
			http.Error(w, `{"error":"missing signature headers"}`, http.StatusUnauthorized)
			return
		}

		if len(signingKeys) == 0 {
			logger.Error("no_signing_keys_configured")
			http.Error(w, `{"error":"server misconfigured: no signing secrets available"}`, http.StatusInternalServerError)
			return
		}

		ok := false
		for _, k := range signingKeys {
			mac := hmac.New(sha256.New, []byte(k))
			mac.Write([]byte(userID))
			expected := hex.EncodeToString(mac.Sum(nil))
			if hmac.Equal([]byte(expected), []byte(sig)) {
				ok = true
				break
			}
		}
		if !ok {
			logger.Warn("invalid_signature", "user", userID)
			http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxAuthorKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthorIDFromContext returns the verified author id or empty string.
func AuthorIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxAuthorKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
