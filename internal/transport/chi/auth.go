package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// assetKeyParam carries the API key for asset downloads. Browsers load
// thumbnails through <img src> and cannot attach an Authorization header.
const assetKeyParam = "api_key"

// bearerScheme is matched case-insensitively.
const bearerScheme = "Bearer"

// APIKeyAuth rejects requests without one of apiKeys. Blank keys are ignored
// and an empty set turns the middleware into a pass-through.
// Liveness and scrape endpoints are always open.
func APIKeyAuth(apiKeys []string) func(http.Handler) http.Handler {
	ring := newKeyring(apiKeys)

	return func(next http.Handler) http.Handler {
		if ring.empty() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/health", "/metrics":
				next.ServeHTTP(w, r)
				return
			}

			token, reason := credential(r)
			if token == "" {
				deny(w, reason)
				return
			}
			if !ring.contains(token) {
				deny(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// credential extracts the presented key, or explains why there is none.
func credential(r *http.Request) (token, reason string) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, bearerScheme) {
			return "", "authorization header must use Bearer scheme"
		}
		return strings.TrimSpace(tok), "empty bearer token"
	}
	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/asset") {
		if tok := r.URL.Query().Get(assetKeyParam); tok != "" {
			return tok, ""
		}
	}
	return "", "missing authorization header"
}

func deny(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", bearerScheme+` realm="simdex"`)
	writeError(w, http.StatusUnauthorized, codeUnauthorized, msg)
}

type keyring [][]byte

func newKeyring(keys []string) keyring {
	ring := make(keyring, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			ring = append(ring, []byte(k))
		}
	}
	return ring
}

func (k keyring) empty() bool { return len(k) == 0 }

// contains compares against every key so timing does not reveal which one matched.
func (k keyring) contains(token string) bool {
	match := 0
	for _, key := range k {
		match |= subtle.ConstantTimeCompare(key, []byte(token))
	}
	return match == 1
}
