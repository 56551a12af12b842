package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// PlaintextCSRF marks requests as plain HTTP so gorilla/csrf skips its
// TLS-only Referer check. Only install it when cookies are not secure.
func PlaintextCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}
