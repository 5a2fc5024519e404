package server

import (
	"crypto/subtle"
	"net/http"
)

// BasicAuth returns middleware that protects a handler with HTTP basic
// authentication. Credentials are compared in constant time.
func BasicAuth(username, password string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if ok {
				userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
				passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
				if userMatch && passMatch {
					next(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate", `Basic realm="level meter"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	}
}
