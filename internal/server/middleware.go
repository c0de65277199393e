package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("request")
	})
}

// requireToken admits requests whose bearer token belongs to the user the
// session is subscribed to.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			writeError(w, http.StatusUnauthorized, "authorization header missing")
			return
		}

		id, err := s.verifier.Restore(r.Context(), token)
		if err != nil {
			s.log.WithError(err).WithField("path", r.URL.Path).Warn("rejecting token")
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if owner := s.ctrl.Session().Owner(); owner == "" || owner != id.UserID {
			writeError(w, http.StatusForbidden, "token does not match the active session")
			return
		}
		next.ServeHTTP(w, r)
	})
}
