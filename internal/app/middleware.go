package app

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/moneyboard/moneyboard/internal/rest"
	"github.com/moneyboard/moneyboard/pkg/session"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies) {
	r.Use(SessionMiddleware(deps.Sessions))
}

// SessionMiddleware opens the session of the X-User-Id owner and refreshes its
// backend token from the Authorization header.
func SessionMiddleware(sessions *session.Manager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			log.Debug("Propagating user ID header")

			owner := req.Header.Get("X-User-Id")
			if owner == "" {
				if strings.HasPrefix(req.URL.Path, "/api/") {
					log.Debugf("missing user id for %s", req.URL.Path)
					rest.WriteError(w, http.StatusForbidden, "User not identified", session.ErrNoSession)
					return
				}
				next.ServeHTTP(w, req)
				return
			}

			s, err := sessions.Open(req.Context(), owner, bearerToken(req))
			if err != nil {
				log.Errorf("failed to open session: %v", err)
				rest.WriteError(w, http.StatusBadRequest, "Failed to open session", err)
				return
			}
			log.Debugf("session found: %s", s.Id)
			next.ServeHTTP(w, req.WithContext(session.WithSession(req.Context(), s)))
		})
	}
}

func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
