package snapshot

import (
	"errors"
	"net/http"

	"github.com/moneyboard/moneyboard/internal/rest"
	"github.com/moneyboard/moneyboard/pkg/session"
	log "github.com/sirupsen/logrus"
)

// Handler lets a user drop every cached entity, in memory and persisted.
type Handler struct {
	sessions  *session.Manager
	repo      Repository
	persister *Persister
}

// NewHandler creates the handler. repo and persister are nil when
// persistence is disabled.
func NewHandler(sessions *session.Manager, repo Repository, persister *Persister) *Handler {
	return &Handler{sessions: sessions, repo: repo, persister: persister}
}

func (h *Handler) forget(r *http.Request, owner string) error {
	h.sessions.Close(owner)
	if h.repo == nil {
		return ErrPersistenceDisabled
	}
	if h.persister != nil {
		return h.persister.Forget(r.Context(), owner)
	}
	return h.repo.Delete(r.Context(), owner)
}

func (h *Handler) Forget(w http.ResponseWriter, r *http.Request) {
	log.Debug("Forgetting cached entities")
	sess, err := session.Current(r.Context())
	if err != nil {
		rest.WriteError(w, rest.StatusFor(err), "No session", err)
		return
	}

	err = h.forget(r, sess.Owner)
	if errors.Is(err, ErrPersistenceDisabled) {
		log.Debugf("nothing persisted for %s: %v", sess.Owner, err)
	} else if err != nil {
		rest.WriteError(w, http.StatusInternalServerError, "Failed to delete cached entities", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
