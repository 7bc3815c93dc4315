package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roomledger/roomledger/internal/config"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/roomledger/roomledger/internal/repository"
	"github.com/roomledger/roomledger/internal/service"
	"github.com/sirupsen/logrus"
)

type SessionStore interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
}

type TokenSigner interface {
	Sign(sessionID string, expiresAt time.Time) (string, error)
	Verify(token string) (string, error)
}

// SessionManager loads the session named by the signed cookie and writes it
// back when a handler changed it.
type SessionManager struct {
	store  SessionStore
	tokens TokenSigner
	cfg    *config.SessionConfig
	logger *logrus.Logger
	now    func() time.Time
	newID  func() string
}

func NewSessionManager(store SessionStore, tokens TokenSigner, cfg *config.SessionConfig, logger *logrus.Logger) *SessionManager {
	return &SessionManager{
		store:  store,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  service.NewSessionID,
	}
}

// LoadSession attaches a session to the request context. New sessions live in
// memory until something modifies them. A modified session is committed just
// before the first byte of the response goes out.
func (m *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r)
		r = r.WithContext(WithSession(r.Context(), sess))

		cw := &committingWriter{ResponseWriter: w, commit: func() {
			if err := m.commit(w, r, sess); err != nil {
				m.logger.WithError(err).WithField("path", r.URL.Path).Error("Failed to commit session")
			}
		}}
		next.ServeHTTP(cw, r)
		cw.commitOnce()
	})
}

func (m *SessionManager) load(r *http.Request) *models.Session {
	if cookie, err := r.Cookie(m.cfg.CookieName); err == nil {
		id, err := m.tokens.Verify(cookie.Value)
		if err != nil {
			m.logger.WithError(err).Debug("Ignoring invalid session cookie")
		} else {
			sess, err := m.store.Get(r.Context(), id)
			if err == nil {
				return sess
			}
			if !errors.Is(err, repository.ErrNotFound) {
				m.logger.WithError(err).Error("Failed to load session")
			}
		}
	}
	return models.NewSession(m.newID(), m.now(), m.cfg.TTL)
}

// Persist writes the request's session now, whether or not it was modified,
// rotating its id first if a login or logout asked for it.
func (m *SessionManager) Persist(w http.ResponseWriter, r *http.Request) error {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		return fmt.Errorf("no session in request context")
	}
	sess.MarkModified()
	return m.commit(w, r, sess)
}

func (m *SessionManager) commit(w http.ResponseWriter, r *http.Request, sess *models.Session) error {
	if sess.NeedsRotation() {
		sess.Rotate(m.newID())
	}
	if !sess.Modified() {
		return nil
	}

	// Nothing worth keeping: drop it server side and clear the cookie.
	if !sess.Authenticated() && sess.Challenge() == nil {
		if prev := sess.PreviousID(); prev != "" {
			if err := m.store.Delete(r.Context(), prev); err != nil {
				return err
			}
		}
		if sess.Stored() {
			if err := m.store.Delete(r.Context(), sess.ID); err != nil {
				return err
			}
		}
		sess.MarkStored()
		m.clearCookie(w)
		return nil
	}

	if err := m.store.Save(r.Context(), sess); err != nil {
		return err
	}
	token, err := m.tokens.Sign(sess.ID, sess.ExpiresAt)
	if err != nil {
		return err
	}
	m.setCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *SessionManager) clearCookie(w http.ResponseWriter) {
	m.setCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setCookie replaces a session cookie already queued on this response, so a
// commit after rotation never sends the stale id alongside the new one.
func (m *SessionManager) setCookie(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	prefix := c.Name + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(w, c)
}

// FixationGuard saves the session before any state-changing request while an
// OTP challenge is pending, so the challenge is pinned to the id the browser holds.
func (m *SessionManager) FixationGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess != nil && isStateChanging(r.Method) && sess.Challenge() != nil {
			if err := m.Persist(w, r); err != nil {
				m.logger.WithError(err).Error("Failed to persist session before request")
				respondError(w, http.StatusInternalServerError, "SESSION_ERROR", "Could not save your session, please try again", "")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// committingWriter runs commit once, before the status line is written.
type committingWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *committingWriter) commitOnce() {
	if !w.committed {
		w.committed = true
		w.commit()
	}
}

func (w *committingWriter) WriteHeader(status int) {
	w.commitOnce()
	w.ResponseWriter.WriteHeader(status)
}

func (w *committingWriter) Write(b []byte) (int, error) {
	w.commitOnce()
	return w.ResponseWriter.Write(b)
}
