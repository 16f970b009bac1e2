// Package auth provides a minimal session sign in for the explore pages.
// A user is identified by name only; the name is stored in the session.
package auth

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/internal/ui/pages"
	"github.com/leapstack-labs/leapexplore/internal/ui/session"
)

// LoginPath is the sign in page.
const LoginPath = "/login"

// DefaultNext is where users land after signing in.
const DefaultNext = "/explore/example/"

const maxUsernameLength = 150

// LoginContext is the context of the sign in page.
type LoginContext struct {
	Next  string
	Error string
}

// Handlers provides HTTP handlers for the auth feature.
type Handlers struct {
	sessionStore sessions.Store
	pages        *pages.Renderer
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(sessionStore sessions.Store, renderer *pages.Renderer, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		sessionStore: sessionStore,
		pages:        renderer,
		logger:       logger,
	}
}

// SetupRoutes registers the auth routes.
func SetupRoutes(router chi.Router, sessionStore sessions.Store, renderer *pages.Renderer, logger *slog.Logger) error {
	handlers := NewHandlers(sessionStore, renderer, logger)

	router.Get(LoginPath, handlers.LoginPage)
	router.Post(LoginPath, handlers.Login)
	router.Post("/logout", handlers.Logout)

	return nil
}

// LoginPage renders the sign in form.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, LoginContext{Next: SafeNext(r.URL.Query().Get("next"))})
}

// Login signs the submitted user in and redirects to next.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, LoginContext{Next: DefaultNext, Error: "Invalid form."})
		return
	}

	next := SafeNext(r.PostForm.Get("next"))
	username := strings.TrimSpace(r.PostForm.Get("username"))
	if msg := validateUsername(username); msg != "" {
		h.render(w, r, http.StatusBadRequest, LoginContext{Next: next, Error: msg})
		return
	}

	if err := session.SetUserID(h.sessionStore, w, r, username); err != nil {
		h.logger.Error("failed to save session", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info("user signed in", slog.String("user", username))
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Logout clears the session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := session.Clear(h.sessionStore, w, r); err != nil {
		h.logger.Warn("failed to clear session", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, data LoginContext) {
	var buf bytes.Buffer
	err := h.pages.Page("login.html", pages.PageData{
		Title:   "Sign in",
		User:    session.UserID(h.sessionStore, r),
		Context: data,
	}).Render(r.Context(), &buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func validateUsername(username string) string {
	switch {
	case username == "":
		return "Username is required."
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return "Username is too long."
	case username == explore.AppName:
		return "This username is reserved."
	}
	return ""
}

// SafeNext returns next when it is a local path, DefaultNext otherwise.
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return DefaultNext
	}
	return next
}

// RequireUser redirects anonymous requests to the sign in page unless
// allowAnonymous is set. Datastar requests are redirected client side.
func RequireUser(sessionStore sessions.Store, allowAnonymous bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowAnonymous || session.UserID(sessionStore, r) != "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get("Datastar-Request") == "true" {
				sse := datastar.NewSSE(w, r)
				_ = sse.Redirect(LoginPath)
				return
			}

			target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}
