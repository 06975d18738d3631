package aps

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fapac/materiais-bff/app/respond"
)

// SessionCookie carries the session id keying the user's token.
const SessionCookie = "aps_session"

const authRequired = "Authorization required. Please log in."

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// API is the part of Client used by the handlers.
type API interface {
	AuthorizeURL(scopes []string) string
	ExchangeCode(ctx context.Context, code string) (*Token, error)
	InternalToken(ctx context.Context, scopes []string) (*Token, error)
	Get(ctx context.Context, accessToken, path string) (json.RawMessage, error)
}

type Handler struct {
	api          API
	store        TokenStore
	secureCookie bool
}

func NewHandler(api API, store TokenStore, secureCookie bool) *Handler {
	return &Handler{
		api:          api,
		store:        store,
		secureCookie: secureCookie,
	}
}

// Routes mounts the auth and Data Management routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/auth/login", h.HandleLogin)
	r.Get("/api/auth/callback", h.HandleCallback)
	r.With(h.requireAuth).Get("/api/auth/token", h.HandleToken)
	r.Get("/api/auth/viewer-token", h.HandleViewerToken)

	r.Route("/api/dm", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/hubs", h.proxy(func(*http.Request) string {
			return "/project/v1/hubs"
		}))
		r.Get("/hubs/{hub}/projects", h.proxy(func(r *http.Request) string {
			return "/project/v1/hubs/" + param(r, "hub") + "/projects"
		}))
		r.Get("/hubs/{hub}/projects/{project}/contents", h.proxy(func(r *http.Request) string {
			return "/project/v1/hubs/" + param(r, "hub") + "/projects/" + param(r, "project") + "/topFolders"
		}))
		r.Get("/folders/{project}/{folder}/contents", h.proxy(func(r *http.Request) string {
			return "/data/v1/projects/" + param(r, "project") + "/folders/" + param(r, "folder") + "/contents"
		}))
		r.Get("/items/{project}/{item}/versions", h.proxy(func(r *http.Request) string {
			return "/data/v1/projects/" + param(r, "project") + "/items/" + param(r, "item") + "/versions"
		}))
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.api.AuthorizeURL(UserScopes), http.StatusFound)
}

func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respond.Fail(w, http.StatusBadRequest, "Authorization code missing")
		return
	}

	tok, err := h.api.ExchangeCode(r.Context(), code)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	sessionID := uuid.NewString()
	if err := h.store.Save(r.Context(), sessionID, *tok); err != nil {
		respond.Error(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   tok.ExpiresIn,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	tok := tokenFrom(r.Context())
	respond.JSON(w, http.StatusOK, TokenResponse{
		AccessToken: tok.AccessToken,
		ExpiresIn:   int(tok.TTL(time.Now()).Seconds()),
	})
}

// HandleViewerToken returns a 2-legged read-only token for the model viewer.
// It needs no user session.
func (h *Handler) HandleViewerToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.api.InternalToken(r.Context(), ViewerScopes)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, TokenResponse{
		AccessToken: tok.AccessToken,
		ExpiresIn:   tok.ExpiresIn,
	})
}

func (h *Handler) proxy(path func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := tokenFrom(r.Context())
		body, err := h.api.Get(r.Context(), tok.AccessToken, path(r))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, body)
	}
}

type ctxKey struct{}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			respond.Fail(w, http.StatusUnauthorized, authRequired)
			return
		}

		tok, err := h.store.Load(r.Context(), cookie.Value)
		if errors.Is(err, ErrNoSession) {
			respond.Fail(w, http.StatusUnauthorized, authRequired)
			return
		}
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, tok)))
	})
}

func tokenFrom(ctx context.Context) *Token {
	tok, _ := ctx.Value(ctxKey{}).(*Token)
	if tok == nil {
		return &Token{}
	}
	return tok
}

func param(r *http.Request, name string) string {
	return url.PathEscape(chi.URLParam(r, name))
}
