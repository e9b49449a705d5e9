// Package handler holds the HTTP handlers of the login flow.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authflow/auth"
	"github.com/kbukum/authflow/auth/flow"
	"github.com/kbukum/authflow/errors"
	"github.com/kbukum/authflow/logger"
	"github.com/kbukum/authflow/server"
	"github.com/kbukum/authflow/server/middleware"
)

// Flow is the part of *flow.Orchestrator the handlers use.
type Flow interface {
	auth.Authenticator
	Initiate(ctx context.Context, provider string) (*flow.Authorization, error)
	CompleteCallback(ctx context.Context, cb flow.Callback) (*flow.Result, error)
}

// AuthHandler serves login, callback, the current user and logout.
type AuthHandler struct {
	flow     Flow
	cookies  CookieConfig
	frontURL string
	now      func() time.Time
	log      *logger.Logger
}

// Option configures an AuthHandler.
type Option func(*AuthHandler)

// WithHandlerClock sets the clock used for cookie lifetimes.
func WithHandlerClock(now func() time.Time) Option {
	return func(h *AuthHandler) { h.now = now }
}

// NewAuthHandler creates an AuthHandler. frontURL is where the browser is
// sent after a completed (frontURL/me) or cancelled (frontURL/) login.
func NewAuthHandler(f Flow, cookies CookieConfig, frontURL string, log *logger.Logger, opts ...Option) *AuthHandler {
	cookies.ApplyDefaults()
	h := &AuthHandler{
		flow:     f,
		cookies:  cookies,
		frontURL: strings.TrimRight(frontURL, "/"),
		now:      time.Now,
		log:      log.WithComponent("handler.auth"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes on r.
func (h *AuthHandler) Register(r gin.IRouter) {
	r.GET("/auth/:provider", h.Login)
	r.POST("/auth/:provider/callback", h.Callback)
	r.GET("/auth/:provider/callback", h.Callback)
	r.GET("/users/me", middleware.RequireSession(h.flow, h.cookies.SessionName), h.Me)
	r.POST("/logout", h.Logout)
}

// Login starts a login and redirects to the provider.
func (h *AuthHandler) Login(c *gin.Context) {
	provider := c.Param("provider")
	authz, err := h.flow.Initiate(c.Request.Context(), provider)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	http.SetCookie(c.Writer, h.cookies.cookie(
		h.cookies.StateName,
		encodeStateCookie(authz.State, authz.AttemptID),
		"/auth/"+provider,
		maxAgeUntil(authz.ExpiresAt, h.now()),
	))
	c.Redirect(http.StatusFound, authz.URL)
}

// Callback completes a login. Providers using response_mode=form_post send
// a form POST; a GET with query parameters is also accepted.
func (h *AuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")

	var stored, attemptID string
	if v, err := c.Cookie(h.cookies.StateName); err == nil {
		stored, attemptID = decodeStateCookie(v)
	}
	// The state is single use whatever the outcome.
	http.SetCookie(c.Writer, h.cookies.cookie(h.cookies.StateName, "", "/auth/"+provider, -1))

	res, err := h.flow.CompleteCallback(c.Request.Context(), flow.Callback{
		Provider:    provider,
		Code:        callbackParam(c, "code"),
		State:       callbackParam(c, "state"),
		StoredState: stored,
		AttemptID:   attemptID,
		Error:       callbackParam(c, "error"),
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	if res.Status == flow.StatusCancelled {
		c.Redirect(http.StatusFound, h.frontURL+"/")
		return
	}

	http.SetCookie(c.Writer, h.cookies.cookie(
		h.cookies.SessionName,
		res.SessionToken,
		"/",
		maxAgeUntil(res.ExpiresAt, h.now()),
	))
	c.Redirect(http.StatusFound, h.frontURL+"/me")
}

// meResponse is the body of GET /users/me.
type meResponse struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
}

// Me returns the caller's identity.
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		server.RespondWithError(c, errors.Unauthorized(""))
		return
	}
	c.JSON(http.StatusOK, meResponse{Subject: id.Subject(), Email: id.Email()})
}

// Logout clears the session cookie. Session tokens are stateless, so an
// already issued token stays valid until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, h.cookies.cookie(h.cookies.SessionName, "", "/", -1))
	server.RespondMessage(c, "Logout Success")
}

func callbackParam(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return c.Query(key)
}
