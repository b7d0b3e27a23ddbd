package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	idmerrors "github.com/harambee/welfare-idm/pkg/errors"
	"github.com/harambee/welfare-idm/pkg/loginflow"
	"github.com/harambee/welfare-idm/pkg/ratelimit"
	tg "github.com/harambee/welfare-idm/pkg/tokengenerator"
)

// DefaultPendingCookieName keys the pending-login store from the browser
const DefaultPendingCookieName = "welfare_session"

// Handle serves the login and two-factor endpoints
type Handle struct {
	flow              *loginflow.LoginFlowService
	jwtService        *tg.JwtService
	pendingCookieName string
	cookieSecure      bool
}

// HandleOption configures the handler
type HandleOption func(*Handle)

// WithPendingCookieName sets the pending-login cookie name
func WithPendingCookieName(name string) HandleOption {
	return func(h *Handle) {
		if name != "" {
			h.pendingCookieName = name
		}
	}
}

// WithCookieSecure controls the Secure flag on the pending cookie; turn it
// off for plain-HTTP local development only.
func WithCookieSecure(secure bool) HandleOption {
	return func(h *Handle) {
		h.cookieSecure = secure
	}
}

// NewHandle creates a new login flow handler
func NewHandle(flow *loginflow.LoginFlowService, jwtService *tg.JwtService, opts ...HandleOption) *Handle {
	h := &Handle{
		flow:              flow,
		jwtService:        jwtService,
		pendingCookieName: DefaultPendingCookieName,
		cookieSecure:      true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the auth endpoints on a chi router
func (h *Handle) Routes(r chi.Router) {
	r.Post("/auth/login", h.PostLogin)
	r.Get("/auth/2fa", h.GetChallenge)
	r.Post("/auth/2fa/verify", h.PostVerify)
	r.Post("/auth/2fa/resend", h.PostResend)
	r.Post("/auth/2fa/cancel", h.PostCancel)
}

// PostLogin handles POST /auth/login
func (h *Handle) PostLogin(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		h.renderError(w, r, idmerrors.New(idmerrors.ErrCodeInvalidInput, "unable to parse body"))
		return
	}
	if body.Email == "" || body.Password == "" {
		h.renderError(w, r, idmerrors.New(idmerrors.ErrCodeInvalidInput, "email and password are required"))
		return
	}

	result := h.flow.ProcessLogin(r.Context(), h.flowRequest(r, loginflow.Request{
		Email:    body.Email,
		Password: body.Password,
		Remember: body.Remember,
	}))

	if result.RequiresTwoFA {
		h.setPendingCookie(w, result.PendingKey)
		if result.ErrorResponse != nil {
			// code dispatch failed; the challenge page offers a resend
			render.Status(r, http.StatusAccepted)
			render.JSON(w, r, FlowResponse{
				Status:  StatusTwoFactorRequired,
				Message: result.ErrorResponse.Message,
			})
			return
		}
		render.JSON(w, r, FlowResponse{Status: StatusTwoFactorRequired})
		return
	}

	h.renderOutcome(w, r, result)
}

// GetChallenge handles GET /auth/2fa: the challenge page gates on a live
// pending login and sends the browser back to the login page otherwise.
func (h *Handle) GetChallenge(w http.ResponseWriter, r *http.Request) {
	key := h.pendingKey(r)
	if key == "" || !h.flow.HasPendingLogin(r.Context(), key) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	render.JSON(w, r, FlowResponse{Status: StatusTwoFactorRequired})
}

// PostVerify handles POST /auth/2fa/verify
func (h *Handle) PostVerify(w http.ResponseWriter, r *http.Request) {
	var body VerifyRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		h.renderError(w, r, idmerrors.New(idmerrors.ErrCodeInvalidInput, "unable to parse body"))
		return
	}

	result := h.flow.ProcessVerify(r.Context(), h.flowRequest(r, loginflow.Request{
		PendingKey: h.pendingKey(r),
		Code:       body.Code,
	}))

	if result.Success {
		h.clearPendingCookie(w)
	}
	h.renderOutcome(w, r, result)
}

// PostResend handles POST /auth/2fa/resend
func (h *Handle) PostResend(w http.ResponseWriter, r *http.Request) {
	result := h.flow.ProcessResend(r.Context(), h.flowRequest(r, loginflow.Request{
		PendingKey: h.pendingKey(r),
	}))

	if result.ErrorResponse != nil {
		h.renderOutcome(w, r, result)
		return
	}

	render.JSON(w, r, FlowResponse{Status: StatusTwoFactorRequired, Message: "a new code has been sent"})
}

// PostCancel handles POST /auth/2fa/cancel
func (h *Handle) PostCancel(w http.ResponseWriter, r *http.Request) {
	result := h.flow.Cancel(r.Context(), h.flowRequest(r, loginflow.Request{
		PendingKey: h.pendingKey(r),
	}))

	h.clearPendingCookie(w)
	render.JSON(w, r, FlowResponse{Status: StatusSuccess, RedirectTo: result.RedirectTo})
}

func (h *Handle) flowRequest(r *http.Request, req loginflow.Request) loginflow.Request {
	req.IPAddress = ratelimit.ClientIP(r)
	req.UserAgent = r.UserAgent()
	return req
}

func (h *Handle) pendingKey(r *http.Request) string {
	cookie, err := r.Cookie(h.pendingCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handle) setPendingCookie(w http.ResponseWriter, key string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.pendingCookieName,
		Path:     "/",
		Value:    key,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handle) clearPendingCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.pendingCookieName,
		Path:     "/",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
	})
}

// renderOutcome writes the terminal response for a flow result: token
// cookies and redirect on success, a user-visible error otherwise.
func (h *Handle) renderOutcome(w http.ResponseWriter, r *http.Request, result loginflow.Result) {
	if result.ErrorResponse != nil {
		h.renderFlowError(w, r, result.ErrorResponse)
		return
	}
	if !result.Success {
		h.renderError(w, r, idmerrors.Internal("login flow produced no outcome"))
		return
	}

	for name, token := range result.Tokens {
		if err := h.jwtService.SetCookie(w, name, token.Token, token.Expiry); err != nil {
			slog.Error("Failed to set token cookie", "cookie", name, "error", err)
			h.renderError(w, r, idmerrors.Internal("failed to establish session"))
			return
		}
	}

	render.JSON(w, r, FlowResponse{
		Status:     StatusSuccess,
		RedirectTo: result.RedirectTo,
	})
}

func (h *Handle) renderFlowError(w http.ResponseWriter, r *http.Request, flowErr *loginflow.Error) {
	render.Status(r, idmerrors.MapErrorCodeToHTTPStatus(flowErr.Code))
	render.JSON(w, r, FlowResponse{Status: StatusError, Message: flowErr.Message})
}

func (h *Handle) renderError(w http.ResponseWriter, r *http.Request, err *idmerrors.Error) {
	render.Status(r, err.HTTPStatusCode())
	render.JSON(w, r, FlowResponse{Status: StatusError, Message: err.Message})
}
