package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/memovault/memovault/internal/http/middleware"
	"github.com/memovault/memovault/internal/http/response"
	"github.com/memovault/memovault/internal/observability"
	"github.com/memovault/memovault/internal/security"
	"github.com/memovault/memovault/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Mode     string `json:"mode"`
	Username string `json:"username"`
	Passcode string `json:"passcode"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := response.Decode(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if body.Mode == "guest" {
		sess, err := h.auth.LoginGuest(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "could not start guest session")
			return
		}
		h.setSession(w, r, sess)
		observability.Audit(r, "auth.login", "mode", "guest")
		response.JSON(w, http.StatusOK, map[string]any{"ok": true, "role": sess.Role})
		return
	}

	username := strings.TrimSpace(body.Username)
	passcode := strings.TrimSpace(body.Passcode)
	if username == "" || passcode == "" {
		response.Error(w, http.StatusBadRequest, "username and passcode are required")
		return
	}
	sess, err := h.auth.LoginUser(r.Context(), username, passcode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(w, http.StatusUnauthorized, "unknown username or wrong passcode")
			return
		}
		response.Error(w, http.StatusInternalServerError, "login failed")
		return
	}
	h.setSession(w, r, sess)
	observability.Audit(r, "auth.login", "mode", "user", "subject", sess.Subject)
	response.JSON(w, http.StatusOK, map[string]any{"ok": true, "role": sess.Role, "username": sess.Username})
}

// Logout clears the client cookie. The token itself stays
// cryptographically valid until its embedded expiry; the server keeps
// no revocation list.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, security.ClearSessionCookie(r.TLS != nil))
	response.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if !p.Authenticated {
		response.JSON(w, http.StatusOK, map[string]any{"authenticated": false, "role": security.RoleNone})
		return
	}
	body := map[string]any{"authenticated": true, "id": p.ID, "role": p.Role}
	if p.Username != "" {
		body["username"] = p.Username
	}
	response.JSON(w, http.StatusOK, body)
}

// TransferCode hands the guest a short-lived single-use code so another
// device can recover the same subject.
func (h *AuthHandler) TransferCode(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	code, err := h.auth.IssueTransferCode(p)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "could not issue transfer code")
		return
	}
	response.JSON(w, http.StatusOK, code)
}

type recoverRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var body recoverRequest
	if err := response.Decode(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		response.Error(w, http.StatusBadRequest, "recovery code is required")
		return
	}
	sess, err := h.auth.RecoverGuest(code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			response.Error(w, http.StatusNotFound, "recovery code not found")
		case errors.Is(err, service.ErrCodeUsed):
			response.Error(w, http.StatusGone, "recovery code already used")
		case errors.Is(err, service.ErrCodeExpired):
			response.Error(w, http.StatusGone, "recovery code expired")
		default:
			response.Error(w, http.StatusInternalServerError, "recovery failed")
		}
		return
	}
	h.setSession(w, r, sess)
	observability.Audit(r, "auth.guest.recovered", "subject", sess.Subject)
	response.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

type upgradeRequest struct {
	Username string `json:"username"`
	Passcode string `json:"passcode"`
}

func (h *AuthHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	var body upgradeRequest
	if err := response.Decode(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(body.Username)
	passcode := strings.TrimSpace(body.Passcode)
	if username == "" || passcode == "" {
		response.Error(w, http.StatusBadRequest, "username and passcode are required")
		return
	}
	if len(passcode) < 6 {
		response.Error(w, http.StatusBadRequest, "passcode must be at least 6 characters")
		return
	}
	sess, err := h.auth.UpgradeGuest(p, username, passcode)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			response.Error(w, http.StatusConflict, "username already exists")
			return
		}
		response.Error(w, http.StatusInternalServerError, "upgrade failed")
		return
	}
	h.setSession(w, r, sess)
	observability.Audit(r, "auth.guest.upgraded", "subject", sess.Subject)
	response.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *AuthHandler) setSession(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	http.SetCookie(w, security.SessionCookie(sess.Token, r.TLS != nil))
}
