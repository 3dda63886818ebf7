package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/memovault/memovault/internal/http/middleware"
	"github.com/memovault/memovault/internal/http/response"
	"github.com/memovault/memovault/internal/observability"
	"github.com/memovault/memovault/internal/service"
)

type ShareHandler struct {
	shares *service.ShareService
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

type createShareRequest struct {
	NoteID           string `json:"note_id"`
	BurnAfterRead    bool   `json:"burn_after_read"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	var body createShareRequest
	if err := response.Decode(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	noteID := strings.TrimSpace(body.NoteID)
	if noteID == "" {
		response.Error(w, http.StatusBadRequest, "note_id is required")
		return
	}
	created, err := h.shares.Create(r.Context(), p, noteID, body.BurnAfterRead, body.ExpiresInSeconds)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoteNotFound):
			response.Error(w, http.StatusNotFound, "note not found")
		case errors.Is(err, service.ErrNotOwner):
			response.Error(w, http.StatusForbidden, "not allowed")
		default:
			response.Error(w, http.StatusInternalServerError, "could not create share link")
		}
		return
	}
	observability.Audit(r, "share.created", "code", created.Code, "note_id", noteID, "burn", created.BurnAfterRead)
	response.JSON(w, http.StatusCreated, created)
}

// Resolve serves a shared note to an anonymous visitor, walking the
// link's read-time state machine.
func (h *ShareHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		response.Error(w, http.StatusBadRequest, "share code is required")
		return
	}
	resolved, err := h.shares.Resolve(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrShareNotFound):
			response.Error(w, http.StatusNotFound, "share link not found")
		case errors.Is(err, service.ErrShareGone):
			response.Error(w, http.StatusGone, "share link is no longer available")
		case errors.Is(err, service.ErrShareNoteGone):
			response.Error(w, http.StatusNotFound, "the shared note no longer exists")
		default:
			response.Error(w, http.StatusInternalServerError, "could not resolve share link")
		}
		return
	}
	response.JSON(w, http.StatusOK, resolved)
}

func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	shares, err := h.shares.ListOwned(p)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "could not list share links")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"items": shares})
}

// Revoke retires a link ahead of its expiry. Revocation is monotonic,
// so repeating the call is harmless.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	code := chi.URLParam(r, "code")
	if err := h.shares.Revoke(p, code); err != nil {
		switch {
		case errors.Is(err, service.ErrShareNotFound):
			response.Error(w, http.StatusNotFound, "share link not found")
		case errors.Is(err, service.ErrNotOwner):
			response.Error(w, http.StatusForbidden, "not allowed")
		default:
			response.Error(w, http.StatusInternalServerError, "could not revoke share link")
		}
		return
	}
	observability.Audit(r, "share.revoked", "code", code)
	w.WriteHeader(http.StatusNoContent)
}
