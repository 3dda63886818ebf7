package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/memovault/memovault/internal/domain"
	"github.com/memovault/memovault/internal/http/middleware"
	"github.com/memovault/memovault/internal/http/response"
	"github.com/memovault/memovault/internal/security"
	"github.com/memovault/memovault/internal/service"
)

type NoteHandler struct {
	notes *service.NoteService
}

func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	search := strings.TrimSpace(q.Get("q"))
	filter := strings.TrimSpace(q.Get("filter"))
	sort := strings.TrimSpace(q.Get("sort"))

	var (
		items []service.NoteView
		err   error
	)
	if owner := q.Get("owner"); owner != "" && p.Role == security.RoleAdmin {
		ownerType := domain.OwnerTypeUser
		if strings.HasPrefix(owner, "guest:") {
			ownerType = domain.OwnerTypeGuest
		}
		items, err = h.notes.ListForOwner(ownerType, owner, search, filter, sort)
	} else {
		items, err = h.notes.List(p, search, filter, sort)
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "could not list notes")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	var in service.NoteInput
	if err := response.Decode(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.notes.Create(p, in)
	if err != nil {
		if errors.Is(err, service.ErrEmptyNote) {
			response.Error(w, http.StatusBadRequest, "title or body is required")
			return
		}
		response.Error(w, http.StatusInternalServerError, "could not create note")
		return
	}
	response.JSON(w, http.StatusCreated, map[string]any{"item": item})
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	item, err := h.notes.Get(p, chi.URLParam(r, "id"))
	if err != nil {
		writeNoteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"item": item})
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	var in service.NoteInput
	if err := response.Decode(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.notes.Update(p, chi.URLParam(r, "id"), in)
	if err != nil {
		if errors.Is(err, service.ErrEmptyNote) {
			response.Error(w, http.StatusBadRequest, "title or body is required")
			return
		}
		writeNoteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"item": item})
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if err := h.notes.Delete(p, chi.URLParam(r, "id")); err != nil {
		writeNoteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeNoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoteNotFound):
		response.Error(w, http.StatusNotFound, "note not found")
	case errors.Is(err, service.ErrNotOwner):
		response.Error(w, http.StatusForbidden, "not allowed")
	default:
		response.Error(w, http.StatusInternalServerError, "storage failure")
	}
}
