package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/memovault/memovault/internal/http/middleware"
	"github.com/memovault/memovault/internal/http/response"
	"github.com/memovault/memovault/internal/observability"
	"github.com/memovault/memovault/internal/security"
	"github.com/memovault/memovault/internal/service"
)

type AdminHandler struct {
	admin   *service.AdminService
	auth    *service.AuthService
	notes   *service.NoteService
	cleanup *service.CleanupService
}

func NewAdminHandler(admin *service.AdminService, auth *service.AuthService, notes *service.NoteService, cleanup *service.CleanupService) *AdminHandler {
	return &AdminHandler{admin: admin, auth: auth, notes: notes, cleanup: cleanup}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	page, err := h.admin.ListUsers(limit, offset)
	if err != nil {
		response.ErrorDetail(w, http.StatusInternalServerError, "could not list users", err.Error())
		return
	}
	response.JSON(w, http.StatusOK, page)
}

type createUserRequest struct {
	Username string `json:"username"`
	Passcode string `json:"passcode"`
	Role     string `json:"role"`
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body createUserRequest
	if err := response.Decode(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(body.Username)
	passcode := strings.TrimSpace(body.Passcode)
	role := body.Role
	if role == "" {
		role = string(security.RoleUser)
	}
	switch {
	case username == "" || passcode == "":
		response.Error(w, http.StatusBadRequest, "username and passcode are required")
		return
	case len(passcode) < 6:
		response.Error(w, http.StatusBadRequest, "passcode must be at least 6 characters")
		return
	case role != string(security.RoleUser) && role != string(security.RoleAdmin):
		response.Error(w, http.StatusBadRequest, "role must be user or admin")
		return
	}
	if _, err := h.auth.CreateUser(username, passcode, role); err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			response.Error(w, http.StatusConflict, "username already exists")
			return
		}
		response.ErrorDetail(w, http.StatusInternalServerError, "could not create user", err.Error())
		return
	}
	observability.Audit(r, "admin.user.created", "username", username, "role", role)
	response.JSON(w, http.StatusCreated, map[string]any{"ok": true})
}

type updateUserRequest struct {
	Role     *string `json:"role"`
	Passcode *string `json:"passcode"`
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	key := chi.URLParam(r, "id")
	var body updateUserRequest
	if err := response.Decode(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Passcode != nil && len(strings.TrimSpace(*body.Passcode)) < 6 {
		response.Error(w, http.StatusBadRequest, "passcode must be at least 6 characters")
		return
	}
	err := h.admin.UpdateUser(p, key, service.UserPatch{Role: body.Role, Passcode: body.Passcode})
	if err != nil {
		writeAdminUserError(w, err)
		return
	}
	observability.Audit(r, "admin.user.updated", "target", key)
	response.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	key := chi.URLParam(r, "id")
	if err := h.admin.DeleteUser(p, key); err != nil {
		writeAdminUserError(w, err)
		return
	}
	observability.Audit(r, "admin.user.deleted", "target", key)
	response.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *AdminHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	rows, err := h.notes.ListAll(0)
	if err != nil {
		response.ErrorDetail(w, http.StatusInternalServerError, "could not list notes", err.Error())
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"notes": rows})
}

// TriggerCleanup runs the share sweep on demand and returns the report
// verbatim, mainly for observability and tests.
func (h *AdminHandler) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1" || r.URL.Query().Get("force") == "true"
	report := h.cleanup.RunIfDue(r.Context(), force)
	observability.Audit(r, "admin.cleanup.triggered", "force", force, "ran", report.Ran)
	response.JSON(w, http.StatusOK, map[string]any{"ok": true, "result": report})
}

func writeAdminUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.Error(w, http.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrNoUserChanges):
		response.Error(w, http.StatusBadRequest, "no changes requested")
	case errors.Is(err, service.ErrInvalidRole):
		response.Error(w, http.StatusBadRequest, "role must be user or admin")
	case errors.Is(err, service.ErrSelfDemotion):
		response.Error(w, http.StatusBadRequest, "cannot demote your own admin role")
	case errors.Is(err, service.ErrSelfDeletion):
		response.Error(w, http.StatusBadRequest, "cannot delete your own account")
	case errors.Is(err, service.ErrLastAdmin):
		response.Error(w, http.StatusBadRequest, "cannot remove the last admin")
	default:
		response.ErrorDetail(w, http.StatusInternalServerError, "user update failed", err.Error())
	}
}
