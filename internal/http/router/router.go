package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/memovault/memovault/internal/http/handler"
	"github.com/memovault/memovault/internal/http/middleware"
	"github.com/memovault/memovault/internal/http/response"
	"github.com/memovault/memovault/internal/security"
)

type Dependencies struct {
	Logger       *slog.Logger
	TokenCodec   *security.TokenCodec
	AuthHandler  *handler.AuthHandler
	NoteHandler  *handler.NoteHandler
	ShareHandler *handler.ShareHandler
	AdminHandler *handler.AdminHandler
	Sweeper      middleware.Sweeper

	EnableOTelHTTP bool
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(dep.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.BodyLimit(1 << 20))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Principal(dep.TokenCodec))
		// Opportunistic maintenance rides on API traffic; static assets
		// and health checks never pay for it.
		r.Use(middleware.CleanupTrigger(dep.Sweeper))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.Route("/guest", func(r chi.Router) {
				r.With(middleware.RequireRole(security.RoleGuest)).Post("/code", dep.AuthHandler.TransferCode)
				r.With(middleware.RequireRole(security.RoleGuest)).Post("/upgrade", dep.AuthHandler.Upgrade)
				r.Post("/recover", dep.AuthHandler.Recover)
			})
		})

		r.Get("/me", dep.AuthHandler.Me)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/notes", dep.NoteHandler.List)
			r.Post("/notes", dep.NoteHandler.Create)
			r.Get("/notes/{id}", dep.NoteHandler.Get)
			r.Put("/notes/{id}", dep.NoteHandler.Update)
			r.Delete("/notes/{id}", dep.NoteHandler.Delete)

			r.Post("/share/create", dep.ShareHandler.Create)
			r.Get("/shares", dep.ShareHandler.List)
			r.Delete("/shares/{code}", dep.ShareHandler.Revoke)
		})

		// Public: share links are exactly the grant of anonymous read
		// access.
		r.Get("/share/{code}", dep.ShareHandler.Resolve)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(security.RoleAdmin))
			r.Get("/users", dep.AdminHandler.ListUsers)
			r.Post("/users", dep.AdminHandler.CreateUser)
			r.Patch("/users/{id}", dep.AdminHandler.UpdateUser)
			r.Delete("/users/{id}", dep.AdminHandler.DeleteUser)
			r.Get("/notes", dep.AdminHandler.ListNotes)
			r.Post("/shares/cleanup", dep.AdminHandler.TriggerCleanup)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
