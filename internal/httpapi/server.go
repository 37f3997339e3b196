package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/dustbooks/dust-server/internal/auth"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/scanner"
	"github.com/dustbooks/dust-server/internal/service"
	"github.com/dustbooks/dust-server/internal/static"
	"github.com/dustbooks/dust-server/internal/store"
)

// Config carries the pieces of internal/config.Config the HTTP layer
// needs, kept narrow so this package doesn't import the config package
// directly.
type Config struct {
	RequestTimeout    time.Duration
	StreamIdleTimeout time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
	DevelopmentErrors bool
	StaticAssetsDir   string
}

// Server wires domain services to chi routes.
type Server struct {
	router *chi.Mux
	log    *logger.Logger
	store  store.Store
	tokens *auth.TokenService

	books     *service.BookService
	authors   *service.AuthorService
	tags      *service.TagService
	progress  *service.ProgressService
	identity  *service.IdentityService
	admin     *service.AdminService
	scanner   *scanner.Scanner
	validator *validator.Validate

	devErrors         bool
	requestTimeout    time.Duration
	streamIdleTimeout time.Duration
}

// Services bundles the domain services a Server dispatches to.
type Services struct {
	Books    *service.BookService
	Authors  *service.AuthorService
	Tags     *service.TagService
	Progress *service.ProgressService
	Identity *service.IdentityService
	Admin    *service.AdminService
	Scanner  *scanner.Scanner
}

// NewServer builds a Server with all routes configured.
func NewServer(st store.Store, tokens *auth.TokenService, svc Services, log *logger.Logger, cfg Config) *Server {
	s := &Server{
		router:            chi.NewRouter(),
		log:               log.Named("http"),
		store:             st,
		tokens:            tokens,
		books:             svc.Books,
		authors:           svc.Authors,
		tags:              svc.Tags,
		progress:          svc.Progress,
		identity:          svc.Identity,
		admin:             svc.Admin,
		scanner:           svc.Scanner,
		validator:         validator.New(),
		devErrors:         cfg.DevelopmentErrors,
		requestTimeout:    cfg.RequestTimeout,
		streamIdleTimeout: cfg.StreamIdleTimeout,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.requestTimeout))
}

func (s *Server) setupRoutes(cfg Config) {
	authLimiter := newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Use(rateLimitMiddleware(authLimiter, s.log))
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})
	s.router.Get("/auth/settings", s.handlePublicAuthSettings)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/profile", s.handleProfile)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.handleListBooks)
			r.Get("/authors", s.handleListAuthors)
			r.Get("/authors/{id}", s.handleGetAuthor)
			r.Get("/by-tag/{tagName}", s.handleBooksByTag)
			r.Get("/{id}", s.handleGetBook)
			r.Get("/{id}/stream", s.handleStreamBook)

			r.Get("/{id}/progress", s.handleGetProgress)
			r.Put("/{id}/progress", s.handleUpdateProgress)
			r.Delete("/{id}/progress", s.handleResetProgress)
			r.Post("/{id}/progress/start", s.handleStartProgress)
			r.Post("/{id}/progress/complete", s.handleCompleteProgress)

			r.Post("/{id}/tags", s.requirePermission("books.manage", s.handleApplyTag))
			r.Delete("/{id}/tags/{tagName}", s.requirePermission("books.manage", s.handleRemoveTag))
			r.Post("/{id}/archive", s.requirePermission("books.manage", s.handleArchiveBook))
			r.Delete("/{id}/archive", s.requirePermission("books.manage", s.handleUnarchiveBook))
			r.Post("/archive/validate", s.requirePermission("books.manage", s.handleValidateArchive))
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.Get("/categories/{category}", s.handleTagsByCategory)
			r.Put("/{tagName}/preference", s.handleSetTagPreference)
		})

		r.Route("/reading", func(r chi.Router) {
			r.Get("/recent", s.handleReadingRecent)
			r.Get("/currently-reading", s.handleCurrentlyReading)
			r.Get("/completed", s.handleReadingCompleted)
			r.Get("/stats", s.handleReadingStats)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requirePermissionMW("users.manage"))
			r.Get("/users", s.handleAdminListUsers)
			r.Get("/users/{id}", s.handleAdminGetUser)
			r.Post("/users/{id}/deactivate", s.handleAdminDeactivateUser)
			r.Post("/users/{id}/reactivate", s.handleAdminReactivateUser)
			r.Put("/users/{id}/roles", s.handleAdminSetUserRoles)

			r.Get("/roles", s.handleAdminListRoles)
			r.Put("/roles/{id}/permissions", s.handleAdminSetRolePermissions)
			r.Get("/permissions", s.handleAdminListPermissions)

			r.Get("/auth-settings", s.handleAdminGetAuthSettings)
			r.Put("/auth-settings", s.handleAdminSetAuthSettings)

			r.Get("/invitations", s.handleAdminListInvitations)
			r.Post("/invitations", s.handleAdminCreateInvitation)
			r.Delete("/invitations/{id}", s.handleAdminRevokeInvitation)
		})
	})

	if cfg.StaticAssetsDir != "" {
		s.router.Mount("/", static.Handler(cfg.StaticAssetsDir))
	}
}

// requirePermissionMW adapts requirePermission to a chi middleware for
// whole sub-routers.
func (s *Server) requirePermissionMW(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return s.requirePermission(permission, next.ServeHTTP)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]string{"status": "ok"}, s.log)
}
