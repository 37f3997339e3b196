// Package di assembles the dependency graph with samber/do/v2:
// config, logger, store, auth, scheduler, domain services, and the HTTP
// server, each as a constructor-based provider.
package di

import (
	"context"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/dustbooks/dust-server/internal/auth"
	"github.com/dustbooks/dust-server/internal/config"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/httpapi"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/metadata"
	"github.com/dustbooks/dust-server/internal/scanner"
	"github.com/dustbooks/dust-server/internal/scheduler"
	"github.com/dustbooks/dust-server/internal/service"
	"github.com/dustbooks/dust-server/internal/store"
	"github.com/dustbooks/dust-server/internal/store/sqlite"
)

// defaultGenreRules seeds the indexer's substring-based auto-tagging:
// filename/path substrings mapped to tag names. None of these names is in
// the seeded tag catalog, so a rule only tags books once a tag with that
// name has been created.
func defaultGenreRules() []domain.GenreRule {
	return []domain.GenreRule{
		{Substring: "comic", TagName: "comic"},
		{Substring: "manga", TagName: "manga"},
		{Substring: "graphic novel", TagName: "graphic-novel"},
	}
}

// ProvideConfig loads and validates configuration from flags/env.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load()
}

// ProvideLogger builds the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return logger.NewForEnvironment(cfg.Environment, logger.ParseLevel(cfg.LogLevel)), nil
}

// StoreHandle wraps the sqlite store with Shutdownable.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error { return h.Close() }

// ProvideStore opens the sqlite-backed store and runs pending migrations.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	st, err := sqlite.Open(cfg.DatabasePath, log)
	if err != nil {
		return nil, err
	}
	return &StoreHandle{Store: st}, nil
}

// ProvideTokenService builds the JWT session-token issuer/verifier.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return auth.NewTokenService(cfg.JWTSecret, 24*time.Hour)
}

// ProvideEnricher builds the ISBN metadata enrichment client, falling back
// to a no-op when no API key is configured.
func ProvideEnricher(i do.Injector) (metadata.Enricher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.GoogleBooksAPIKey == "" {
		return metadata.NullEnricher{}, nil
	}
	return metadata.NewGoogleBooksClient(cfg.GoogleBooksAPIKey, cfg.ExternalMetadataUserAgent), nil
}

// ProvideScanner builds the indexer.
func ProvideScanner(i do.Injector) (*scanner.Scanner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	enricher := do.MustInvoke[metadata.Enricher](i)

	retention := time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour
	return scanner.New(storeHandle.Store, log, enricher, cfg.LibraryDirectories, defaultGenreRules(), retention), nil
}

// ProvideScheduler wires the periodic scan and archive-reconciliation
// tasks into the generalized Task scheduler.
func ProvideScheduler(i do.Injector) (*scheduler.Scheduler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sc := do.MustInvoke[*scanner.Scanner](i)

	tasks := []scheduler.Task{
		{
			Name:       "library_scan",
			Interval:   cfg.ScanInterval,
			RunOnStart: true,
			Run:        sc.Scan,
		},
		{
			Name:       "archive_reconciliation",
			Interval:   cfg.CleanupInterval,
			RunOnStart: false,
			Run:        sc.ReconcileArchive,
		},
	}
	return scheduler.New(log, tasks), nil
}

// ProvideBookService builds the book catalog and streaming service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	enricher := do.MustInvoke[metadata.Enricher](i)
	return service.NewBookService(storeHandle.Store, log, enricher, cfg.LibraryDirectories), nil
}

// ProvideAuthorService builds the author listing service.
func ProvideAuthorService(i do.Injector) (*service.AuthorService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewAuthorService(storeHandle.Store, log), nil
}

// ProvideTagService builds the tag and preference service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewTagService(storeHandle.Store, log), nil
}

// ProvideProgressService builds the reading-progress service.
func ProvideProgressService(i do.Injector) (*service.ProgressService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewProgressService(storeHandle.Store, log), nil
}

// ProvideIdentityService builds the registration/login/invitation service.
func ProvideIdentityService(i do.Injector) (*service.IdentityService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	return service.NewIdentityService(storeHandle.Store, log, tokens, cfg.JWTSecret), nil
}

// ProvideAdminService builds the administrative operations service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewAdminService(storeHandle.Store, log), nil
}

// shutdownTimeout bounds how long the HTTP server waits to drain
// in-flight requests during Shutdown.
const shutdownTimeout = 30 * time.Second

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer assembles all domain services into the HTTP handler,
// binds it to an *http.Server, and starts serving in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	tokens := do.MustInvoke[*auth.TokenService](i)

	books := do.MustInvoke[*service.BookService](i)
	authors := do.MustInvoke[*service.AuthorService](i)
	tags := do.MustInvoke[*service.TagService](i)
	progress := do.MustInvoke[*service.ProgressService](i)
	identity := do.MustInvoke[*service.IdentityService](i)
	admin := do.MustInvoke[*service.AdminService](i)
	sc := do.MustInvoke[*scanner.Scanner](i)

	handler := httpapi.NewServer(storeHandle.Store, tokens, httpapi.Services{
		Books:    books,
		Authors:  authors,
		Tags:     tags,
		Progress: progress,
		Identity: identity,
		Admin:    admin,
		Scanner:  sc,
	}, log, httpapi.Config{
		RequestTimeout:    cfg.RequestTimeout,
		StreamIdleTimeout: cfg.StreamIdleTimeout,
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
		DevelopmentErrors: cfg.DevelopmentErrors,
		StaticAssetsDir:   cfg.StaticAssetsDir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	go func() {
		log.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}

// SchedulerHandle wraps scheduler.Scheduler with Shutdownable, starting
// its tasks as soon as the injector resolves it.
type SchedulerHandle struct {
	*scheduler.Scheduler
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideSchedulerHandle starts the scheduler and wraps it for lifecycle
// management, distinct from ProvideScheduler which only constructs it.
func ProvideSchedulerHandle(i do.Injector) (*SchedulerHandle, error) {
	sch := do.MustInvoke[*scheduler.Scheduler](i)
	sch.Start(context.Background())
	return &SchedulerHandle{Scheduler: sch}, nil
}

// NewInjector builds the full provider graph.
func NewInjector() *do.RootScope {
	i := do.New()

	do.Provide(i, ProvideConfig)
	do.Provide(i, ProvideLogger)
	do.Provide(i, ProvideStore)
	do.Provide(i, ProvideTokenService)
	do.Provide(i, ProvideEnricher)
	do.Provide(i, ProvideScanner)
	do.Provide(i, ProvideScheduler)
	do.Provide(i, ProvideSchedulerHandle)
	do.Provide(i, ProvideBookService)
	do.Provide(i, ProvideAuthorService)
	do.Provide(i, ProvideTagService)
	do.Provide(i, ProvideProgressService)
	do.Provide(i, ProvideIdentityService)
	do.Provide(i, ProvideAdminService)
	do.Provide(i, ProvideHTTPServer)

	return i
}

// Bootstrap triggers eager initialization of every long-lived service in
// dependency order, so that failures surface at startup rather than on
// the first request.
func Bootstrap(i *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](i); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](i); err != nil {
		return err
	}
	if _, err := do.Invoke[*StoreHandle](i); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.TokenService](i); err != nil {
		return err
	}
	if _, err := do.Invoke[*scanner.Scanner](i); err != nil {
		return err
	}
	if _, err := do.Invoke[*SchedulerHandle](i); err != nil {
		return err
	}
	if _, err := do.Invoke[*HTTPServerHandle](i); err != nil {
		return err
	}
	return nil
}
