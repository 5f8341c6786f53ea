// Package listings provides the listings bounded context module.
package listings

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "venue_enrichment_backend/internal/http"
	"venue_enrichment_backend/internal/listings/handler"
	"venue_enrichment_backend/internal/listings/repository"
	"venue_enrichment_backend/internal/listings/service"
	"venue_enrichment_backend/platform/config"
	"venue_enrichment_backend/platform/db"
	"venue_enrichment_backend/platform/logger"
	"venue_enrichment_backend/platform/validator"
)

// Module is the listings bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewRepository wires the resilient data access layer: the REST front-end when
// configured, with the direct GORM path behind it.
func NewRepository(pool *pgxpool.Pool, cfg config.RESTConfig, log *logger.Logger) (*repository.Repository, error) {
	direct, err := repository.OpenDirect(db.SQLDB(pool))
	if err != nil {
		return nil, err
	}

	var primary repository.Store
	if cfg.GetRESTURL() != "" {
		primary = repository.NewRESTStore(cfg)
		log.Info("listings data path", "primary", "rest", "secondary", direct.Name())
	} else {
		log.Info("listings data path", "primary", direct.Name())
	}

	return repository.New(primary, direct, log), nil
}

// NewModule creates and initializes the listings module.
func NewModule(repo *repository.Repository, val *validator.Validator) *Module {
	svc := service.New(repo, val)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "listings"
}

// Repository returns the repository for the enrichment module.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts listing routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/listings", m.handler.List)
	ctx.V1.GET("/listings/:slug", m.handler.GetBySlug)

	ctx.Admin.POST("/listings", m.handler.Create)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
