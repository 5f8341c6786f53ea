// Package enrichment provides the enrichment bounded context: the batch
// orchestrator and its HTTP surface.
package enrichment

import (
	"venue_enrichment_backend/internal/adapters/storage"
	"venue_enrichment_backend/internal/content"
	"venue_enrichment_backend/internal/enrichment/handler"
	"venue_enrichment_backend/internal/enrichment/repository"
	"venue_enrichment_backend/internal/enrichment/service"
	apphttp "venue_enrichment_backend/internal/http"
	listingsrepo "venue_enrichment_backend/internal/listings/repository"
	"venue_enrichment_backend/internal/photos"
	"venue_enrichment_backend/internal/verification"
	"venue_enrichment_backend/platform/ai/llm"
	"venue_enrichment_backend/platform/config"
	"venue_enrichment_backend/platform/logger"
	"venue_enrichment_backend/platform/validator"
)

// Config is everything the pipeline reads from configuration.
type Config interface {
	config.AIConfig
	config.PhotoConfig
	config.EnrichmentConfig
	config.StorageConfig
}

// Deps are the module's collaborators. Store, Queue and Progress are
// optional.
type Deps struct {
	Listings  *listingsrepo.Repository
	Generator llm.Generator
	Validator *validator.Validator
	Store     storage.ObjectStore
	Queue     handler.BatchQueue
	Progress  *repository.ProgressStore
	Config    Config
	Log       *logger.Logger
}

// Module is the enrichment bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewService wires the orchestrator with its stages. It is shared by the API
// and the batch worker.
func NewService(d Deps) *service.Service {
	resolver := llm.NewResolver(d.Log)
	verifier := verification.New(d.Generator, resolver, d.Config.GetVerificationModels(), d.Validator, d.Log)
	writer := content.New(d.Generator, resolver, d.Config.GetContentModels(), d.Validator, d.Log)

	var photoStage service.Photos
	if d.Store != nil {
		photoStage = photos.New(photos.NewFetcher(d.Config), d.Store, photos.Options{
			ExcludeTokens: d.Config.GetPhotoExcludeTokens(),
			MaxBytes:      d.Config.GetStorageMaxFileSize(),
		}, d.Log)
	}

	costs := service.Costs{Text: d.Config.GetEnrichTextCost(), Photo: d.Config.GetEnrichPhotoCost()}
	pacer := service.NewPacer(d.Config.GetEnrichRequestsPerMinute(), max(costs.Text, costs.Photo))

	return service.New(d.Listings, verifier, writer, photoStage, pacer, costs, d.Log)
}

// NewModule creates and initializes the enrichment module.
func NewModule(d Deps) *Module {
	svc := NewService(d)

	var progress handler.ProgressStore
	if d.Progress != nil {
		progress = d.Progress
	}

	return &Module{
		handler: handler.New(svc, d.Queue, progress, d.Validator, d.Config.GetEnrichWithPhotos()),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "enrichment"
}

// Service returns the orchestrator.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts enrichment routes. All of them require the admin key.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.POST("/enrichment/listings/:id", m.handler.EnrichListing)
	ctx.Admin.POST("/enrichment/batches", m.handler.StartBatch)
	ctx.Admin.GET("/enrichment/batches/:id", m.handler.GetBatch)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
