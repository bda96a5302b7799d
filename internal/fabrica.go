package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/fabricahq/fabrica/internal/ai"
	"github.com/fabricahq/fabrica/internal/api"
	"github.com/fabricahq/fabrica/internal/content"
	"github.com/fabricahq/fabrica/internal/event"
	"github.com/fabricahq/fabrica/internal/http/imagen"
	"github.com/fabricahq/fabrica/internal/http/veo"
	"github.com/fabricahq/fabrica/internal/pill"
	"github.com/fabricahq/fabrica/internal/scrape"
	"github.com/fabricahq/fabrica/internal/script"
	"github.com/fabricahq/fabrica/internal/storage"
	"github.com/fabricahq/fabrica/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	InsightService interface {
		RunnableService
		Item(uuid.UUID) *scrape.InsightItem
		AllItems() []*scrape.InsightItem
		GetInsight(uuid.UUID) *content.Insight
		Consolidated() string
	}

	ScriptService interface {
		RunnableService
		Task(uuid.UUID) *script.ScriptTask
		AllTasks() []*script.ScriptTask
	}

	PillService interface {
		RunnableService
		AllPills() []*pill.Pill
	}
)

// fabricaImpl represents the top-level object for the pipeline, and is
// responsible for initialising the artifact store, the AI provider, the
// media synthesis clients, the services, and the event handling between
// them.
type fabricaImpl struct {
	eventBus event.EventCoordinator
	config   FabricaConfig

	store storage.ArtifactStore

	restGateway   RunnableService
	scrapeService InsightService
	scriptService ScriptService
	pillService   PillService
}

func New(ctx context.Context, config FabricaConfig) (*fabricaImpl, error) {
	log.Emit(logger.DEBUG, "Bootstrapping Fabrica services using config: %#v\n", config)
	fabrica := &fabricaImpl{
		eventBus: event.New(),
		config:   config,
	}

	store, err := storage.New(config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to construct artifact store: %w", err)
	}
	fabrica.store = store

	provider, err := ai.New(ctx, config.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to construct AI provider: %w", err)
	}

	scrapeService, err := scrape.New(config.Scrape, config.Storage, provider, store, fabrica.eventBus)
	if err != nil {
		return nil, fmt.Errorf("failed to construct scrape service: %w", err)
	}
	fabrica.scrapeService = scrapeService

	// The media synthesis clients fall back to the Gemini key so a single
	// GEMINI_API_KEY configures text, video and image generation at once.
	veoConfig := config.Veo
	if veoConfig.APIKey == "" {
		veoConfig.APIKey = config.AI.GeminiKey
	}
	imagenConfig := config.Imagen
	if imagenConfig.APIKey == "" {
		imagenConfig.APIKey = config.AI.GeminiKey
	}

	scriptService, err := script.New(
		config.Script, config.Storage, provider, store,
		veo.NewClient(veoConfig), scrapeService, fabrica.eventBus,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to construct script service: %w", err)
	}
	fabrica.scriptService = scriptService

	pillService, err := pill.New(
		config.Pill, config.Storage, provider, store,
		imagen.NewClient(imagenConfig), scrapeService, fabrica.eventBus,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to construct pill service: %w", err)
	}
	fabrica.pillService = pillService

	fabrica.restGateway = api.NewRestGateway(&config.Rest, scrapeService, scriptService, pillService)

	return fabrica, nil
}

// Run will start all of Fabrica by bringing up the pipeline services and
// the REST gateway.
//
// This function will not return until Fabrica is stopped. To stop Fabrica,
// the provided context must be cancelled. Errors from which Fabrica cannot
// recover will also cause it to stop.
func (fabrica *fabricaImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	wg := &sync.WaitGroup{}
	fabrica.spawnAsyncService(ctx, wg, fabrica.scrapeService, "scrape-service", crashHandler)
	fabrica.spawnAsyncService(ctx, wg, fabrica.scriptService, "script-service", crashHandler)
	fabrica.spawnAsyncService(ctx, wg, fabrica.pillService, "pill-service", crashHandler)
	fabrica.spawnAsyncService(ctx, wg, fabrica.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Fabrica services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided function/service as its own
// go-routine, ensuring that the Fabrica service waitgroup is updated
// correctly.
func (fabrica *fabricaImpl) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
