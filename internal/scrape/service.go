package scrape

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fabricahq/fabrica/internal/ai"
	"github.com/fabricahq/fabrica/internal/content"
	"github.com/fabricahq/fabrica/internal/event"
	"github.com/fabricahq/fabrica/internal/storage"
	"github.com/fabricahq/fabrica/pkg/logger"
	"github.com/fabricahq/fabrica/pkg/worker"
	"github.com/google/uuid"
	"github.com/rjeczalik/notify"
)

var log = logger.Get("ScrapeServ")

type (
	pageExtractor interface {
		Extract(ctx context.Context, url string) (string, error)
	}

	// scrapeService is responsible for turning the source URLs listed in
	// the manifest file into educational insight artifacts. Detected
	// sources are:
	//   - Deduplicated against URLs already known to the service
	//   - Fetched and stripped down to readable text
	//   - Run through the AI provider to produce an insight document
	//   - Persisted under a semantic name derived from the document title
	// Once every known source has settled, a consolidated summary of all
	// successful insights is generated and persisted alongside them.
	scrapeService struct {
		*sync.Mutex
		extractor pageExtractor
		provider  ai.Provider
		store     storage.ArtifactStore
		eventBus  event.EventCoordinator

		config           Config
		storageCfg       storage.Config
		items            []*InsightItem
		workerPool       *worker.WorkerPool
		consolidated     bool
		consolidatedText string

		runCtx context.Context
	}
)

// New creates a new scrape service. The manifest path from the config is
// not required to exist yet; the watcher picks it up on creation.
func New(
	config Config,
	storageCfg storage.Config,
	provider ai.Provider,
	store storage.ArtifactStore,
	eventBus event.EventCoordinator,
) (*scrapeService, error) {
	if config.Parallelism < 1 {
		return nil, fmt.Errorf("scrape parallelism must be at least 1, got %d", config.Parallelism)
	}

	service := &scrapeService{
		Mutex:      &sync.Mutex{},
		extractor:  NewPageExtractor(config.FetchTimeout(), config.PageCacheTTL()),
		provider:   provider,
		store:      store,
		eventBus:   eventBus,
		config:     config,
		storageCfg: storageCfg,
		items:      make([]*InsightItem, 0),
		workerPool: worker.NewWorkerPool(),
	}

	for i := 0; i < config.Parallelism; i++ {
		label := fmt.Sprintf("scrape-worker-%d", i)
		service.workerPool.PushWorker(worker.NewWorker(label, service.ExecuteTask))
	}

	return service, nil
}

// WithExtractor swaps the page extractor used by the service. Intended
// for tests; must be called before Run.
func (service *scrapeService) WithExtractor(extractor pageExtractor) *scrapeService {
	service.extractor = extractor
	return service
}

// Run is the main entry point of this service. It ensures the target
// bucket exists (optionally wiping it first), then watches the source
// manifest and re-discovers sources on file change events as well as on a
// regular force-sync interval.
// To stop the service, cancel the provided context.
func (service *scrapeService) Run(ctx context.Context) error {
	service.runCtx = ctx

	location := service.storageCfg.InsightsLocation()
	if err := service.store.EnsureBucket(ctx, location); err != nil {
		return err
	}
	if service.storageCfg.WipeBeforeStart {
		if err := service.store.Wipe(ctx, location); err != nil {
			return err
		}
	}

	if err := service.workerPool.Start(); err != nil {
		return err
	}
	defer service.workerPool.Close()

	manifestEvents := make(chan notify.EventInfo, 8)
	if err := notify.Watch(service.config.SourceManifest, manifestEvents, notify.Write, notify.Create); err != nil {
		log.Emit(logger.WARNING, "Unable to watch manifest '%s' (%s); relying on force sync only\n", service.config.SourceManifest, err)
	} else {
		defer notify.Stop(manifestEvents)
	}

	forceSync := time.NewTicker(service.config.ForceSyncDuration())
	defer forceSync.Stop()

	service.DiscoverSources()

	for {
		select {
		case <-manifestEvents:
			service.DiscoverSources()
		case <-forceSync.C:
			service.DiscoverSources()
		case <-ctx.Done():
			return nil
		}
	}
}

// ExecuteTask is the worker function for the scrape service, called by the
// services WorkerPool. It claims the first IDLE item it finds and attempts
// to process it. If processing fails with a Trouble, the trouble is set on
// the item and its state moves to TROUBLED.
func (service *scrapeService) ExecuteTask(w worker.Worker) (bool, error) {
	item := service.claimIdleItem()
	if item == nil {
		return false, nil
	}

	service.eventBus.Dispatch(event.InsightUpdateEvent, item.ID)

	if err := item.process(service.runCtx, service.extractor, service.provider, service.store, service.storageCfg.InsightsLocation()); err != nil {
		if trbl, ok := err.(Trouble); ok {
			log.Emit(logger.ERROR, "Item %s TROUBLED: %s\n", item, trbl.Error())
			item.Trouble = &trbl
			item.State = TROUBLED
		} else {
			return false, err
		}
	} else {
		item.State = COMPLETE
		service.eventBus.Dispatch(event.NewInsightEvent, item.ID)
	}

	service.eventBus.Dispatch(event.InsightUpdateEvent, item.ID)
	service.maybeConsolidate()
	return true, nil
}

// DiscoverSources reads the manifest file and enqueues an item for every
// URL not already known to the service.
//
// Note: This function will take ownership of the mutex, and releases it
// when returning.
func (service *scrapeService) DiscoverSources() {
	service.Lock()
	defer service.Unlock()

	urls, err := readSourceManifest(service.config.SourceManifest)
	if err != nil {
		log.Emit(logger.ERROR, "Failed to read source manifest: %s\n", err.Error())
		return
	}
	if len(urls) == 0 {
		log.Emit(logger.WARNING, "No URLs found in manifest '%s'\n", service.config.SourceManifest)
		return
	}

	known := make(map[string]bool, len(service.items))
	for _, item := range service.items {
		known[item.URL] = true
	}

	dirty := false
	for _, url := range urls {
		if known[url] {
			continue
		}

		known[url] = true
		dirty = true
		service.items = append(service.items, &InsightItem{
			ID:    uuid.New(),
			URL:   url,
			Index: len(service.items),
			State: IDLE,
		})
	}

	if dirty {
		// New sources invalidate any previous consolidation pass.
		service.consolidated = false
		log.Emit(logger.INFO, "Discovered sources; %d items now tracked\n", len(service.items))
		service.workerPool.WakeupWorkers()
	}
}

// Item accepts the ID of an insight item and attempts to find it in the
// services state. If it cannot be found, nil is returned.
func (service *scrapeService) Item(id uuid.UUID) *InsightItem {
	service.Lock()
	defer service.Unlock()

	for _, item := range service.items {
		if item.ID == id {
			return item
		}
	}

	return nil
}

// GetInsight returns the insight produced by the item with the given ID.
// Items that have not completed successfully yield nil.
func (service *scrapeService) GetInsight(id uuid.UUID) *content.Insight {
	service.Lock()
	defer service.Unlock()

	for _, item := range service.items {
		if item.ID == id && item.State == COMPLETE {
			return &content.Insight{
				ID:       item.ID,
				Key:      item.ArtifactKey,
				Title:    item.Title,
				Markdown: item.Markdown,
			}
		}
	}

	return nil
}

// Consolidated returns the consolidated summary text, or the empty string
// if no consolidation pass has produced one yet.
func (service *scrapeService) Consolidated() string {
	service.Lock()
	defer service.Unlock()

	return service.consolidatedText
}

// AllItems returns a snapshot of the insight items tracked by this service.
func (service *scrapeService) AllItems() []*InsightItem {
	service.Lock()
	defer service.Unlock()

	items := make([]*InsightItem, len(service.items))
	copy(items, service.items)
	return items
}

// claimIdleItem will try and find an IDLE item in the service, and set its
// state to 'SCRAPING' to prevent another worker from claiming it once the
// mutex lock is released.
//
// Note: This function takes ownership of the mutex, and releases it when
// returning.
func (service *scrapeService) claimIdleItem() *InsightItem {
	service.Lock()
	defer service.Unlock()

	for _, item := range service.items {
		if item.State == IDLE {
			item.State = SCRAPING
			return item
		}
	}

	return nil
}

// readSourceManifest loads the URL list from the manifest file, skipping
// blank lines and '#' comments.
func readSourceManifest(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest '%s': %w", path, err)
	}
	defer file.Close()

	urls := make([]string, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest '%s': %w", path, err)
	}

	return urls, nil
}
