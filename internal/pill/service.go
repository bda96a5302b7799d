package pill

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fabricahq/fabrica/internal/ai"
	"github.com/fabricahq/fabrica/internal/content"
	"github.com/fabricahq/fabrica/internal/event"
	"github.com/fabricahq/fabrica/internal/prompt"
	"github.com/fabricahq/fabrica/internal/script"
	"github.com/fabricahq/fabrica/internal/storage"
	"github.com/fabricahq/fabrica/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.Get("PillServ")

type (
	Config struct {
		SkipGeneration bool `yaml:"skip_generation" env:"SKIP_PILL_GENERATION" env-default:"false"`
		MaxPillsPerRun int  `yaml:"max_pills_per_run" env:"MAX_PILLS_PER_RUN" env-default:"0"`
		Parallelism    int  `yaml:"parallelism" env:"MAX_WORKERS" env-default:"4" validate:"gte=1"`
	}

	imageSynthesizer interface {
		Enabled() bool
		Generate(ctx context.Context, prompt string, aspectRatio string) ([]byte, error)
	}

	// pillService distils each completed insight into a knowledge pill and
	// (when the image client is configured) a matching infographic. Pills
	// that already exist in the target bucket are skipped, so restarting
	// the pipeline does not re-spend generation quota.
	pillService struct {
		*sync.Mutex
		taskWg *sync.WaitGroup

		config     Config
		storageCfg storage.Config
		provider   ai.Provider
		store      storage.ArtifactStore
		image      imageSynthesizer
		insights   script.DataStore
		eventBus   event.EventCoordinator

		pills        []*Pill
		pending      []uuid.UUID
		runningTasks int
		pillsThisRun int

		queueChange chan bool
	}
)

func New(
	config Config,
	storageCfg storage.Config,
	provider ai.Provider,
	store storage.ArtifactStore,
	image imageSynthesizer,
	insights script.DataStore,
	eventBus event.EventCoordinator,
) (*pillService, error) {
	if config.Parallelism < 1 {
		return nil, fmt.Errorf("pill parallelism must be at least 1, got %d", config.Parallelism)
	}

	return &pillService{
		Mutex:       &sync.Mutex{},
		taskWg:      &sync.WaitGroup{},
		config:      config,
		storageCfg:  storageCfg,
		provider:    provider,
		store:       store,
		image:       image,
		insights:    insights,
		eventBus:    eventBus,
		pills:       make([]*Pill, 0),
		pending:     make([]uuid.UUID, 0),
		queueChange: make(chan bool, 128),
	}, nil
}

// Run is the main entry point for this service; it blocks until the
// provided context is cancelled, then waits for in-flight pill tasks to
// finish before returning.
func (service *pillService) Run(ctx context.Context) error {
	if service.config.SkipGeneration {
		log.Emit(logger.STOP, "Pill generation disabled (SKIP_PILL_GENERATION); service idle\n")
		<-ctx.Done()
		return nil
	}

	if err := service.store.EnsureBucket(ctx, service.storageCfg.PillsLocation()); err != nil {
		return err
	}
	if service.image.Enabled() {
		if err := service.store.EnsureBucket(ctx, service.storageCfg.InfographicsLocation()); err != nil {
			return err
		}
	}

	eventChannel := make(event.HandlerChannel, 100)
	service.eventBus.RegisterHandlerChannel(eventChannel, event.NewInsightEvent)

	for {
		select {
		case <-service.queueChange:
			service.startPendingTasks(ctx)
		case message := <-eventChannel:
			if insightID, ok := message.Payload.(uuid.UUID); ok {
				service.queueInsight(insightID)
			} else {
				log.Emit(logger.ERROR, "failed to extract UUID from %s event (payload %#v)\n", message.Event, message.Payload)
			}
		case <-ctx.Done():
			log.Emit(logger.STOP, "Shutting down (context cancelled). Waiting for pill tasks to finish.\n")
			service.taskWg.Wait()
			return nil
		}
	}
}

// AllPills returns a snapshot of the pills generated so far this run.
func (service *pillService) AllPills() []*Pill {
	service.Lock()
	defer service.Unlock()

	pills := make([]*Pill, len(service.pills))
	copy(pills, service.pills)
	return pills
}

func (service *pillService) queueInsight(insightID uuid.UUID) {
	service.Lock()
	defer service.Unlock()

	for _, id := range service.pending {
		if id == insightID {
			return
		}
	}

	service.pending = append(service.pending, insightID)
	service.queueChange <- true
}

// startPendingTasks drains the pending insight queue into processing
// goroutines, bounded by the parallelism budget.
//
// Note: This function takes ownership of the mutex, and releases it when
// returning.
func (service *pillService) startPendingTasks(ctx context.Context) {
	service.Lock()
	defer service.Unlock()

	for len(service.pending) > 0 && service.runningTasks < service.config.Parallelism {
		insightID := service.pending[0]
		service.pending = service.pending[1:]

		service.runningTasks++
		service.taskWg.Add(1)

		go func(insightID uuid.UUID) {
			defer func() {
				service.Lock()
				service.runningTasks--
				service.Unlock()

				service.taskWg.Done()
				service.queueChange <- true
			}()

			if err := service.processInsight(ctx, insightID); err != nil {
				log.Emit(logger.ERROR, "Pill generation for insight %s failed: %s\n", insightID, err.Error())
			}
		}(insightID)
	}
}

// processInsight generates and persists the pill (and its infographic) for
// the insight with the given ID.
func (service *pillService) processInsight(ctx context.Context, insightID uuid.UUID) error {
	insight := service.insights.GetInsight(insightID)
	if insight == nil {
		return fmt.Errorf("no insight found with ID %s", insightID)
	}

	pillKey := pillKeyFor(insight)
	if service.alreadyExists(ctx, pillKey) {
		log.Emit(logger.INFO, "Pill '%s' already exists; skipping\n", pillKey)
		return nil
	}
	if !service.claimPillBudget() {
		return nil
	}

	service.eventBus.Dispatch(event.PillUpdateEvent, insightID)

	title, err := service.provider.Complete(ctx, prompt.PillTitle(insight.Markdown))
	if err != nil {
		return fmt.Errorf("title generation failed: %w", err)
	}
	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))

	shortText, err := service.provider.Complete(ctx, prompt.PillShortText(insight.Markdown, service.insights.Consolidated()))
	if err != nil {
		return fmt.Errorf("short text generation failed: %w", err)
	}
	shortText = strings.TrimSpace(shortText)

	cta, err := service.provider.Complete(ctx, prompt.PillCallToAction(shortText, title))
	if err != nil {
		return fmt.Errorf("call-to-action generation failed: %w", err)
	}

	pill := newPill(insight.Key, title, shortText, strings.TrimSpace(cta))

	if service.image.Enabled() {
		infographicKey := strings.TrimSuffix(strings.Replace(pillKey, "pilula_", "infografico_", 1), ".json") + ".png"
		if err := service.generateInfographic(ctx, pill, infographicKey); err != nil {
			// The pill is still useful without its infographic.
			log.Emit(logger.WARNING, "Infographic for '%s' failed: %s\n", pillKey, err.Error())
		}
	}

	data, err := pill.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal pill: %w", err)
	}
	if err := service.store.Put(ctx, service.storageCfg.PillsLocation(), pillKey, data, "application/json"); err != nil {
		return fmt.Errorf("failed to persist pill: %w", err)
	}

	service.Lock()
	service.pills = append(service.pills, pill)
	service.Unlock()

	log.Emit(logger.SUCCESS, "Saved pill '%s'\n", pillKey)
	service.eventBus.Dispatch(event.NewPillEvent, insightID)
	return nil
}

// generateInfographic renders and persists the pill's infographic, then
// records its filename on the pill document.
func (service *pillService) generateInfographic(ctx context.Context, pill *Pill, key string) error {
	image, err := service.image.Generate(ctx, prompt.Infographic(pill.Title, pill.ShortText), "1:1")
	if err != nil {
		return err
	}

	if err := service.store.Put(ctx, service.storageCfg.InfographicsLocation(), key, image, "image/png"); err != nil {
		return err
	}

	pill.InfographicFilename = key
	log.Emit(logger.SUCCESS, "Saved infographic '%s' (%d bytes)\n", key, len(image))
	return nil
}

// alreadyExists checks the pills bucket for an artifact with the given key.
// Listing failures are treated as 'not found' so a flaky store cannot block
// generation entirely.
func (service *pillService) alreadyExists(ctx context.Context, key string) bool {
	keys, err := service.store.List(ctx, service.storageCfg.PillsLocation())
	if err != nil {
		log.Emit(logger.WARNING, "Failed to list existing pills: %s\n", err.Error())
		return false
	}

	for _, existing := range keys {
		if existing == key {
			return true
		}
	}

	return false
}

// claimPillBudget consumes one slot of the per-run pill cap. A cap of zero
// means unlimited.
func (service *pillService) claimPillBudget() bool {
	service.Lock()
	defer service.Unlock()

	if service.config.MaxPillsPerRun > 0 && service.pillsThisRun >= service.config.MaxPillsPerRun {
		log.Emit(logger.WARNING, "Pill budget (%d per run) exhausted; skipping generation\n", service.config.MaxPillsPerRun)
		return false
	}

	service.pillsThisRun++
	return true
}

// pillKeyFor derives the pill artifact name from the insight title, falling
// back to the insight artifact name when no title is available.
func pillKeyFor(insight *content.Insight) string {
	if insight.Title != "" {
		if slug := content.Slugify(insight.Title); slug != "" {
			return fmt.Sprintf("pilula_%s.json", slug)
		}
	}

	return fmt.Sprintf("pilula_%s.json", strings.TrimSuffix(insight.Key, ".md"))
}
