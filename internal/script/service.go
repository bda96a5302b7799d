package script

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fabricahq/fabrica/internal/ai"
	"github.com/fabricahq/fabrica/internal/content"
	"github.com/fabricahq/fabrica/internal/event"
	"github.com/fabricahq/fabrica/internal/prompt"
	"github.com/fabricahq/fabrica/internal/storage"
	"github.com/fabricahq/fabrica/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.Get("ScriptServ")

type (
	// Config controls script generation and the optional video synthesis
	// that follows it.
	Config struct {
		SkipGeneration  bool `yaml:"skip_generation" env:"SKIP_ROTEIRO_GENERATION" env-default:"false"`
		MaxVideosPerRun int  `yaml:"max_videos_per_run" env:"MAX_VIDEOS_PER_RUN" env-default:"0"`
		NumScenes       int  `yaml:"num_scenes" env:"ROTEIRO_NUM_SCENES" env-default:"6" validate:"gte=1"`
		Parallelism     int  `yaml:"parallelism" env:"MAX_WORKERS" env-default:"4" validate:"gte=1"`
	}

	// DataStore is the seam through which this service reads the insights
	// generated by the scrape stage.
	DataStore interface {
		GetInsight(id uuid.UUID) *content.Insight
		Consolidated() string
	}

	videoSynthesizer interface {
		Enabled() bool
		Generate(ctx context.Context, scenePrompts []string) ([]byte, error)
	}

	// scriptService turns newly scraped insights into 30-second video
	// scripts, and optionally renders the scripts into video clips. It is
	// driven by NewInsightEvent dispatches from the scrape stage.
	scriptService struct {
		*sync.Mutex
		taskWg *sync.WaitGroup

		config     Config
		storageCfg storage.Config
		provider   ai.Provider
		store      storage.ArtifactStore
		video      videoSynthesizer
		insights   DataStore
		eventBus   event.EventCoordinator

		tasks         []*ScriptTask
		runningTasks  int
		videosThisRun int

		queueChange chan bool
	}
)

func New(
	config Config,
	storageCfg storage.Config,
	provider ai.Provider,
	store storage.ArtifactStore,
	video videoSynthesizer,
	insights DataStore,
	eventBus event.EventCoordinator,
) (*scriptService, error) {
	if config.Parallelism < 1 {
		return nil, fmt.Errorf("script parallelism must be at least 1, got %d", config.Parallelism)
	}

	return &scriptService{
		Mutex:       &sync.Mutex{},
		taskWg:      &sync.WaitGroup{},
		config:      config,
		storageCfg:  storageCfg,
		provider:    provider,
		store:       store,
		video:       video,
		insights:    insights,
		eventBus:    eventBus,
		tasks:       make([]*ScriptTask, 0),
		queueChange: make(chan bool, 128),
	}, nil
}

// Run is the main entry point for this service. This method will block
// until the provided context is cancelled.
// Note: when the context is cancelled this method will not immediately
// return as it waits for in-flight tasks to finish.
func (service *scriptService) Run(ctx context.Context) error {
	if service.config.SkipGeneration {
		log.Emit(logger.STOP, "Script generation disabled (SKIP_ROTEIRO_GENERATION); service idle\n")
		<-ctx.Done()
		return nil
	}

	if err := service.store.EnsureBucket(ctx, service.storageCfg.ScriptsLocation()); err != nil {
		return err
	}
	if service.video.Enabled() {
		if err := service.store.EnsureBucket(ctx, service.storageCfg.LessonsLocation()); err != nil {
			return err
		}
	}

	eventChannel := make(event.HandlerChannel, 100)
	service.eventBus.RegisterHandlerChannel(eventChannel, event.NewInsightEvent)

	for {
		select {
		case <-service.queueChange:
			service.startWaitingTasks(ctx)
		case message := <-eventChannel:
			if insightID, ok := message.Payload.(uuid.UUID); ok {
				service.queueTaskForInsight(insightID)
			} else {
				log.Emit(logger.ERROR, "failed to extract UUID from %s event (payload %#v)\n", message.Event, message.Payload)
			}
		case <-ctx.Done():
			log.Emit(logger.STOP, "Shutting down (context cancelled). Waiting for script tasks to finish.\n")
			service.taskWg.Wait()
			return nil
		}
	}
}

// AllTasks returns a snapshot of the script tasks known to this service.
func (service *scriptService) AllTasks() []*ScriptTask {
	service.Lock()
	defer service.Unlock()

	tasks := make([]*ScriptTask, len(service.tasks))
	copy(tasks, service.tasks)
	return tasks
}

// Task looks through all the tasks known to this service and returns the
// one with a matching ID, if it can be found. If no such task exists, nil
// is returned.
func (service *scriptService) Task(id uuid.UUID) *ScriptTask {
	service.Lock()
	defer service.Unlock()

	for _, task := range service.tasks {
		if task.id == id {
			return task
		}
	}

	return nil
}

// queueTaskForInsight creates a WAITING task for the insight with the
// given ID, provided the insight is known and no task for it exists yet.
func (service *scriptService) queueTaskForInsight(insightID uuid.UUID) {
	insight := service.insights.GetInsight(insightID)
	if insight == nil {
		log.Emit(logger.ERROR, "No insight found with ID %s; dropping script task\n", insightID)
		return
	}

	service.Lock()
	defer service.Unlock()

	for _, task := range service.tasks {
		if task.insight.ID == insightID {
			return
		}
	}

	task := newScriptTask(insight)
	service.tasks = append(service.tasks, task)
	log.Emit(logger.NEW, "Queued script task for insight '%s'\n", insight.Key)

	service.queueChange <- true
}

// startWaitingTasks promotes WAITING tasks into processing goroutines
// until the parallelism budget is exhausted.
//
// Note: This function takes ownership of the mutex, and releases it when
// returning.
func (service *scriptService) startWaitingTasks(ctx context.Context) {
	service.Lock()
	defer service.Unlock()

	for _, task := range service.tasks {
		if service.runningTasks >= service.config.Parallelism {
			return
		}
		if task.state != WAITING {
			continue
		}

		task.state = GENERATING
		service.runningTasks++
		service.taskWg.Add(1)

		go func(task *ScriptTask) {
			defer func() {
				service.Lock()
				service.runningTasks--
				service.Unlock()

				service.taskWg.Done()
				service.queueChange <- true
			}()

			service.processTask(ctx, task)
		}(task)
	}
}

// processTask generates the script for the tasks insight, persists it, and
// (when enabled and within budget) synthesizes and persists the video.
func (service *scriptService) processTask(ctx context.Context, task *ScriptTask) {
	service.eventBus.Dispatch(event.ScriptUpdateEvent, task.id)

	markdown, err := service.provider.Complete(ctx, prompt.VideoScript(
		task.insight.Markdown,
		service.insights.Consolidated(),
		service.config.NumScenes,
	))
	if err != nil {
		service.failTask(task, fmt.Errorf("script generation failed: %w", err))
		return
	}

	task.scriptKey = scriptKeyFor(task.insight)
	if err := service.store.Put(ctx, service.storageCfg.ScriptsLocation(), task.scriptKey, []byte(markdown), "text/markdown"); err != nil {
		service.failTask(task, fmt.Errorf("failed to persist script: %w", err))
		return
	}

	log.Emit(logger.SUCCESS, "Saved script '%s'\n", task.scriptKey)
	service.eventBus.Dispatch(event.NewScriptEvent, task.id)

	if service.video.Enabled() && service.claimVideoBudget() {
		service.setTaskState(task, SYNTHESIZING)

		if err := service.synthesizeVideo(ctx, task, markdown); err != nil {
			service.failTask(task, err)
			return
		}
	}

	service.setTaskState(task, COMPLETE)
}

// synthesizeVideo renders the script into a video clip and uploads it to
// the lessons bucket. When the script yields no parseable scenes the full
// script text is used as a single prompt.
func (service *scriptService) synthesizeVideo(ctx context.Context, task *ScriptTask, markdown string) error {
	scenes := ParseScenes(markdown)
	scenePrompts := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		if p := scene.Prompt(); p != "" {
			scenePrompts = append(scenePrompts, p)
		}
	}
	if len(scenePrompts) == 0 {
		log.Emit(logger.WARNING, "No scenes parsed from '%s'; using full script as prompt\n", task.scriptKey)
		scenePrompts = []string{fmt.Sprintf("%s: %s", task.insight.Title, content.Truncate(markdown, 1000))}
	}

	log.Emit(logger.INFO, "Synthesizing video for '%s' (%d scenes)\n", task.scriptKey, len(scenePrompts))
	video, err := service.video.Generate(ctx, scenePrompts)
	if err != nil {
		return fmt.Errorf("video synthesis failed: %w", err)
	}

	task.videoKey = strings.TrimSuffix(task.scriptKey, ".md") + ".mp4"
	if err := service.store.Put(ctx, service.storageCfg.LessonsLocation(), task.videoKey, video, "video/mp4"); err != nil {
		return fmt.Errorf("failed to persist video: %w", err)
	}

	log.Emit(logger.SUCCESS, "Uploaded video '%s' (%d bytes)\n", task.videoKey, len(video))
	return nil
}

// claimVideoBudget consumes one slot of the per-run video cap. A cap of
// zero means unlimited.
func (service *scriptService) claimVideoBudget() bool {
	service.Lock()
	defer service.Unlock()

	if service.config.MaxVideosPerRun > 0 && service.videosThisRun >= service.config.MaxVideosPerRun {
		log.Emit(logger.WARNING, "Video budget (%d per run) exhausted; skipping synthesis\n", service.config.MaxVideosPerRun)
		return false
	}

	service.videosThisRun++
	return true
}

func (service *scriptService) setTaskState(task *ScriptTask, state TaskState) {
	service.Lock()
	task.state = state
	service.Unlock()

	service.eventBus.Dispatch(event.ScriptUpdateEvent, task.id)
}

func (service *scriptService) failTask(task *ScriptTask, err error) {
	log.Emit(logger.ERROR, "Task %s TROUBLED: %s\n", task, err.Error())

	service.Lock()
	task.state = TROUBLED
	task.trouble = err
	service.Unlock()

	service.eventBus.Dispatch(event.ScriptUpdateEvent, task.id)
}

// scriptKeyFor derives the script artifact name from the insight title,
// falling back to the insight artifact name when no title is available.
func scriptKeyFor(insight *content.Insight) string {
	if insight.Title != "" {
		if slug := content.Slugify(insight.Title); slug != "" {
			return fmt.Sprintf("roteiro_%s.md", slug)
		}
	}

	return fmt.Sprintf("roteiro_%s.md", strings.TrimSuffix(insight.Key, ".md"))
}
