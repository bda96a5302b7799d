// service_test ensures that new-insight events are turned into persisted
// script artifacts, and into rendered videos when a synthesizer is
// available. Generation and synthesis are faked; persistence runs against
// a real local store in a temporary directory.
package script_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fabricahq/fabrica/internal/content"
	"github.com/fabricahq/fabrica/internal/event"
	"github.com/fabricahq/fabrica/internal/script"
	"github.com/fabricahq/fabrica/internal/storage"
	"github.com/fabricahq/fabrica/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

type (
	fakeInsightStore struct {
		insights map[uuid.UUID]*content.Insight
	}

	fakeScriptProvider struct {
		err error
	}

	fakeSynthesizer struct {
		mu      sync.Mutex
		enabled bool
		calls   int
	}
)

func (store *fakeInsightStore) GetInsight(id uuid.UUID) *content.Insight {
	return store.insights[id]
}

func (store *fakeInsightStore) Consolidated() string { return "" }

func (provider *fakeScriptProvider) Complete(_ context.Context, _ string) (string, error) {
	if provider.err != nil {
		return "", provider.err
	}

	return `# Roteiro para Vídeo de 30 Segundos

## Cenário 1 (0-15 segundos)
- Descrição visual: Uma senhora no sofá com o celular
- Locução: "Cuidado com mensagens falsas."

## Cenário 2 (15-30 segundos)
- Descrição visual: Close no botão de bloquear contato
- Locução: "Bloqueie e denuncie."
`, nil
}

func (synth *fakeSynthesizer) Enabled() bool { return synth.enabled }

func (synth *fakeSynthesizer) Generate(_ context.Context, scenePrompts []string) ([]byte, error) {
	synth.mu.Lock()
	defer synth.mu.Unlock()
	synth.calls++

	if len(scenePrompts) == 0 {
		return nil, errors.New("no scene prompts provided")
	}

	return []byte("mp4-bytes"), nil
}

type Service interface {
	AllTasks() []*script.ScriptTask
	Task(id uuid.UUID) *script.ScriptTask
}

func startService(t *testing.T, config script.Config, storageCfg storage.Config, provider *fakeScriptProvider, synth *fakeSynthesizer, insights *fakeInsightStore, eventBus event.EventCoordinator) Service {
	store, err := storage.New(storageCfg)
	require.Nil(t, err)

	service, err := script.New(config, storageCfg, provider, store, synth, insights, eventBus)
	require.Nil(t, err)

	wg := sync.WaitGroup{}
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer wg.Done()
		assert.Nil(t, service.Run(ctx))
	}()

	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	return service
}

func waitForSettledTasks(t *testing.T, service Service, expected int) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		tasks := service.AllTasks()
		if len(tasks) == expected {
			settled := true
			for _, task := range tasks {
				if task.State() != script.COMPLETE && task.State() != script.TROUBLED {
					settled = false
					break
				}
			}
			if settled {
				return
			}
		}

		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %d script tasks to settle", expected)
}

func defaultConfig() script.Config {
	return script.Config{NumScenes: 2, Parallelism: 2}
}

func Test_ScriptService_GeneratesScriptForNewInsight(t *testing.T) {
	localRoot := t.TempDir()
	storageCfg := storage.Config{UseObjectStore: false, LocalRoot: localRoot, LocalScripts: "roteiros", LocalLessons: "aulas"}

	insightID := uuid.New()
	insights := &fakeInsightStore{insights: map[uuid.UUID]*content.Insight{
		insightID: {ID: insightID, Key: "topico_golpes.md", Title: "Golpes no WhatsApp", Markdown: "# Golpes no WhatsApp\n\nConteudo"},
	}}

	eventBus := event.New()
	service := startService(t, defaultConfig(), storageCfg, &fakeScriptProvider{}, &fakeSynthesizer{enabled: false}, insights, eventBus)

	// Give the service time to register its event channel before dispatching.
	time.Sleep(100 * time.Millisecond)
	eventBus.Dispatch(event.NewInsightEvent, insightID)

	waitForSettledTasks(t, service, 1)

	task := service.AllTasks()[0]
	assert.Equal(t, script.COMPLETE, task.State())
	assert.Equal(t, "roteiro_golpes_no_whatsapp.md", task.ScriptKey())
	assert.Empty(t, task.VideoKey())

	data, err := os.ReadFile(filepath.Join(localRoot, "roteiros", "roteiro_golpes_no_whatsapp.md"))
	require.Nil(t, err)
	assert.Contains(t, string(data), "Cenário 1")
}

func Test_ScriptService_SynthesizesVideoWhenEnabled(t *testing.T) {
	localRoot := t.TempDir()
	storageCfg := storage.Config{UseObjectStore: false, LocalRoot: localRoot, LocalScripts: "roteiros", LocalLessons: "aulas"}

	insightID := uuid.New()
	insights := &fakeInsightStore{insights: map[uuid.UUID]*content.Insight{
		insightID: {ID: insightID, Key: "topico_golpes.md", Title: "Golpes", Markdown: "# Golpes\n\nConteudo"},
	}}

	eventBus := event.New()
	synth := &fakeSynthesizer{enabled: true}
	service := startService(t, defaultConfig(), storageCfg, &fakeScriptProvider{}, synth, insights, eventBus)

	time.Sleep(100 * time.Millisecond)
	eventBus.Dispatch(event.NewInsightEvent, insightID)

	waitForSettledTasks(t, service, 1)

	task := service.AllTasks()[0]
	assert.Equal(t, script.COMPLETE, task.State())
	assert.Equal(t, "roteiro_golpes.mp4", task.VideoKey())

	data, err := os.ReadFile(filepath.Join(localRoot, "aulas", "roteiro_golpes.mp4"))
	require.Nil(t, err)
	assert.Equal(t, "mp4-bytes", string(data))
}

func Test_ScriptService_VideoBudgetLimitsSynthesis(t *testing.T) {
	localRoot := t.TempDir()
	storageCfg := storage.Config{UseObjectStore: false, LocalRoot: localRoot, LocalScripts: "roteiros", LocalLessons: "aulas"}

	first, second := uuid.New(), uuid.New()
	insights := &fakeInsightStore{insights: map[uuid.UUID]*content.Insight{
		first:  {ID: first, Key: "topico_1.md", Title: "Primeiro Tema", Markdown: "# Primeiro Tema"},
		second: {ID: second, Key: "topico_2.md", Title: "Segundo Tema", Markdown: "# Segundo Tema"},
	}}

	config := defaultConfig()
	config.MaxVideosPerRun = 1

	eventBus := event.New()
	synth := &fakeSynthesizer{enabled: true}
	service := startService(t, config, storageCfg, &fakeScriptProvider{}, synth, insights, eventBus)

	time.Sleep(100 * time.Millisecond)
	eventBus.Dispatch(event.NewInsightEvent, first)
	eventBus.Dispatch(event.NewInsightEvent, second)

	waitForSettledTasks(t, service, 2)

	synth.mu.Lock()
	defer synth.mu.Unlock()
	assert.Equal(t, 1, synth.calls)
}

func Test_ScriptService_FailedGenerationMarksTaskTroubled(t *testing.T) {
	localRoot := t.TempDir()
	storageCfg := storage.Config{UseObjectStore: false, LocalRoot: localRoot, LocalScripts: "roteiros", LocalLessons: "aulas"}

	insightID := uuid.New()
	insights := &fakeInsightStore{insights: map[uuid.UUID]*content.Insight{
		insightID: {ID: insightID, Key: "topico_golpes.md", Title: "Golpes", Markdown: "# Golpes"},
	}}

	eventBus := event.New()
	provider := &fakeScriptProvider{err: errors.New("provider unavailable")}
	service := startService(t, defaultConfig(), storageCfg, provider, &fakeSynthesizer{}, insights, eventBus)

	time.Sleep(100 * time.Millisecond)
	eventBus.Dispatch(event.NewInsightEvent, insightID)

	waitForSettledTasks(t, service, 1)

	task := service.AllTasks()[0]
	assert.Equal(t, script.TROUBLED, task.State())
	require.NotNil(t, task.Trouble())
	assert.Contains(t, task.Trouble().Error(), "provider unavailable")
}
