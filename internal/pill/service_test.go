// service_test ensures that new-insight events are distilled into pill
// JSON documents and infographics. Generation is faked; persistence runs
// against a real local store in a temporary directory.
package pill_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fabricahq/fabrica/internal/content"
	"github.com/fabricahq/fabrica/internal/event"
	"github.com/fabricahq/fabrica/internal/pill"
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

	// fakePillProvider answers each of the three pill prompts with a
	// recognisable canned response.
	fakePillProvider struct{}

	fakeImageSynthesizer struct {
		mu      sync.Mutex
		enabled bool
		calls   int
	}
)

func (store *fakeInsightStore) GetInsight(id uuid.UUID) *content.Insight {
	return store.insights[id]
}

func (store *fakeInsightStore) Consolidated() string { return "" }

func (provider *fakePillProvider) Complete(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "TITULO CURTO"):
		return `"Evite golpes no WhatsApp"`, nil
	case strings.Contains(prompt, "TEXTO CURTO"):
		return "Desconfie de mensagens pedindo dinheiro. Ligue para confirmar.", nil
	default:
		return "Você já recebeu uma mensagem assim?", nil
	}
}

func (synth *fakeImageSynthesizer) Enabled() bool { return synth.enabled }

func (synth *fakeImageSynthesizer) Generate(_ context.Context, _ string, _ string) ([]byte, error) {
	synth.mu.Lock()
	defer synth.mu.Unlock()
	synth.calls++

	return []byte("png-bytes"), nil
}

type Service interface {
	AllPills() []*pill.Pill
}

func startService(t *testing.T, config pill.Config, storageCfg storage.Config, synth *fakeImageSynthesizer, insights *fakeInsightStore, eventBus event.EventCoordinator) Service {
	store, err := storage.New(storageCfg)
	require.Nil(t, err)

	service, err := pill.New(config, storageCfg, &fakePillProvider{}, store, synth, insights, eventBus)
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

func waitForPills(t *testing.T, service Service, expected int) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if len(service.AllPills()) >= expected {
			return
		}

		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %d pills", expected)
}

func Test_PillService_GeneratesPillDocument(t *testing.T) {
	localRoot := t.TempDir()
	storageCfg := storage.Config{UseObjectStore: false, LocalRoot: localRoot, LocalPills: "pilulas"}

	insightID := uuid.New()
	insights := &fakeInsightStore{insights: map[uuid.UUID]*content.Insight{
		insightID: {ID: insightID, Key: "topico_golpes.md", Title: "Golpes no WhatsApp", Markdown: "# Golpes no WhatsApp\n\nConteudo"},
	}}

	eventBus := event.New()
	service := startService(t, pill.Config{Parallelism: 2}, storageCfg, &fakeImageSynthesizer{enabled: false}, insights, eventBus)

	time.Sleep(100 * time.Millisecond)
	eventBus.Dispatch(event.NewInsightEvent, insightID)

	waitForPills(t, service, 1)

	data, err := os.ReadFile(filepath.Join(localRoot, "pilulas", "pilula_golpes_no_whatsapp.json"))
	require.Nil(t, err)

	var document pill.Pill
	require.Nil(t, json.Unmarshal(data, &document))

	assert.Equal(t, "topico_golpes.md", document.SourceInsight)
	assert.Equal(t, "Evite golpes no WhatsApp", document.Title)
	assert.Contains(t, document.ShortText, "Desconfie de mensagens")
	assert.Equal(t, "reflective_question", document.CallToAction.Type)
	assert.Contains(t, document.CallToAction.Text, "?")
	assert.Equal(t, []string{"elderly", "neurodivergent"}, document.Accessibility.TargetAudience)
	assert.False(t, document.CreatedAt.IsZero())
	assert.Empty(t, document.InfographicFilename)
}

func Test_PillService_GeneratesInfographicWhenEnabled(t *testing.T) {
	localRoot := t.TempDir()
	storageCfg := storage.Config{UseObjectStore: false, LocalRoot: localRoot, LocalPills: "pilulas"}

	insightID := uuid.New()
	insights := &fakeInsightStore{insights: map[uuid.UUID]*content.Insight{
		insightID: {ID: insightID, Key: "topico_senhas.md", Title: "Senhas Seguras", Markdown: "# Senhas Seguras"},
	}}

	eventBus := event.New()
	synth := &fakeImageSynthesizer{enabled: true}
	service := startService(t, pill.Config{Parallelism: 2}, storageCfg, synth, insights, eventBus)

	time.Sleep(100 * time.Millisecond)
	eventBus.Dispatch(event.NewInsightEvent, insightID)

	waitForPills(t, service, 1)

	document := service.AllPills()[0]
	assert.Equal(t, "infografico_senhas_seguras.png", document.InfographicFilename)

	// The infographic sits alongside the pill in the local backend.
	image, err := os.ReadFile(filepath.Join(localRoot, "pilulas", document.InfographicFilename))
	require.Nil(t, err)
	assert.Equal(t, "png-bytes", string(image))

	synth.mu.Lock()
	defer synth.mu.Unlock()
	assert.Equal(t, 1, synth.calls)
}

func Test_PillService_SkipsExistingPills(t *testing.T) {
	localRoot := t.TempDir()
	storageCfg := storage.Config{UseObjectStore: false, LocalRoot: localRoot, LocalPills: "pilulas"}

	// Pre-seed the bucket with a pill for this insight.
	require.Nil(t, os.MkdirAll(filepath.Join(localRoot, "pilulas"), 0o755))
	require.Nil(t, os.WriteFile(filepath.Join(localRoot, "pilulas", "pilula_golpes.json"), []byte("{}"), 0o644))

	insightID := uuid.New()
	insights := &fakeInsightStore{insights: map[uuid.UUID]*content.Insight{
		insightID: {ID: insightID, Key: "topico_golpes.md", Title: "Golpes", Markdown: "# Golpes"},
	}}

	eventBus := event.New()
	service := startService(t, pill.Config{Parallelism: 1}, storageCfg, &fakeImageSynthesizer{}, insights, eventBus)

	time.Sleep(100 * time.Millisecond)
	eventBus.Dispatch(event.NewInsightEvent, insightID)

	// The existing pill must not be regenerated.
	time.Sleep(500 * time.Millisecond)
	assert.Empty(t, service.AllPills())

	data, err := os.ReadFile(filepath.Join(localRoot, "pilulas", "pilula_golpes.json"))
	require.Nil(t, err)
	assert.Equal(t, "{}", string(data))
}

func Test_PillService_BudgetLimitsGeneration(t *testing.T) {
	localRoot := t.TempDir()
	storageCfg := storage.Config{UseObjectStore: false, LocalRoot: localRoot, LocalPills: "pilulas"}

	first, second := uuid.New(), uuid.New()
	insights := &fakeInsightStore{insights: map[uuid.UUID]*content.Insight{
		first:  {ID: first, Key: "topico_1.md", Title: "Primeiro Tema", Markdown: "# Primeiro Tema"},
		second: {ID: second, Key: "topico_2.md", Title: "Segundo Tema", Markdown: "# Segundo Tema"},
	}}

	eventBus := event.New()
	service := startService(t, pill.Config{Parallelism: 1, MaxPillsPerRun: 1}, storageCfg, &fakeImageSynthesizer{}, insights, eventBus)

	time.Sleep(100 * time.Millisecond)
	eventBus.Dispatch(event.NewInsightEvent, first)
	eventBus.Dispatch(event.NewInsightEvent, second)

	waitForPills(t, service, 1)

	// Allow the second task to drain; it must be dropped by the budget.
	time.Sleep(500 * time.Millisecond)
	assert.Len(t, service.AllPills(), 1)
}
