package scrape

import (
	"context"
	"fmt"

	"github.com/fabricahq/fabrica/internal/ai"
	"github.com/fabricahq/fabrica/internal/content"
	"github.com/fabricahq/fabrica/internal/prompt"
	"github.com/fabricahq/fabrica/internal/storage"
	"github.com/fabricahq/fabrica/pkg/logger"
	"github.com/google/uuid"
)

type (
	InsightItemState int

	// InsightItem tracks one source URL through the insight pipeline.
	// The generated markdown is retained in memory after completion so
	// the consolidation pass can run without reading artifacts back.
	InsightItem struct {
		ID      uuid.UUID
		URL     string
		Index   int
		State   InsightItemState
		Trouble *Trouble

		Title       string
		ArtifactKey string
		Markdown    string
	}
)

const (
	IDLE InsightItemState = iota
	SCRAPING
	TROUBLED
	COMPLETE
)

func (state InsightItemState) String() string {
	return []string{"IDLE", "SCRAPING", "TROUBLED", "COMPLETE"}[state]
}

func (item *InsightItem) String() string {
	return fmt.Sprintf("InsightItem{ID=%s url=%s state=%s}", item.ID, item.URL, item.State)
}

// process is the main task for an insight item:
//   - Fetches the source page and strips it to plain text
//   - Generates the insight markdown via the AI provider
//   - Derives a semantic artifact name from the document title
//   - Persists the artifact to the configured store
//
// Errors are returned as Troubles so the caller can mark the item
// TROUBLED rather than aborting the run.
func (item *InsightItem) process(
	ctx context.Context,
	extractor pageExtractor,
	provider ai.Provider,
	store storage.ArtifactStore,
	location string,
) error {
	log.Emit(logger.NEW, "Beginning processing of %s\n", item)

	pageText, err := extractor.Extract(ctx, item.URL)
	if err != nil {
		return newTrouble(err)
	}

	markdown, err := provider.Complete(ctx, prompt.Insight(item.URL, pageText))
	if err != nil {
		return newTrouble(&GenerationError{Err: err})
	}

	title := content.ExtractTitle(markdown)
	key := content.FileName(title, "topico", item.Index, ".md")

	if err := store.Put(ctx, location, key, []byte(markdown), "text/markdown"); err != nil {
		return newTrouble(&StorageError{Err: err})
	}

	item.Title = title
	item.ArtifactKey = key
	item.Markdown = markdown

	log.Emit(logger.SUCCESS, "Saved insight '%s' for %s\n", key, item.URL)
	return nil
}
