package scrape

import (
	"fmt"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/fabricahq/fabrica/internal/prompt"
	"github.com/fabricahq/fabrica/pkg/logger"
)

// ConsolidatedKey is the artifact name of the consolidated summary. It is
// excluded from per-insight listings by downstream stages.
const ConsolidatedKey = "consolidado_insights.md"

// Two insights whose titles are at least this similar are treated as
// duplicates during consolidation; only the first is kept.
const duplicateTitleThreshold = 0.92

// maybeConsolidate generates the consolidated summary once every known
// item has settled (COMPLETE or TROUBLED). Discovery of new sources
// resets the flag so a later settle triggers a fresh pass.
//
// Note: This function takes ownership of the mutex while inspecting state,
// releasing it before the (slow) generation call.
func (service *scrapeService) maybeConsolidate() {
	service.Lock()

	if service.consolidated || len(service.items) == 0 {
		service.Unlock()
		return
	}
	for _, item := range service.items {
		if item.State != COMPLETE && item.State != TROUBLED {
			service.Unlock()
			return
		}
	}

	complete := make([]*InsightItem, 0, len(service.items))
	for _, item := range service.items {
		if item.State == COMPLETE {
			complete = append(complete, item)
		}
	}
	service.consolidated = true
	service.Unlock()

	if len(complete) == 0 {
		log.Emit(logger.WARNING, "No successful insights to consolidate\n")
		return
	}

	if err := service.consolidate(complete); err != nil {
		log.Emit(logger.ERROR, "Consolidation failed: %s\n", err.Error())
	}
}

// consolidate merges the provided insights into a single summary document
// and persists it. Insights with near-duplicate titles are pruned first so
// mirrored articles do not dominate the summary.
func (service *scrapeService) consolidate(items []*InsightItem) error {
	pruned := pruneDuplicateTitles(items)
	if dropped := len(items) - len(pruned); dropped > 0 {
		log.Emit(logger.REMOVE, "Dropped %d near-duplicate insights before consolidation\n", dropped)
	}

	log.Emit(logger.INFO, "Consolidating %d insights...\n", len(pruned))

	var combined strings.Builder
	for _, item := range pruned {
		combined.WriteString(fmt.Sprintf("### %s\n\n%s\n\n---\n\n", item.ArtifactKey, item.Markdown))
	}

	summary, err := service.provider.Complete(service.runCtx, prompt.Consolidation(combined.String()))
	if err != nil {
		return fmt.Errorf("failed to generate consolidated summary: %w", err)
	}

	location := service.storageCfg.InsightsLocation()
	if err := service.store.Put(service.runCtx, location, ConsolidatedKey, []byte(summary), "text/markdown"); err != nil {
		return fmt.Errorf("failed to persist consolidated summary: %w", err)
	}

	service.Lock()
	service.consolidatedText = summary
	service.Unlock()

	log.Emit(logger.SUCCESS, "Consolidated summary saved as '%s'\n", ConsolidatedKey)
	return nil
}

// pruneDuplicateTitles drops items whose title is nearly identical to an
// earlier item's title, keeping input order. Untitled items are always
// kept.
func pruneDuplicateTitles(items []*InsightItem) []*InsightItem {
	metric := metrics.NewJaroWinkler()

	kept := make([]*InsightItem, 0, len(items))
	for _, candidate := range items {
		duplicate := false
		if candidate.Title != "" {
			for _, existing := range kept {
				if existing.Title == "" {
					continue
				}

				if strutil.Similarity(candidate.Title, existing.Title, metric) >= duplicateTitleThreshold {
					duplicate = true
					break
				}
			}
		}

		if !duplicate {
			kept = append(kept, candidate)
		}
	}

	return kept
}
