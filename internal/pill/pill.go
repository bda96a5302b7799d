// Package pill generates 'knowledge pills': bite-sized JSON documents
// pairing a short accessible text with an infographic, derived from the
// insights produced by the scrape stage. Pills target elderly and
// neurodivergent audiences, so the generation prompts enforce simple
// language and literal imagery.
package pill

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type (
	// Pill is the JSON document persisted for each knowledge pill.
	Pill struct {
		ID                  uuid.UUID     `json:"id"`
		SourceInsight       string        `json:"source_insight"`
		Title               string        `json:"title"`
		ShortText           string        `json:"short_text"`
		InfographicFilename string        `json:"infographic_filename,omitempty"`
		CallToAction        CallToAction  `json:"call_to_action"`
		Accessibility       Accessibility `json:"accessibility"`
		CreatedAt           time.Time     `json:"created_at"`
	}

	CallToAction struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}

	Accessibility struct {
		TargetAudience   []string `json:"target_audience"`
		DesignPrinciples []string `json:"design_principles"`
	}
)

// newPill assembles a pill document with the fixed accessibility metadata
// every pill carries.
func newPill(sourceInsight string, title string, shortText string, cta string) *Pill {
	return &Pill{
		ID:            uuid.New(),
		SourceInsight: sourceInsight,
		Title:         title,
		ShortText:     shortText,
		CallToAction: CallToAction{
			Type: "reflective_question",
			Text: cta,
		},
		Accessibility: Accessibility{
			TargetAudience:   []string{"elderly", "neurodivergent"},
			DesignPrinciples: []string{"large_icons", "high_contrast", "soft_colors", "literal_images"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

// Marshal renders the pill as indented JSON, the format downstream
// consumers (and humans inspecting the bucket) expect.
func (pill *Pill) Marshal() ([]byte, error) {
	return json.MarshalIndent(pill, "", "  ")
}
