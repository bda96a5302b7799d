package script

import (
	"regexp"
	"strings"

	"github.com/fabricahq/fabrica/internal/content"
)

// Scene is one segment of a generated video script: a visual description
// plus the narration spoken over it.
type Scene struct {
	Number    int
	Visual    string
	Narration string
}

// Prompt renders the scene as a single text-to-video prompt.
func (scene Scene) Prompt() string {
	parts := make([]string, 0, 2)
	if scene.Visual != "" {
		parts = append(parts, scene.Visual)
	}
	if scene.Narration != "" {
		parts = append(parts, "Narration: "+scene.Narration)
	}

	return strings.Join(parts, ". ")
}

var sceneHeadingPattern = regexp.MustCompile(`^##\s*Cenario\s+(\d+)`)

// ParseScenes extracts the scenes from a script markdown document. The
// parser is tolerant of accent variations ('Cenário'/'Cenario') and of
// extra prose around the expected '- Descrição visual:' and '- Locução:'
// bullet lines, since the script text comes from an LLM.
func ParseScenes(markdown string) []Scene {
	scenes := make([]Scene, 0)
	var current *Scene

	flush := func() {
		if current != nil && (current.Visual != "" || current.Narration != "") {
			scenes = append(scenes, *current)
		}
		current = nil
	}

	for _, rawLine := range strings.Split(markdown, "\n") {
		line := strings.TrimSpace(rawLine)
		folded := content.Fold(line)

		if match := sceneHeadingPattern.FindStringSubmatch(folded); match != nil {
			flush()
			current = &Scene{Number: len(scenes) + 1}
			continue
		}

		if strings.HasPrefix(folded, "## ") {
			// A non-scene section ends scene parsing ("Efeitos e Áudio" etc).
			flush()
			continue
		}

		if current == nil {
			continue
		}

		lower := strings.ToLower(folded)
		switch {
		case strings.HasPrefix(lower, "- descricao visual:"):
			current.Visual = valueAfterColon(line)
		case strings.HasPrefix(lower, "- locucao:"):
			current.Narration = valueAfterColon(line)
		case current.Narration != "" && !strings.HasPrefix(line, "-") && line != "":
			// Continuation lines belong to the narration.
			current.Narration += " " + line
		}
	}
	flush()

	return scenes
}

func valueAfterColon(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.Trim(strings.TrimSpace(line[idx+1:]), `"*`)
	}

	return ""
}
