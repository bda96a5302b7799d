package script_test

import (
	"testing"

	"github.com/fabricahq/fabrica/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScript = `# Roteiro: Golpes no WhatsApp

## Cenário 1 (0-5 segundos)
- Descrição visual: Uma senhora sorridente segurando um celular na sala de estar
- Locução: "Você recebeu uma mensagem pedindo dinheiro?"

## Cenário 2 (5-10 segundos)
- Descrição visual: Close na tela do celular mostrando uma mensagem suspeita
- Locução: "Desconfie sempre. Ligue para a pessoa antes de responder,
  mesmo que a foto pareça familiar."

## Efeitos e Áudio
- Música calma de fundo
`

func Test_ParseScenes_ExtractsVisualAndNarration(t *testing.T) {
	t.Parallel()

	scenes := script.ParseScenes(sampleScript)
	require.Len(t, scenes, 2)

	assert.Equal(t, 1, scenes[0].Number)
	assert.Equal(t, "Uma senhora sorridente segurando um celular na sala de estar", scenes[0].Visual)
	assert.Equal(t, "Você recebeu uma mensagem pedindo dinheiro?", scenes[0].Narration)

	// The second scene's narration spans two lines.
	assert.Contains(t, scenes[1].Narration, "Desconfie sempre.")
	assert.Contains(t, scenes[1].Narration, "mesmo que a foto pareça familiar.")
}

func Test_ParseScenes_ToleratesMissingAccents(t *testing.T) {
	t.Parallel()

	unaccented := `## Cenario 1
- Descricao visual: Um senhor no banco
- Locucao: "Nunca informe sua senha."
`

	scenes := script.ParseScenes(unaccented)
	require.Len(t, scenes, 1)
	assert.Equal(t, "Um senhor no banco", scenes[0].Visual)
	assert.Equal(t, "Nunca informe sua senha.", scenes[0].Narration)
}

func Test_ParseScenes_IgnoresDocumentsWithoutScenes(t *testing.T) {
	t.Parallel()

	assert.Empty(t, script.ParseScenes("# Apenas um titulo\n\nTexto corrido sem cenas."))
	assert.Empty(t, script.ParseScenes(""))
}

func Test_ParseScenes_SkipsScenesWithNoContent(t *testing.T) {
	t.Parallel()

	scenes := script.ParseScenes("## Cenário 1\n\n## Cenário 2\n- Locução: \"Fala\"\n")
	require.Len(t, scenes, 1)
	assert.Equal(t, "Fala", scenes[0].Narration)
}

func Test_ScenePrompt_CombinesVisualAndNarration(t *testing.T) {
	t.Parallel()

	scene := script.Scene{Number: 1, Visual: "Uma praça ensolarada", Narration: "Bom dia!"}
	assert.Equal(t, "Uma praça ensolarada. Narration: Bom dia!", scene.Prompt())

	assert.Equal(t, "Narration: Bom dia!", script.Scene{Narration: "Bom dia!"}.Prompt())
	assert.Equal(t, "Uma praça", script.Scene{Visual: "Uma praça"}.Prompt())
}
