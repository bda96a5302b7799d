package content_test

import (
	"testing"

	"github.com/fabricahq/fabrica/internal/content"
	"github.com/stretchr/testify/assert"
)

func Test_Slugify_FoldsAccentsAndPunctuation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		summary  string
		input    string
		expected string
	}{
		{"accented portuguese title", "Proteção contra Golpes", "protecao_contra_golpes"},
		{"mixed case with punctuation", "Como usar o WhatsApp: guia rápido!", "como_usar_o_whatsapp_guia_rapido"},
		{"hyphenated words", "Senhas fortes - passo a passo", "senhas_fortes_passo_a_passo"},
		{"leading and trailing whitespace", "  Segurança online  ", "seguranca_online"},
		{"only punctuation", "!?!", ""},
		{"empty input", "", ""},
	}

	for _, test := range tests {
		tt := test
		t.Run(tt.summary, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, content.Slugify(tt.input))
		})
	}
}

func Test_Fold_StripsDiacritics(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Locucao", content.Fold("Locução"))
	assert.Equal(t, "Cenario", content.Fold("Cenário"))
	assert.Equal(t, "plain text", content.Fold("plain text"))
}

func Test_ExtractTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		summary  string
		markdown string
		expected string
	}{
		{"h1 on first line", "# Golpes no WhatsApp\n\nConteudo...", "Golpes no WhatsApp"},
		{"h1 after preamble", "Resumo inicial\n\n# Senhas Seguras\n\nMais texto", "Senhas Seguras"},
		{"first of multiple h1s wins", "# Primeiro\n\n# Segundo", "Primeiro"},
		{"h2 is not a title", "## Subtitulo\n\ntexto", ""},
		{"no heading at all", "apenas texto corrido", ""},
	}

	for _, test := range tests {
		tt := test
		t.Run(tt.summary, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, content.ExtractTitle(tt.markdown))
		})
	}
}

func Test_FileName_FallsBackToIndex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "topico_golpes_online.md", content.FileName("Golpes Online", "topico", 3, ".md"))
	assert.Equal(t, "topico_3.md", content.FileName("", "topico", 3, ".md"))
	assert.Equal(t, "topico_0.md", content.FileName("!!!", "topico", 0, ".md"))
}

func Test_Truncate_CapsAtRuneBoundary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", content.Truncate("short", 100))
	assert.Equal(t, "abc", content.Truncate("abcdef", 3))

	// Multi-byte runes must not be split.
	assert.Equal(t, "ção", content.Truncate("çãos", 3))
}
