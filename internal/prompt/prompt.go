// Package prompt holds the prompt templates fed to the AI provider by each
// pipeline stage. The instructional text is Portuguese on purpose: the
// generated artifacts target Brazilian elderly audiences.
package prompt

import (
	"fmt"

	"github.com/fabricahq/fabrica/internal/content"
)

// Rune caps applied to the variable portion of each template so a single
// oversized page cannot blow the provider's context window.
const (
	InsightContentLimit       = 15000
	ScriptContentLimit        = 5000
	ConsolidationContentLimit = 50000
	ConsolidatedContextLimit  = 3000
)

// Insight returns the prompt that turns raw page text into an educational
// insight markdown document.
func Insight(url string, pageText string) string {
	return fmt.Sprintf(`Você é um especialista em educação digital para idosos.
Analise o texto abaixo extraído do site %s.

Crie um arquivo Markdown (.md) contendo:
1. Título.
2. Principais tópicos.
3. Principais insights.
4. Sinais de Alerta (se for golpe) ou Dica de Ouro.
5. Um breve resumo.

Texto bruto:
%s`, url, content.Truncate(pageText, InsightContentLimit))
}

// VideoScript returns the prompt for a 30-second scene-by-scene video
// script. The scene count is configurable; each scene carries a visual
// description and narration line. Consolidated insights, when available,
// are appended as extra context.
func VideoScript(insight string, consolidated string, numScenes int) string {
	if numScenes < 1 {
		numScenes = 3
	}

	scenes := ""
	secondsPerScene := 30 / numScenes
	if secondsPerScene < 1 {
		secondsPerScene = 1
	}
	for i := 0; i < numScenes; i++ {
		scenes += fmt.Sprintf(`
## Cenário %d (%d-%d segundos)
- Descrição visual:
- Locução:
`, i+1, i*secondsPerScene, (i+1)*secondsPerScene)
	}

	context := ""
	if consolidated != "" {
		context = fmt.Sprintf(`

CONTEXTO ADICIONAL (Consolidado de Insights):
Use este contexto para enriquecer o roteiro com informações relevantes e consistentes:
%s`, content.Truncate(consolidated, ConsolidatedContextLimit))
	}

	return fmt.Sprintf(`Você é um roteirista especializado em criar conteúdo educativo para idosos.

Com base no seguinte conteúdo educativo:
%s%s

Crie um ROTEIRO DE VÍDEO DE 30 SEGUNDOS com o seguinte formato:

# Roteiro para Vídeo de 30 Segundos
%s
## Efeitos e Áudio
- Som de fundo:
- Transições:

Mantenha a linguagem simples, acessível e clara para idosos.`,
		content.Truncate(insight, ScriptContentLimit), context, scenes)
}

// Consolidation returns the prompt that merges every generated insight into
// a single structured summary document.
func Consolidation(allInsights string) string {
	return fmt.Sprintf(`Você é um especialista em educação digital para idosos.

Abaixo estão diversos insights educativos sobre segurança digital e uso de tecnologia para idosos.
Sua tarefa é consolidar todo esse conhecimento em um único documento estruturado.

Crie um arquivo Markdown (.md) chamado "Consolidado de Insights" contendo:

# Consolidado de Insights - Educação Digital para Idosos

## 1. Principais Temas Abordados
Liste os principais temas que aparecem nos insights (ex: golpes, PIX, WhatsApp, etc.)

## 2. Pontos-Chave de Aprendizado
Liste os pontos mais importantes que um idoso deve aprender, organizados por categoria.

## 3. Principais Golpes e Como se Proteger
Consolide informações sobre os golpes mais comuns e as formas de prevenção.

## 4. Principais Dicas Práticas de Segurança
Liste as dicas de segurança digital mais relevantes e repetidas.

## 5. Principais Sinais de Alerta
Liste os principais sinais de que algo pode ser um golpe.

## 6. Resumo Executivo
Um parágrafo resumindo os principais aprendizados.

Insights para consolidar:
%s`, content.Truncate(allInsights, ConsolidationContentLimit))
}
