package prompt

import (
	"fmt"

	"github.com/fabricahq/fabrica/internal/content"
)

// Caps specific to the knowledge-pill templates.
const (
	PillContentLimit = 5000
	PillKeyMsgLimit  = 500
)

// PillTitle returns the prompt for the short accessible title of a
// knowledge pill.
func PillTitle(insight string) string {
	return fmt.Sprintf(`Voce e um especialista em educacao digital para idosos.

Com base no seguinte conteudo educativo:
%s

Crie um TITULO CURTO para uma pilula de conhecimento.

REGRAS:
1. Maximo 6-8 palavras
2. Comece com verbo no imperativo (Como, Aprenda, Proteja, Evite, etc.)
3. Linguagem simples, sem termos tecnicos
4. Deve capturar a essencia do conteudo

EXEMPLOS:
- "Como identificar golpes online"
- "Proteja suas senhas na internet"
- "Evite cair em armadilhas no WhatsApp"

FORMATO:
Retorne APENAS o titulo, sem aspas ou formatacao.

Titulo:`, content.Truncate(insight, PillContentLimit))
}

// PillShortText returns the prompt for the 2-4 sentence body of a
// knowledge pill.
func PillShortText(insight string, consolidated string) string {
	context := ""
	if consolidated != "" {
		context = fmt.Sprintf(`

ADDITIONAL CONTEXT (Consolidated Insights):
Use this context to ensure consistency with other educational content:
%s
`, content.Truncate(consolidated, ConsolidatedContextLimit))
	}

	return fmt.Sprintf(`Voce e um especialista em educacao digital para idosos e pessoas neurodivergentes.

Com base no seguinte conteudo educativo:
%s%s

Crie um TEXTO CURTO (pilula de conhecimento) seguindo estas regras:

REGRAS OBRIGATORIAS:
1. Maximo 3-4 frases curtas
2. Linguagem simples, sem termos tecnicos
3. Use verbos no imperativo (Faca, Evite, Desconfie, etc.)
4. Inclua uma acao pratica que a pessoa pode fazer
5. Evite metaforas abstratas - seja literal e direto
6. Use palavras do dia-a-dia

FORMATO:
Retorne APENAS o texto da pilula, sem titulos ou formatacao markdown.

EXEMPLO BOM:
"Desconfie de mensagens pedindo dados bancarios. Nunca clique em links suspeitos. Antes de fornecer informacoes pessoais, confirme com a empresa por telefone."

EXEMPLO RUIM (muito tecnico):
"Implemente autenticacao de dois fatores para proteger suas credenciais digitais contra ataques de phishing."

Agora, gere o texto da pilula:`, content.Truncate(insight, PillContentLimit), context)
}

// PillCallToAction returns the prompt for the single reflective question
// that closes a knowledge pill.
func PillCallToAction(shortText string, topic string) string {
	return fmt.Sprintf(`Voce e um educador especializado em idosos e pessoas neurodivergentes.

TOPICO: %s

TEXTO DA PILULA:
%s

Crie UMA pergunta de chamada para acao (call-to-action) seguindo estas regras:

REGRAS:
1. Deve ser uma pergunta simples e direta
2. Pode ser respondida com "sim" ou "nao", ou com uma reflexao pessoal
3. Deve conectar o tema com a vida real da pessoa
4. Nao pode exigir conhecimento tecnico
5. Deve incentivar a pessoa a pensar ou agir

TIPOS DE PERGUNTAS ACEITAS:
- "Voce ja passou por essa situacao?"
- "O que voce faria se recebesse essa mensagem?"
- "Voce conhece alguem que ja foi enganado assim?"
- "Qual senha voce usaria para sua conta?"

FORMATO:
Retorne APENAS a pergunta, sem explicacoes adicionais.

Pergunta:`, topic, shortText)
}

// Infographic returns the Imagen prompt for an accessibility-focused
// infographic visualising the pill. This one stays in English: image
// models follow English style directives far more reliably.
func Infographic(topic string, shortText string) string {
	return fmt.Sprintf(`Create an educational infographic about: %s

Key message: %s

Style requirements for accessibility:
- Simple, literal illustrations (no abstract metaphors)
- Large, clear icons and symbols (minimum 3 main visual elements)
- High contrast: dark text (#333) on light background (#FFF or #F5F5DC)
- Soft, calming color palette: blues (#4A90D9), greens (#7CB342), warm yellows (#FFD54F)
- NO text in the image - the text will be added separately
- Clean, uncluttered layout with generous whitespace
- Flat design style, no gradients or complex shadows
- Suitable for elderly (idosos) and neurodivergent (autistas) audiences
- Use realistic representations, not cartoons
- Include visual metaphors that are immediately understandable
- Show positive outcomes and safe behaviors, not scary scenarios`,
		topic, content.Truncate(shortText, PillKeyMsgLimit))
}
