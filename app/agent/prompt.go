package agent

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// BuildPrompt assembles the final generation prompt from the condensed
// context block and the user question.
func BuildPrompt(context, question string) string {
	if context == "" {
		context = "(aucun extrait trouvé)"
	}
	return fmt.Sprintf(`Voici des extraits pertinents :
%s

Question : %s
Réponse :`, context, question)
}

// CountTokens gives a rough token count for prompt size logging. The
// gpt-3.5 encoding is close enough for llama-family tokenizers.
func CountTokens(text string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
