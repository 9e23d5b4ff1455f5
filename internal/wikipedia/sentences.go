package wikipedia

import (
	"fmt"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// englishTokenizer loads the bundled Punkt model once.
var englishTokenizer = sync.OnceValues(func() (*sentences.DefaultSentenceTokenizer, error) {
	return english.NewSentenceTokenizer(nil)
})

// firstSentences returns at most n leading sentences of text, with
// whitespace collapsed. Only article HTML needs this; API extracts arrive
// already cut by the server.
func firstSentences(text string, n int) (string, error) {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || text == "" {
		return text, nil
	}

	tok, err := englishTokenizer()
	if err != nil {
		return "", fmt.Errorf("load sentence tokenizer: %w", err)
	}

	var out []string
	for _, s := range tok.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
		if len(out) == n {
			break
		}
	}
	return strings.Join(out, " "), nil
}
