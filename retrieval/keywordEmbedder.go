package retrieval

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/matraxtyres/tyre_assistant/llm"
)

// KeywordEmbedder hashes lower-cased tokens into a fixed-size bag-of-words vector.
// It needs no model and is used with MemorySearcher when no embedding backend is configured.
type KeywordEmbedder struct {
	Dimension int
}

func (k KeywordEmbedder) Embed(_ context.Context, text string, _ llm.EmbeddingTask) ([]float32, error) {
	dim := k.Dimension
	if dim <= 0 {
		dim = 256
	}
	vec := make([]float32, dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/'
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(dim)]++
	}
	return vec, nil
}
