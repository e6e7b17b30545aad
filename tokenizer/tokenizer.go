package tokenizer

import (
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates the token footprint of a text. Chunk token counts are
// advisory; retrieval never depends on them being exact.
type Counter interface {
	CountTokens(text string) int
}

// Tiktoken counts tokens with a tiktoken encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken resolves an encoding by model name first, then by encoding name.
func NewTiktoken(name string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tiktoken{enc: enc}, nil
}

// CountTokens implements Counter.
func (t *Tiktoken) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Heuristic approximates token counts without an encoding table: whitespace
// separated words for alphabetic scripts, one token per CJK rune.
type Heuristic struct{}

// CountTokens implements Counter.
func (Heuristic) CountTokens(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			count++
			inWord = false
		case unicode.IsSpace(r) || strings.ContainsRune(`.,;:!?()[]{}"'`, r):
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}

var (
	_ Counter = (*Tiktoken)(nil)
	_ Counter = Heuristic{}
)
