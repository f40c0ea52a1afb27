package contextmgr

import (
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens the way the completion model's tokenizer
// family does, or close enough for budgeting purposes.
type Tokenizer interface {
	Count(text string) int
}

// NewTokenizer returns a tiktoken-backed tokenizer for the given
// encoding (e.g. "cl100k_base"). If the encoding cannot be loaded the
// assistant still has to start, so it falls back to a character
// heuristic with a logged warning.
func NewTokenizer(encoding string) Tokenizer {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		slog.Warn("Tokenizer unavailable, falling back to estimation", "encoding", encoding, "error", err)
		return estimateTokenizer{}
	}
	return &tiktokenTokenizer{enc: enc}
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t *tiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// estimateTokenizer approximates ~4 characters per token. Rune count
// rather than byte length so multi-byte scripts are not over-counted.
type estimateTokenizer struct{}

func (estimateTokenizer) Count(text string) int {
	return utf8.RuneCountInString(text) / 4
}
