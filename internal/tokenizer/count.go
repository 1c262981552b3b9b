package tokenizer

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/mdpack/internal/utils"
)

var errNilCounter = errors.New("nil tokenizer counter")

// CountResult captures the outcome of counting a document or byte slice.
// Counted is false when the data is not text.
type CountResult struct {
	Tokens  int
	Counted bool
}

// CountBytes estimates tokens for the provided data using counter.
func CountBytes(counter Counter, data []byte) (CountResult, error) {
	if counter == nil {
		return CountResult{}, errNilCounter
	}
	text, decodeErr := utils.DecodeText(data)
	if errors.Is(decodeErr, utils.ErrNotText) {
		return CountResult{Counted: false}, nil
	}
	tokens, err := counter.CountString(text)
	if err != nil {
		return CountResult{}, fmt.Errorf("count tokens with %s: %w", counter.Name(), err)
	}
	return CountResult{Tokens: tokens, Counted: true}, nil
}

// CountFile reads the file at path and estimates its token count.
func CountFile(counter Counter, path string) (CountResult, error) {
	if counter == nil {
		return CountResult{}, errNilCounter
	}
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return CountResult{}, fmt.Errorf("read %s for token count: %w", path, readErr)
	}
	return CountBytes(counter, data)
}
