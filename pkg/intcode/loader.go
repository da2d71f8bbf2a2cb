package intcode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseProgram parses comma-separated base-10 integers into a memory image.
// Whitespace around tokens is ignored.
func ParseProgram(text string) ([]int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty program", ErrMalformedProgram)
	}

	tokens := strings.Split(text, ",")
	image := make([]int64, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, &ParseError{Index: i, Token: tok, Err: err}
		}
		image[i] = v
	}
	return image, nil
}

// LoadProgram reads r to EOF and parses it with ParseProgram.
func LoadProgram(r io.Reader) ([]int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	return ParseProgram(string(data))
}
