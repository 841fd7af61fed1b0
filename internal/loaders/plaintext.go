package loaders

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
)

// Ensure Plaintext implements the interface.
var _ driven.Loader = (*Plaintext)(nil)

// Plaintext loads plain text files verbatim.
type Plaintext struct{}

// NewPlaintext creates a plain text loader.
func NewPlaintext() *Plaintext {
	return &Plaintext{}
}

// Extensions returns the file extensions this loader handles.
func (l *Plaintext) Extensions() []string {
	return []string{".txt", ".text", ".log", ".csv", ".json", ".yaml", ".yml", ".toml"}
}

// Load reads the file at path. Line endings are normalised to \n so
// that identical content hashes identically across platforms.
func (l *Plaintext) Load(_ context.Context, path string) (*driven.LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	return &driven.LoadResult{
		Text:  text,
		Title: titleFromPath(path),
		Metadata: map[string]any{
			"format": "plaintext",
		},
	}, nil
}
