package driven

import "context"

// LoadResult is the output of a document loader: ordered raw text with
// stable offsets plus loader metadata.
type LoadResult struct {
	// Text is the full document text. Offsets into it are stable
	// across loads of identical content.
	Text string

	// Title is the human-readable title, if the format carries one.
	Title string

	// Metadata contains loader-specific key-value pairs.
	Metadata map[string]any
}

// Loader parses one document format into ordered raw text. The core is
// indifferent to the source format; heavy formats (PDF, DOCX) live
// behind this port.
type Loader interface {
	// Extensions returns the file extensions this loader handles,
	// lower-case with the leading dot (".txt", ".md").
	Extensions() []string

	// Load reads and parses the file at path.
	Load(ctx context.Context, path string) (*LoadResult, error)
}

// LoaderRegistry selects a loader for a file path.
type LoaderRegistry interface {
	// Register adds a loader for its declared extensions.
	Register(l Loader)

	// Load parses path using the loader registered for its extension.
	// Unknown extensions return domain.ErrInvalidInput.
	Load(ctx context.Context, path string) (*LoadResult, error)
}
