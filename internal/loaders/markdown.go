package loaders

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
)

// Ensure Markdown implements the interface.
var _ driven.Loader = (*Markdown)(nil)

// Markdown loads markdown files, stripping formatting so the stored
// text reads as prose. The title comes from the first H1 heading when
// one exists.
type Markdown struct{}

// NewMarkdown creates a markdown loader.
func NewMarkdown() *Markdown {
	return &Markdown{}
}

// Extensions returns the file extensions this loader handles.
func (l *Markdown) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Load reads and strips the markdown file at path.
func (l *Markdown) Load(_ context.Context, path string) (*driven.LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	raw := strings.ReplaceAll(string(data), "\r\n", "\n")
	title := markdownTitle(raw)
	if title == "" {
		title = titleFromPath(path)
	}

	return &driven.LoadResult{
		Text:  stripMarkdown(raw),
		Title: title,
		Metadata: map[string]any{
			"format": "markdown",
		},
	}, nil
}

// markdownTitle returns the first H1 heading, or "".
func markdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

var (
	reCodeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	reInlineCode   = regexp.MustCompile("`([^`]+)`")
	reImages       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	reLinks        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reHeadings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBlockquote   = regexp.MustCompile(`(?m)^>\s*`)
	reHorizRule    = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	reListMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	reNumberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	reMultiNewline = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common markdown formatting for plain text
// content. Inline code and link text survive; fenced code blocks do
// not.
func stripMarkdown(content string) string {
	content = reCodeBlock.ReplaceAllString(content, "")
	content = reInlineCode.ReplaceAllString(content, "$1")
	content = reImages.ReplaceAllString(content, "")
	content = reLinks.ReplaceAllString(content, "$1")
	content = reHeadings.ReplaceAllString(content, "")
	content = reBlockquote.ReplaceAllString(content, "")
	content = reHorizRule.ReplaceAllString(content, "")
	content = reListMarkers.ReplaceAllString(content, "")
	content = reNumberedList.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	content = reMultiNewline.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
