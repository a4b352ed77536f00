package parser

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"newsrag/llm"
)

// Frontmatter keys read as the article publish time, in order.
var dateKeys = []string{"date", "published", "published_at"}

// MarkdownParser handles markdown files. Markdown is kept as-is in the
// content; the chat model reads it fine.
type MarkdownParser struct{}

// NewMarkdownParser creates a new markdown parser
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Parse reads markdown with optional "key: value" frontmatter. A "title"
// key overrides the heading, an "id" key overrides the path-based id and a
// date key overrides the file time.
func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader, src Source) ([]llm.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}

	raw := string(data)
	front := extractFrontmatter(raw)
	content := collapseBlankLines(removeFrontmatter(raw))
	if content == "" {
		return nil, fmt.Errorf("empty document: %s", src.Path)
	}

	title := ExtractTitle(content, src.Path)
	if t, ok := front["title"]; ok && t != "" {
		title = t
	}

	metadata := make(map[string]any, len(front))
	for k, v := range front {
		metadata[k] = v
	}
	delete(metadata, "title")
	delete(metadata, "id")

	doc := newDocument(src, title, content, metadata)
	if id := front["id"]; id != "" {
		doc.ID = id
	}
	for _, key := range dateKeys {
		if ts, err := parseDate(front[key]); err == nil {
			doc.Timestamp = ts
			break
		}
	}
	return []llm.Document{doc}, nil
}

// extractFrontmatter reads simple key: value pairs between --- fences.
func extractFrontmatter(content string) map[string]string {
	front := map[string]string{}
	if !hasFrontmatter(content) {
		return front
	}

	lines := strings.Split(content, "\n")
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "---" {
			break
		}
		if idx := strings.Index(line, ":"); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
			front[key] = value
		}
	}
	return front
}

// removeFrontmatter removes YAML frontmatter from content
func removeFrontmatter(content string) string {
	if !hasFrontmatter(content) {
		return content
	}

	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[i+1:], "\n")
		}
	}
	return content
}

func hasFrontmatter(content string) bool {
	lines := strings.SplitN(content, "\n", 2)
	return len(lines) == 2 && strings.TrimSpace(lines[0]) == "---"
}

// collapseBlankLines trims lines and keeps at most one blank line in a row.
func collapseBlankLines(content string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.DateOnly, s)
}

// FileType returns the file type this parser handles
func (p *MarkdownParser) FileType() FileType {
	return FileTypeMD
}
