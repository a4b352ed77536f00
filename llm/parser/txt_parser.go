package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"newsrag/llm"
)

// TxtParser handles plain text files
type TxtParser struct{}

// NewTxtParser creates a new plain text parser
func NewTxtParser() *TxtParser {
	return &TxtParser{}
}

// Parse reads plain text. The first short line doubles as the title.
func (p *TxtParser) Parse(ctx context.Context, r io.Reader, src Source) ([]llm.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, fmt.Errorf("empty document: %s", src.Path)
	}

	doc := newDocument(src, ExtractTitle(content, src.Path), content, map[string]any{
		"line_count": strings.Count(content, "\n") + 1,
	})
	return []llm.Document{doc}, nil
}

// FileType returns the file type this parser handles
func (p *TxtParser) FileType() FileType {
	return FileTypeTXT
}
