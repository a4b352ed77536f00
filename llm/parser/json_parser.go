package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"newsrag/llm"
)

// JSONParser reads documents already in the push-document shape, either a
// single object or an array of them.
type JSONParser struct{}

// NewJSONParser creates a new JSON parser
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

// Parse decodes one or many documents and rejects any without id, title or
// content.
func (p *JSONParser) Parse(ctx context.Context, r io.Reader, src Source) ([]llm.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}

	var docs []llm.Document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &docs)
	} else {
		var doc llm.Document
		err = json.Unmarshal(trimmed, &doc)
		docs = []llm.Document{doc}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", src.Path, err)
	}

	for i, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" || strings.TrimSpace(doc.Title) == "" || strings.TrimSpace(doc.Content) == "" {
			return nil, fmt.Errorf("%s: document %d is missing id, title or content", src.Path, i)
		}
	}
	return docs, nil
}

// FileType returns the file type this parser handles
func (p *JSONParser) FileType() FileType {
	return FileTypeJSON
}
