// Package parser turns local files into news documents for ingestion.
package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsrag/llm"
)

// FileType represents the type of document file
type FileType string

const (
	FileTypeMD      FileType = "md"
	FileTypeHTML    FileType = "html"
	FileTypeTXT     FileType = "txt"
	FileTypeJSON    FileType = "json"
	FileTypeUnknown FileType = "unknown"
)

// Source describes where parsed bytes came from.
type Source struct {
	// Path is used for the document id and the title fallback.
	Path    string
	ModTime time.Time
}

// Parser defines the interface for document parsers
type Parser interface {
	// Parse reads documents from r. Most formats yield exactly one.
	Parse(ctx context.Context, r io.Reader, src Source) ([]llm.Document, error)

	// FileType returns the file type this parser handles
	FileType() FileType
}

// Registry holds all registered parsers
type Registry struct {
	parsers map[FileType]Parser
}

// NewRegistry creates a new parser registry
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[FileType]Parser),
	}
}

// Register adds a parser to the registry
func (r *Registry) Register(p Parser) {
	r.parsers[p.FileType()] = p
}

// GetParser returns a parser for the given file type
func (r *Registry) GetParser(ft FileType) (Parser, bool) {
	p, ok := r.parsers[ft]
	return p, ok
}

// GetParserForPath returns a parser for the given file path
func (r *Registry) GetParserForPath(filePath string) (Parser, bool) {
	ext := strings.TrimPrefix(filepath.Ext(filePath), ".")
	return r.GetParser(FileTypeFromExt(ext))
}

// ParseFile parses a file using the appropriate parser
func (r *Registry) ParseFile(ctx context.Context, filePath string) ([]llm.Document, error) {
	parser, ok := r.GetParserForPath(filePath)
	if !ok {
		return nil, fmt.Errorf("no parser found for file: %s", filePath)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	src := Source{Path: filePath}
	if info, err := f.Stat(); err == nil {
		src.ModTime = info.ModTime()
	}
	return parser.Parse(ctx, f, src)
}

// FileTypeFromExt converts a file extension to FileType
func FileTypeFromExt(ext string) FileType {
	switch strings.ToLower(ext) {
	case "md", "markdown":
		return FileTypeMD
	case "html", "htm":
		return FileTypeHTML
	case "txt":
		return FileTypeTXT
	case "json":
		return FileTypeJSON
	default:
		return FileTypeUnknown
	}
}

// String returns the string representation of the FileType
func (ft FileType) String() string {
	return string(ft)
}

// DefaultRegistry returns a registry with all parsers registered
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(NewTxtParser())
	reg.Register(NewMarkdownParser())
	reg.Register(NewHTMLParser())
	reg.Register(NewJSONParser())
	return reg
}

// DocumentID derives a stable document id from a file path.
func DocumentID(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// ExtractTitle extracts a title from content (first line or heading)
func ExtractTitle(content, filePath string) string {
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line == "" {
			continue
		}
		if len(line) < 100 {
			return line
		}
		break
	}
	return titleFromPath(filePath)
}

// titleFromPath turns "rate-cut_news.md" into "rate cut news".
func titleFromPath(path string) string {
	if path == "" {
		return "Untitled"
	}
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	if strings.TrimSpace(name) == "" {
		return "Untitled"
	}
	return name
}

// newDocument fills the fields every file-based document shares.
func newDocument(src Source, title, content string, metadata map[string]any) llm.Document {
	if metadata == nil {
		metadata = map[string]any{}
	}
	if src.Path != "" {
		metadata["source"] = filepath.ToSlash(src.Path)
	}
	return llm.Document{
		ID:        DocumentID(src.Path),
		Title:     title,
		Content:   content,
		Metadata:  metadata,
		Timestamp: src.ModTime,
	}
}
