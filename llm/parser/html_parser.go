package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"newsrag/llm"
)

// HTMLParser handles saved article pages. The body is converted to markdown
// so headings and lists survive into the prompt.
type HTMLParser struct {
	converter *md.Converter
}

// NewHTMLParser creates a new HTML parser
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{
		converter: md.NewConverter("", true, nil),
	}
}

// Parse reads an HTML page. The title comes from <title>, then the first
// <h1>, then the file name.
func (p *HTMLParser) Parse(ctx context.Context, r io.Reader, src Source) ([]llm.Document, error) {
	page, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(page.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(page.Find("h1").First().Text())
	}
	if title == "" {
		title = titleFromPath(src.Path)
	}

	metadata := map[string]any{}
	if desc, ok := page.Find(`meta[name="description"]`).Attr("content"); ok && desc != "" {
		metadata["description"] = strings.TrimSpace(desc)
	}
	if author, ok := page.Find(`meta[name="author"]`).Attr("content"); ok && author != "" {
		metadata["author"] = strings.TrimSpace(author)
	}

	page.Find("script, style, noscript, nav, footer").Remove()
	body, err := page.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML body: %w", err)
	}

	content, err := HTMLToMarkdown(p.converter, body)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("empty document: %s", src.Path)
	}

	return []llm.Document{newDocument(src, title, content, metadata)}, nil
}

// HTMLToMarkdown converts an HTML fragment and drops blank-line runs.
func HTMLToMarkdown(converter *md.Converter, html string) (string, error) {
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}
	return collapseBlankLines(markdown), nil
}

// FileType returns the file type this parser handles
func (p *HTMLParser) FileType() FileType {
	return FileTypeHTML
}
