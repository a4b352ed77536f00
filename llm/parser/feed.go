package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mmcdole/gofeed"

	"newsrag/llm"
)

// FeedParser turns RSS and Atom items into documents.
type FeedParser struct {
	feeds     *gofeed.Parser
	converter *md.Converter
	now       func() time.Time
}

// NewFeedParser creates a feed parser.
func NewFeedParser() *FeedParser {
	return &FeedParser{
		feeds:     gofeed.NewParser(),
		converter: md.NewConverter("", true, nil),
		now:       time.Now,
	}
}

// ParseURL fetches a feed and converts up to limit items (all when limit <= 0).
func (p *FeedParser) ParseURL(ctx context.Context, url string, limit int) ([]llm.Document, error) {
	feed, err := p.feeds.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", url, err)
	}
	return p.Documents(feed, limit), nil
}

// ParseString converts an already downloaded feed.
func (p *FeedParser) ParseString(raw string, limit int) ([]llm.Document, error) {
	feed, err := p.feeds.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return p.Documents(feed, limit), nil
}

// Documents converts feed items. Items without an id or any text are skipped.
func (p *FeedParser) Documents(feed *gofeed.Feed, limit int) []llm.Document {
	docs := make([]llm.Document, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(docs) >= limit {
			break
		}
		doc, ok := p.document(feed, item)
		if ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

func (p *FeedParser) document(feed *gofeed.Feed, item *gofeed.Item) (llm.Document, bool) {
	id := strings.TrimSpace(item.GUID)
	if id == "" {
		id = strings.TrimSpace(item.Link)
	}
	title := strings.TrimSpace(item.Title)

	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	content, err := HTMLToMarkdown(p.converter, body)
	if err != nil {
		content = strings.TrimSpace(body)
	}

	if id == "" || title == "" || content == "" {
		return llm.Document{}, false
	}

	metadata := map[string]any{}
	if item.Link != "" {
		metadata["url"] = item.Link
	}
	if feed.Title != "" {
		metadata["source"] = feed.Title
	}
	if item.Author != nil && item.Author.Name != "" {
		metadata["author"] = item.Author.Name
	}

	ts := p.now()
	switch {
	case item.PublishedParsed != nil:
		ts = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		ts = *item.UpdatedParsed
	}

	return llm.Document{
		ID:        id,
		Title:     title,
		Content:   content,
		Metadata:  metadata,
		Timestamp: ts,
	}, true
}
