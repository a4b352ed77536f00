package retrieval

import (
	"fmt"
	"time"

	"newsrag/llm"
)

const (
	payloadID        = "id"
	payloadTitle     = "title"
	payloadContent   = "content"
	payloadMetadata  = "metadata"
	payloadTimestamp = "timestamp"
)

func toPayload(doc llm.Document) map[string]any {
	return map[string]any{
		payloadID:        doc.ID,
		payloadTitle:     doc.Title,
		payloadContent:   doc.Content,
		payloadMetadata:  doc.Metadata,
		payloadTimestamp: doc.Timestamp.Format(time.RFC3339Nano),
	}
}

// fromPayload rebuilds a document. Missing required fields are an error;
// absent metadata reads as an empty map.
func fromPayload(p map[string]any) (llm.Document, error) {
	var doc llm.Document
	var err error

	if doc.ID, err = requireString(p, payloadID); err != nil {
		return doc, err
	}
	if doc.Title, err = requireString(p, payloadTitle); err != nil {
		return doc, err
	}
	if doc.Content, err = requireString(p, payloadContent); err != nil {
		return doc, err
	}

	ts, err := requireString(p, payloadTimestamp)
	if err != nil {
		return doc, err
	}
	if doc.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return doc, fmt.Errorf("payload field %q: %w", payloadTimestamp, err)
	}

	switch m := p[payloadMetadata].(type) {
	case nil:
		doc.Metadata = map[string]any{}
	case map[string]any:
		doc.Metadata = m
	default:
		return doc, fmt.Errorf("payload field %q has type %T", payloadMetadata, m)
	}
	return doc, nil
}

func requireString(p map[string]any, key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("payload missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("payload field %q has type %T", key, v)
	}
	return s, nil
}
