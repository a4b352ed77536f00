package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"newsrag/llm"
)

type classificationJSON struct {
	IsDataRequired *bool   `json:"is_data_required"`
	Response       *string `json:"response"`
}

// parseClassification strips code fences from the model output and decodes
// exactly one JSON object with both fields present.
func parseClassification(raw string) (llm.Classification, error) {
	text := stripCodeFences(raw)

	dec := json.NewDecoder(strings.NewReader(text))
	var out classificationJSON
	if err := dec.Decode(&out); err != nil {
		return llm.Classification{}, fmt.Errorf("invalid classification JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return llm.Classification{}, fmt.Errorf("unexpected data after classification JSON")
	}
	if out.IsDataRequired == nil {
		return llm.Classification{}, fmt.Errorf("classification missing %q", "is_data_required")
	}
	if out.Response == nil {
		return llm.Classification{}, fmt.Errorf("classification missing %q", "response")
	}

	return llm.Classification{
		RequiresLiveData: *out.IsDataRequired,
		FallbackResponse: *out.Response,
	}, nil
}

// stripCodeFences removes ``` and ```json markers wherever they appear.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
