package prompts

import (
	"encoding/json"
	"strings"

	"newsrag/llm"
)

// NoResultsMarker is written in place of the news data when a search found
// nothing, so the model cannot mistake the gap for content.
const NoResultsMarker = "no results"

// AnswerFromNews asks the model to answer query using only the given search
// results. Results are embedded as JSON in ranked order.
func AnswerFromNews(query string, results []llm.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(`You are a helpful assistant that answers the user's query using the news data provided below.

Each news data item has this structure:
{
  "id": string,
  "score": number,
  "document": {
    "id": string,
    "title": string,
    "content": string,
    "metadata": object,
    "timestamp": string
  }
}

Instructions:
1. Prefer the most relevant items; a higher score means more relevant.
2. Combine information from several items into one coherent answer, using title, content, timestamp and metadata where useful. The answer does not need to be short.
3. If an item's metadata contains a source URL, cite at most two such URLs at the end of the answer.
4. If nothing relevant is found, say politely that you could not find news for this exact query, then suggest a few other topics from the available items, for example: "But if you want, I can share more about: - <topic1> - <topic2>".
5. If the news data says "`)
	sb.WriteString(NoResultsMarker)
	sb.WriteString(`", there are no articles at all: say so and do not describe any articles.
6. Never invent details that are not present in the news data.

Reply with plain text only, not JSON.

---

User Query: `)
	sb.WriteString(query)
	sb.WriteString("\n\nNews Data: ")

	data, err := json.Marshal(results)
	if err != nil {
		// Metadata that cannot be encoded is dropped rather than failing the answer.
		data, err = marshalWithoutMetadata(results)
	}
	if len(results) == 0 || err != nil {
		sb.WriteString("[] (")
		sb.WriteString(NoResultsMarker)
		sb.WriteString(")\n")
		return sb.String()
	}
	sb.Write(data)
	sb.WriteString("\n")
	return sb.String()
}

func marshalWithoutMetadata(results []llm.SearchResult) ([]byte, error) {
	stripped := make([]llm.SearchResult, len(results))
	for i, r := range results {
		r.Document.Metadata = map[string]any{}
		stripped[i] = r
	}
	return json.Marshal(stripped)
}
