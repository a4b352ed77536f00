package llm

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document represents a news article stored in the vector index
type Document struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
}

// WithDefaults returns a copy with an empty metadata map and the given
// ingestion time filled in where the caller left them unset.
func (d Document) WithDefaults(now time.Time) Document {
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = now
	}
	return d
}

// EmbeddingText is the text embedded for a document: title and content
// separated by a blank line.
func (d Document) EmbeddingText() string {
	return d.Title + "\n\n" + d.Content
}

// SearchResult represents a search result with relevance score
type SearchResult struct {
	ID       string   `json:"id"`
	Score    float32  `json:"score"`
	Document Document `json:"document"`
}

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role Role
	Text string
}

type turnPart struct {
	Text string `json:"text"`
}

type turnJSON struct {
	Role  Role       `json:"role"`
	Parts []turnPart `json:"parts"`
}

// MarshalJSON writes a turn as {"role":..., "parts":[{"text":...}]}, the
// layout persisted sessions and API clients already use.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(turnJSON{Role: t.Role, Parts: []turnPart{{Text: t.Text}}})
}

// UnmarshalJSON reads the parts layout; multiple parts are concatenated.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw turnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Role = raw.Role
	t.Text = ""
	for _, p := range raw.Parts {
		t.Text += p.Text
	}
	return nil
}

// Conversation is the ordered, append-only turn list of a session.
type Conversation []Turn

// Append returns a new conversation with the user query and assistant
// response added. The receiver is never modified.
func (c Conversation) Append(query, response string) Conversation {
	out := make(Conversation, 0, len(c)+2)
	out = append(out, c...)
	return append(out,
		Turn{Role: RoleUser, Text: query},
		Turn{Role: RoleAssistant, Text: response},
	)
}

// Validate checks that turns alternate user/assistant starting with user and
// that the conversation ends on an assistant turn.
func (c Conversation) Validate() error {
	if len(c)%2 != 0 {
		return fmt.Errorf("conversation has odd number of turns: %d", len(c))
	}
	for i, t := range c {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		if t.Role != want {
			return fmt.Errorf("turn %d has role %q, want %q", i, t.Role, want)
		}
	}
	return nil
}

// Classification is the model's verdict on whether a query needs news data.
type Classification struct {
	RequiresLiveData bool
	FallbackResponse string
}
