// Package prompts builds the instruction texts sent to the chat model.
package prompts

import (
	"strings"
)

// ClassifyQuery asks the model whether answering query needs recent news,
// expecting a JSON object with "is_data_required" and "response".
func ClassifyQuery(query string) string {
	var sb strings.Builder
	sb.WriteString(`You are a helpful assistant that decides whether a user's query needs live or recent news data.

Reply with a single JSON object and nothing else:
{
  "is_data_required": boolean,
  "response": string
}

Rules:
1. If the query is about current events, breaking news, politics, sports results, markets, weather updates or anything else time-sensitive, set "is_data_required" to true and use "response" to explain briefly why news data is needed.
2. Otherwise (general knowledge, small talk, history, science, definitions, jokes), set "is_data_required" to false and use "response" to answer the query politely. Mention that you are a news bot and invite the user to ask about the latest news.

Examples:

User Query: "Who won the cricket match yesterday?"
Output:
{
  "is_data_required": true,
  "response": "This needs news data because it asks for the result of a recent cricket match."
}

User Query: "What is the capital of France?"
Output:
{
  "is_data_required": false,
  "response": "The capital of France is Paris. I am a news bot, so ask me about current events to get the most out of me."
}

---

Now classify this user query and return the JSON object:

"`)
	sb.WriteString(query)
	sb.WriteString("\"\n")
	return sb.String()
}
