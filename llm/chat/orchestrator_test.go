package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrag/llm"
	"newsrag/llm/generation"
	"newsrag/llm/generation/generationtest"
	"newsrag/llm/session"
)

const (
	franceQuery    = "What is the capital of France?"
	franceFallback = "The capital of France is Paris. I am a news bot, ask me about the latest news!"
)

type stubRetriever struct {
	mu      sync.Mutex
	results []llm.SearchResult
	err     error
	queries []string
	topKs   []int
}

func (r *stubRetriever) Search(_ context.Context, query string, topK int) ([]llm.SearchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	r.topKs = append(r.topKs, topK)
	return r.results, r.err
}

func noNewsReply(response string) string {
	return "```json\n{\"is_data_required\": false, \"response\": \"" + response + "\"}\n```"
}

const newsReply = `{"is_data_required": true, "response": "This needs recent news."}`

type harness struct {
	model     *generationtest.ChatModel
	retriever *stubRetriever
	sessions  *session.MemoryStore
	orch      *Orchestrator
}

func newHarness(model *generationtest.ChatModel, retriever *stubRetriever, opts ...Option) *harness {
	if retriever == nil {
		retriever = &stubRetriever{}
	}
	sessions := session.NewMemoryStore()
	opts = append([]Option{WithSessionIDFunc(func() string { return "1726394400000" })}, opts...)
	orch := New(retriever, generation.NewGateway(model, zerolog.Nop()), sessions, zerolog.Nop(), opts...)
	return &harness{model: model, retriever: retriever, sessions: sessions, orch: orch}
}

func marketResults() []llm.SearchResult {
	return []llm.SearchResult{{
		ID:    "markets-1",
		Score: 0.93,
		Document: llm.Document{
			ID:        "markets-1",
			Title:     "Stock Market Sees Gains",
			Content:   "The stock market rose by 2% today led by tech stocks.",
			Metadata:  map[string]any{"url": "https://news.example.com/markets"},
			Timestamp: time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC),
		},
	}}
}

func TestStartConversationWithoutNewsStreamsFallbackOnce(t *testing.T) {
	h := newHarness(&generationtest.ChatModel{Replies: []string{noNewsReply(franceFallback)}}, nil)
	ctx := context.Background()

	var chunks []string
	complete, err := Drain(h.orch.StartConversation(ctx, franceQuery), func(c string) { chunks = append(chunks, c) })
	require.NoError(t, err)

	assert.Equal(t, []string{franceFallback}, chunks)
	assert.Equal(t, "1726394400000", complete.SessionID)
	assert.Equal(t, franceFallback, complete.FullResponse)
	assert.Empty(t, h.model.StreamCalls())
	assert.Empty(t, h.retriever.queries)

	history, err := h.orch.History(ctx, complete.SessionID)
	require.NoError(t, err)
	assert.Equal(t, llm.Conversation{
		{Role: llm.RoleUser, Text: franceQuery},
		{Role: llm.RoleAssistant, Text: franceFallback},
	}, history)
}

func TestStartConversationWithNewsStreamsGeneratedAnswer(t *testing.T) {
	model := &generationtest.ChatModel{
		Replies: []string{newsReply},
		Chunks:  []string{"Markets ", "rose ", "2%."},
	}
	retriever := &stubRetriever{results: marketResults()}
	h := newHarness(model, retriever)
	ctx := context.Background()

	var chunks []string
	complete, err := Drain(h.orch.StartConversation(ctx, "latest on the stock market?"), func(c string) { chunks = append(chunks, c) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Markets ", "rose ", "2%."}, chunks)
	assert.Equal(t, "Markets rose 2%.", complete.FullResponse)
	assert.Equal(t, []int{DefaultNewsTopK}, retriever.topKs)

	calls := model.StreamCalls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 1)
	prompt := calls[0][0].Content
	assert.Contains(t, prompt, "User Query: latest on the stock market?")
	assert.Contains(t, prompt, "Stock Market Sees Gains")

	history, err := h.orch.History(ctx, complete.SessionID)
	require.NoError(t, err)
	assert.Equal(t, llm.Conversation{}.Append("latest on the stock market?", "Markets rose 2%."), history)
}

func TestContinueConversationAppendsTwoTurns(t *testing.T) {
	model := &generationtest.ChatModel{
		Replies: []string{newsReply},
		Chunks:  []string{"Tech ", "led."},
	}
	h := newHarness(model, &stubRetriever{results: marketResults()})
	ctx := context.Background()

	prior := llm.Conversation{}.Append("hello", "Hi! Ask me about the news.")
	require.NoError(t, h.sessions.Save(ctx, "s-42", prior))

	complete, err := Drain(h.orch.ContinueConversation(ctx, "what moved markets?", "s-42"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Tech led.", complete.FullResponse)

	calls := model.StreamCalls()
	require.Len(t, calls, 1)
	sent := calls[0]
	require.Len(t, sent, 3)
	assert.Equal(t, "hello", sent[0].Content)
	assert.Equal(t, "Hi! Ask me about the news.", sent[1].Content)
	assert.NotEqual(t, "what moved markets?", sent[2].Content)
	assert.Contains(t, sent[2].Content, "User Query: what moved markets?")

	history, err := h.orch.History(ctx, "s-42")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, prior, history[:2])
	assert.Equal(t, llm.Turn{Role: llm.RoleUser, Text: "what moved markets?"}, history[2])
	assert.Equal(t, llm.Turn{Role: llm.RoleAssistant, Text: "Tech led."}, history[3])
	assert.NoError(t, history.Validate())
}

func TestContinueConversationWithoutNews(t *testing.T) {
	h := newHarness(&generationtest.ChatModel{Replies: []string{noNewsReply("Sure, here is a joke.")}}, nil)
	ctx := context.Background()

	prior := llm.Conversation{}.Append("q1", "a1")
	require.NoError(t, h.sessions.Save(ctx, "s-1", prior))

	complete, err := Drain(h.orch.ContinueConversation(ctx, "tell me a joke", "s-1"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Sure, here is a joke.", complete.FullResponse)

	history, err := h.orch.History(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, prior.Append("tell me a joke", "Sure, here is a joke."), history)
}

func TestContinueUnknownSessionStartsEmpty(t *testing.T) {
	h := newHarness(&generationtest.ChatModel{Replies: []string{noNewsReply("ok")}}, nil)
	ctx := context.Background()

	_, err := Drain(h.orch.ContinueConversation(ctx, "hi", "never-seen"), nil)
	require.NoError(t, err)

	history, err := h.orch.History(ctx, "never-seen")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestClassificationParseFailureDoesNotPersist(t *testing.T) {
	h := newHarness(&generationtest.ChatModel{Replies: []string{"Yes, this probably needs the news."}}, nil)
	ctx := context.Background()

	prior := llm.Conversation{}.Append("q1", "a1")
	require.NoError(t, h.sessions.Save(ctx, "s-1", prior))

	var chunks []string
	_, err := Drain(h.orch.ContinueConversation(ctx, "anything new?", "s-1"), func(c string) { chunks = append(chunks, c) })
	require.Error(t, err)
	assert.Equal(t, llm.KindClassificationParse, llm.KindOf(err))
	assert.Empty(t, chunks)
	assert.Empty(t, h.model.StreamCalls())

	history, err := h.orch.History(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, prior, history)
}

func TestStartConversationClassificationFailureLeavesNoSession(t *testing.T) {
	h := newHarness(&generationtest.ChatModel{GenerateErr: errors.New("quota exceeded")}, nil)
	ctx := context.Background()

	_, err := Drain(h.orch.StartConversation(ctx, "news?"), nil)
	require.Error(t, err)
	assert.Equal(t, llm.KindGeneration, llm.KindOf(err))

	history, err := h.orch.History(ctx, "1726394400000")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMidStreamFailureDoesNotPersist(t *testing.T) {
	model := &generationtest.ChatModel{
		Replies:   []string{newsReply},
		Chunks:    []string{"Markets ", "were "},
		StreamErr: errors.New("connection reset"),
	}
	h := newHarness(model, &stubRetriever{results: marketResults()})
	ctx := context.Background()

	prior := llm.Conversation{}.Append("q1", "a1")
	require.NoError(t, h.sessions.Save(ctx, "s-1", prior))

	var chunks []string
	_, err := Drain(h.orch.ContinueConversation(ctx, "markets?", "s-1"), func(c string) { chunks = append(chunks, c) })
	require.Error(t, err)
	assert.Equal(t, llm.KindGeneration, llm.KindOf(err))
	assert.Equal(t, []string{"Markets ", "were "}, chunks)

	history, err := h.orch.History(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, prior, history)
}

func TestRetrievalFailureAbortsBeforeGeneration(t *testing.T) {
	model := &generationtest.ChatModel{Replies: []string{newsReply}, Chunks: []string{"never"}}
	retriever := &stubRetriever{err: llm.E(llm.KindEmbedding, "retrieval.Search", errors.New("jina down"))}
	h := newHarness(model, retriever)
	ctx := context.Background()

	_, err := Drain(h.orch.StartConversation(ctx, "news?"), nil)
	require.Error(t, err)
	assert.Equal(t, llm.KindEmbedding, llm.KindOf(err))
	assert.Empty(t, model.StreamCalls())

	history, err := h.orch.History(ctx, "1726394400000")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestEmptySearchResultsStillComplete(t *testing.T) {
	model := &generationtest.ChatModel{
		Replies: []string{newsReply},
		Chunks:  []string{"I couldn't find news about that."},
	}
	h := newHarness(model, &stubRetriever{})
	ctx := context.Background()

	complete, err := Drain(h.orch.StartConversation(ctx, "who won the local election?"), nil)
	require.NoError(t, err)
	assert.Equal(t, "I couldn't find news about that.", complete.FullResponse)

	calls := model.StreamCalls()
	require.Len(t, calls, 1)
	prompt := calls[0][len(calls[0])-1].Content
	assert.True(t, strings.HasSuffix(prompt, "News Data: [] (no results)\n"))
	assert.NotContains(t, prompt, `"document":{`)
}

func TestCancelledStreamDoesNotPersist(t *testing.T) {
	model := &generationtest.ChatModel{
		Replies:  []string{newsReply},
		Chunks:   []string{"first "},
		HoldOpen: true,
	}
	h := newHarness(model, &stubRetriever{results: marketResults()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var chunks []string
	_, err := Drain(h.orch.StartConversation(ctx, "markets?"), func(c string) {
		chunks = append(chunks, c)
		cancel()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first "}, chunks)

	history, err := h.orch.History(context.Background(), "1726394400000")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSessionStoreFailureIsReported(t *testing.T) {
	model := &generationtest.ChatModel{Replies: []string{noNewsReply("hi")}}
	store := &failingStore{err: errors.New("redis: connection refused")}
	orch := New(&stubRetriever{}, generation.NewGateway(model, zerolog.Nop()), store, zerolog.Nop())

	_, err := Drain(orch.ContinueConversation(context.Background(), "hi", "s-1"), nil)
	assert.Equal(t, llm.KindSessionStore, llm.KindOf(err))

	_, err = orch.History(context.Background(), "s-1")
	assert.Equal(t, llm.KindSessionStore, llm.KindOf(err))
}

func TestKeyedMutexSerializesSameSession(t *testing.T) {
	model := &generationtest.ChatModel{Replies: []string{noNewsReply("ok")}}
	h := newHarness(model, nil, WithLocker(NewKeyedMutex()))
	ctx := context.Background()

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Drain(h.orch.ContinueConversation(ctx, "ping", "shared"), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := h.orch.History(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, history, 2*turns)
	assert.NoError(t, history.Validate())
}

type failingStore struct{ err error }

func (f *failingStore) Load(context.Context, string) (llm.Conversation, error) { return nil, f.err }
func (f *failingStore) Save(context.Context, string, llm.Conversation) error  { return f.err }

func TestTimestampSessionIDsStrictlyIncrease(t *testing.T) {
	fixed := time.UnixMilli(1726394400000)
	next := TimestampSessionIDs(func() time.Time { return fixed })

	assert.Equal(t, "1726394400000", next())
	assert.Equal(t, "1726394400001", next())
	assert.Equal(t, "1726394400002", next())
}
