// Package chat runs a conversation turn: classify the query, optionally
// retrieve news, generate the answer and persist the session.
package chat

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"newsrag/llm"
	"newsrag/llm/generation"
	"newsrag/llm/prompts"
	"newsrag/llm/session"
)

// DefaultNewsTopK is the number of articles retrieved for a news query.
const DefaultNewsTopK = 10

// State is a step of a conversation turn.
type State string

const (
	StateReceived         State = "received"
	StateClassifying      State = "classifying"
	StateNonNewsAnswering State = "non_news_answering"
	StateRetrieving       State = "retrieving"
	StateGenerating       State = "generating"
	StatePersisting       State = "persisting"
	StateComplete         State = "complete"
)

var errConsumerGone = errors.New("stream consumer closed")

// Retriever finds news articles for a query.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]llm.SearchResult, error)
}

// Generator produces model output in full or as a stream of fragments.
type Generator interface {
	Generate(ctx context.Context, messages []*schema.Message) (string, error)
	Stream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[string], error)
}

// Orchestrator is long-lived and safe for concurrent use.
type Orchestrator struct {
	retriever    Retriever
	generator    Generator
	sessions     session.Store
	locker       Locker
	newsTopK     int
	newSessionID func() string
	log          zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLocker installs per-session serialization.
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

// WithNewsTopK sets how many articles a news answer is based on.
func WithNewsTopK(k int) Option {
	return func(o *Orchestrator) {
		if k > 0 {
			o.newsTopK = k
		}
	}
}

// WithSessionIDFunc replaces the session id generator.
func WithSessionIDFunc(f func() string) Option {
	return func(o *Orchestrator) { o.newSessionID = f }
}

// New creates an orchestrator over its three collaborators.
func New(retriever Retriever, generator Generator, sessions session.Store, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		retriever:    retriever,
		generator:    generator,
		sessions:     sessions,
		locker:       NoopLocker{},
		newsTopK:     DefaultNewsTopK,
		newSessionID: TimestampSessionIDs(time.Now),
		log:          log.With().Str("component", "chat").Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartConversation answers the first query of a new session. The complete
// event carries the new session id.
func (o *Orchestrator) StartConversation(ctx context.Context, query string) *schema.StreamReader[Event] {
	return o.run(ctx, turn{query: query, sessionID: o.newSessionID(), isNew: true})
}

// ContinueConversation answers a follow-up query in an existing session.
// An unknown session id behaves like an empty session.
func (o *Orchestrator) ContinueConversation(ctx context.Context, query, sessionID string) *schema.StreamReader[Event] {
	return o.run(ctx, turn{query: query, sessionID: sessionID})
}

// History returns the stored conversation, empty for unknown sessions.
func (o *Orchestrator) History(ctx context.Context, sessionID string) (llm.Conversation, error) {
	conv, err := o.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, kinded(llm.KindSessionStore, "chat.History", err)
	}
	return conv, nil
}

type turn struct {
	query     string
	sessionID string
	isNew     bool
}

func (o *Orchestrator) run(ctx context.Context, t turn) *schema.StreamReader[Event] {
	sr, sw := schema.Pipe[Event](4)

	go func() {
		// Closing the reader or cancelling ctx stops the provider call.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		defer sw.Close()

		log := o.log.With().Str("session_id", t.sessionID).Bool("new_session", t.isNew).Logger()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("conversation turn panicked")
				sw.Send(Event{}, llm.Errorf(llm.KindGeneration, "chat.run", "internal error: %v", r))
			}
		}()

		start := time.Now()
		err := o.respond(ctx, t, sw, log)
		switch {
		case err == nil:
			log.Info().Dur("elapsed", time.Since(start)).Msg("turn completed")
		case errors.Is(err, errConsumerGone):
			log.Warn().Dur("elapsed", time.Since(start)).Msg("client disconnected, turn discarded")
		case ctx.Err() != nil:
			log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("turn cancelled, nothing persisted")
			sw.Send(Event{}, err)
		default:
			log.Error().Err(err).Str("kind", string(llm.KindOf(err))).Msg("turn failed")
			sw.Send(Event{}, err)
		}
	}()

	return sr
}

func (o *Orchestrator) respond(ctx context.Context, t turn, sw *schema.StreamWriter[Event], log zerolog.Logger) error {
	const op = "chat.respond"
	step := func(s State) { log.Debug().Str("state", string(s)).Msg("turn state") }

	step(StateReceived)
	unlock, err := o.locker.Lock(ctx, t.sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	history := llm.Conversation{}
	if !t.isNew {
		if history, err = o.sessions.Load(ctx, t.sessionID); err != nil {
			return kinded(llm.KindSessionStore, op, err)
		}
	}

	step(StateClassifying)
	cls, err := o.classify(ctx, t.query)
	if err != nil {
		return err
	}

	var full string
	if !cls.RequiresLiveData {
		step(StateNonNewsAnswering)
		full = cls.FallbackResponse
		if sw.Send(Event{Type: EventChunk, Content: full}, nil) {
			return errConsumerGone
		}
	} else {
		step(StateRetrieving)
		results, err := o.retriever.Search(ctx, t.query, o.newsTopK)
		if err != nil {
			return kinded(llm.KindSearch, op, err)
		}
		log.Debug().Int("results", len(results)).Msg("news retrieved")

		step(StateGenerating)
		// The model sees the augmented prompt; history keeps the bare query.
		messages := append(generation.Messages(history),
			schema.UserMessage(prompts.AnswerFromNews(t.query, results)))
		if full, err = o.streamAnswer(ctx, messages, sw); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	step(StatePersisting)
	if err := o.sessions.Save(ctx, t.sessionID, history.Append(t.query, full)); err != nil {
		return kinded(llm.KindSessionStore, op, err)
	}

	step(StateComplete)
	sw.Send(Event{Type: EventComplete, SessionID: t.sessionID, FullResponse: full}, nil)
	return nil
}

func (o *Orchestrator) classify(ctx context.Context, query string) (llm.Classification, error) {
	const op = "chat.classify"

	raw, err := o.generator.Generate(ctx, []*schema.Message{schema.UserMessage(prompts.ClassifyQuery(query))})
	if err != nil {
		return llm.Classification{}, kinded(llm.KindGeneration, op, err)
	}

	cls, err := parseClassification(raw)
	if err != nil {
		o.log.Warn().Err(err).Str("raw", truncate(raw, 200)).Msg("unparseable classification")
		return llm.Classification{}, llm.E(llm.KindClassificationParse, op, err)
	}
	return cls, nil
}

// streamAnswer forwards generated fragments as chunk events and returns the
// concatenated text.
func (o *Orchestrator) streamAnswer(ctx context.Context, messages []*schema.Message, sw *schema.StreamWriter[Event]) (string, error) {
	const op = "chat.streamAnswer"

	sr, err := o.generator.Stream(ctx, messages)
	if err != nil {
		return "", kinded(llm.KindGeneration, op, err)
	}
	defer sr.Close()

	var sb strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", kinded(llm.KindGeneration, op, err)
		}
		sb.WriteString(chunk)
		if sw.Send(Event{Type: EventChunk, Content: chunk}, nil) {
			return "", errConsumerGone
		}
	}
}

// kinded keeps an existing kind and assigns one otherwise.
func kinded(kind llm.Kind, op string, err error) error {
	if llm.KindOf(err) != "" {
		return err
	}
	return llm.E(kind, op, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// TimestampSessionIDs returns a generator of Unix-millisecond session ids.
// Ids issued by one generator strictly increase, so two sessions started in
// the same millisecond by this process still get distinct keys.
func TimestampSessionIDs(now func() time.Time) func() string {
	var last atomic.Int64
	return func() string {
		for {
			prev := last.Load()
			next := now().UnixMilli()
			if next <= prev {
				next = prev + 1
			}
			if last.CompareAndSwap(prev, next) {
				return strconv.FormatInt(next, 10)
			}
		}
	}
}
