// Package client talks to the chat HTTP API and republishes streamed replies
// as broker events for the terminal UI.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"newsrag/llm"
	"newsrag/pubsub"
)

// Message is the payload of every broker event.
type Message struct {
	Role      llm.Role
	Content   string
	SessionID string
	Err       error
}

// Client is safe for concurrent use, but turns of one session should be sent
// one after another.
type Client struct {
	baseURL string
	http    *http.Client
	broker  *pubsub.Broker[Message]

	mu        sync.RWMutex
	sessionID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Streams are long lived, so
// it should not set a short overall timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithSessionID resumes an existing conversation.
func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = id }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: http.DefaultTransport},
		broker:  pubsub.NewBroker[Message](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Broker returns the event source the UI subscribes to.
func (c *Client) Broker() *pubsub.Broker[Message] {
	return c.broker
}

// SessionID returns the current session, empty before the first reply.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Close shuts the broker down.
func (c *Client) Close() {
	c.broker.Shutdown()
}

type streamFrame struct {
	Type         string `json:"type"`
	Content      string `json:"content"`
	SessionID    string `json:"sessionId"`
	FullResponse string `json:"fullResponse"`
	Message      string `json:"message"`
}

// Send starts or continues the conversation with query and publishes the
// reply as it streams. The returned error is also published as FailedEvent.
func (c *Client) Send(ctx context.Context, query string) error {
	sessionID := c.SessionID()
	c.broker.Publish(pubsub.StartedEvent, Message{Role: llm.RoleUser, Content: query, SessionID: sessionID})

	err := c.send(ctx, query, sessionID)
	if err != nil {
		c.broker.Publish(pubsub.FailedEvent, Message{Role: llm.RoleAssistant, SessionID: sessionID, Err: err})
	}
	return err
}

func (c *Client) send(ctx context.Context, query, sessionID string) error {
	path := "/chat/start-stream"
	body := map[string]string{"query": query}
	if sessionID != "" {
		path = "/chat/continue-stream"
		body["sessionId"] = sessionID
	}

	resp, err := c.post(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	completed := false
	err = readFrames(resp.Body, func(f streamFrame) error {
		switch f.Type {
		case "chunk":
			c.broker.Publish(pubsub.ChunkEvent, Message{Role: llm.RoleAssistant, Content: f.Content, SessionID: sessionID})
		case "complete":
			if f.SessionID != "" {
				c.mu.Lock()
				c.sessionID = f.SessionID
				c.mu.Unlock()
				sessionID = f.SessionID
			}
			completed = true
			c.broker.Publish(pubsub.CompletedEvent, Message{Role: llm.RoleAssistant, Content: f.FullResponse, SessionID: sessionID})
		case "error":
			return errors.Errorf("server error: %s", f.Message)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !completed {
		return errors.New("stream ended without a complete event")
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "POST %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

// History fetches the stored conversation of the current session.
func (c *Client) History(ctx context.Context) (llm.Conversation, error) {
	sessionID := c.SessionID()
	if sessionID == "" {
		return llm.Conversation{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/chat/conversation/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "GET conversation")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var out struct {
		Success      bool             `json:"success"`
		Conversation llm.Conversation `json:"conversation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode conversation")
	}
	return out.Conversation, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			msg = body.Error
		} else if body.Message != "" {
			msg = body.Message
		}
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
}

// readFrames calls fn for every `data:` line of an SSE body. Other SSE fields
// are ignored; the server only sends data lines.
func readFrames(r io.Reader, fn func(streamFrame) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var f streamFrame
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			return errors.Wrapf(err, "decode frame %q", data)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "read stream")
}
