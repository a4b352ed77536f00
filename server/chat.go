package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/labstack/echo/v4"

	"newsrag/llm"
	"newsrag/llm/chat"
)

const generationFailedMessage = "Failed to generate response"

type startStreamRequest struct {
	Query string `json:"query"`
}

type continueStreamRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

type streamEvent struct {
	Type         string  `json:"type"`
	Content      string  `json:"content,omitempty"`
	SessionID    *string `json:"sessionId,omitempty"`
	FullResponse *string `json:"fullResponse,omitempty"`
	Message      string  `json:"message,omitempty"`
}

type conversationResponse struct {
	Success      bool             `json:"success"`
	SessionID    string           `json:"sessionId"`
	Conversation llm.Conversation `json:"conversation"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleStartStream(c echo.Context) error {
	var req startStreamRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return badRequest(c, "query is required")
	}

	sr := s.chat.StartConversation(c.Request().Context(), req.Query)
	return s.streamEvents(c, sr, true)
}

func (s *Server) handleContinueStream(c echo.Context) error {
	var req continueStreamRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.SessionID) == "" {
		return badRequest(c, "query and sessionId are required")
	}

	sr := s.chat.ContinueConversation(c.Request().Context(), req.Query, req.SessionID)
	return s.streamEvents(c, sr, false)
}

// streamEvents relays a conversation stream as SSE frames. The response is
// always ended here, with a complete or an error event as the last frame.
func (s *Server) streamEvents(c echo.Context, sr *schema.StreamReader[chat.Event], withSessionID bool) error {
	defer sr.Close()

	w, err := newSSEWriter(c)
	if err != nil {
		return err
	}

	for {
		ev, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if c.Request().Context().Err() != nil {
				return nil
			}
			s.log.Error().Err(err).Str("kind", string(llm.KindOf(err))).Msg("chat stream failed")
			return w.send(streamEvent{Type: "error", Message: generationFailedMessage})
		}

		var out streamEvent
		switch ev.Type {
		case chat.EventChunk:
			out = streamEvent{Type: string(chat.EventChunk), Content: ev.Content}
		case chat.EventComplete:
			full := ev.FullResponse
			out = streamEvent{Type: string(chat.EventComplete), FullResponse: &full}
			if withSessionID {
				id := ev.SessionID
				out.SessionID = &id
			}
		default:
			continue
		}
		if err := w.send(out); err != nil {
			// Client went away; closing the reader stops generation.
			s.log.Warn().Err(err).Msg("failed to write SSE frame")
			return nil
		}
	}
}

func (s *Server) handleConversation(c echo.Context) error {
	sessionID := c.Param("sessionId")

	conv, err := s.chat.History(c.Request().Context(), sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to retrieve conversation")
		return c.JSON(http.StatusInternalServerError, failureResponse{
			Success: false,
			Message: "Failed to retrieve conversation",
		})
	}
	if conv == nil {
		conv = llm.Conversation{}
	}

	return c.JSON(http.StatusOK, conversationResponse{
		Success:      true,
		SessionID:    sessionID,
		Conversation: conv,
	})
}
