package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"newsrag/llm"
	"newsrag/llm/retrieval"
)

type pushDocumentRequest struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp *time.Time     `json:"timestamp"`
}

type pushDocumentResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
}

type searchResponse struct {
	Query   string             `json:"query"`
	Results []llm.SearchResult `json:"results"`
	Count   int                `json:"count"`
}

func (s *Server) handlePushDocument(c echo.Context) error {
	var req pushDocumentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return badRequest(c, "id, title, and content are required")
	}

	doc := llm.Document{
		ID:       req.ID,
		Title:    req.Title,
		Content:  req.Content,
		Metadata: req.Metadata,
	}
	if req.Timestamp != nil {
		doc.Timestamp = *req.Timestamp
	}

	if err := s.docs.IndexDocument(c.Request().Context(), doc); err != nil {
		s.log.Error().Err(err).Str("document_id", req.ID).Msg("failed to push document")
		return internalError(c, "Failed to push document", err)
	}

	return c.JSON(http.StatusCreated, pushDocumentResponse{
		Message:    "Document pushed successfully",
		DocumentID: req.ID,
	})
}

func (s *Server) handleSearchDocuments(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("query"))
	if query == "" {
		return badRequest(c, "Query parameter is required")
	}

	topK := retrieval.DefaultTopK
	if raw := c.QueryParam("topK"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			topK = n
		}
	}

	results, err := s.docs.Search(c.Request().Context(), query, topK)
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Msg("failed to search documents")
		return internalError(c, "Failed to search documents", err)
	}
	if results == nil {
		results = []llm.SearchResult{}
	}

	return c.JSON(http.StatusOK, searchResponse{
		Query:   query,
		Results: results,
		Count:   len(results),
	})
}
