// Package api exposes the query pipeline over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	xhttp "FinSight/pkg/http"
	applogger "FinSight/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// maxUploadBytes caps document uploads; the inline upload path rejects
// larger payloads anyway.
const maxUploadBytes = 20 << 20

// QueryProcessor runs one routed query end to end.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string, progress domrepo.ProgressFunc) *models.QueryResult
}

// ChatGenerator replays a multi-turn exchange through the model.
type ChatGenerator interface {
	ChatCompletion(ctx context.Context, messages []models.ChatMessage) string
}

// DocumentAnalyzer answers a question about an uploaded binary document.
type DocumentAnalyzer interface {
	AnalyzeUploadedDocument(ctx context.Context, data []byte, query, filename string) string
}

// QueryEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type QueryEchoHandler struct {
	logger   *applogger.Logger
	orch     QueryProcessor
	chat     ChatGenerator
	document DocumentAnalyzer
	upgrader websocket.Upgrader
}

func NewQueryEchoHandler(logger *applogger.Logger, orch QueryProcessor, chat ChatGenerator, document DocumentAnalyzer) *QueryEchoHandler {
	return &QueryEchoHandler{
		logger:   logger,
		orch:     orch,
		chat:     chat,
		document: document,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// CORS is handled at the server layer; the socket accepts
			// any origin the middleware let through.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *QueryEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/query", h.Query)
	g.GET("/query/ws", h.QueryWS)
	g.POST("/document", h.Document)
}

// Query runs one routed query and returns the final result. Requests that
// carry prior turns bypass routing and replay the exchange as a chat
// completion.
func (h *QueryEchoHandler) Query(c echo.Context) error {
	req := &models.QueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()

	if len(req.History) > 0 {
		text := h.chat.ChatCompletion(ctx, appendUserTurn(req.History, req.Query))
		return xhttp.SuccessResponse(c, &models.QueryResult{Response: text})
	}

	result := h.orch.ProcessQuery(ctx, req.Query, nil)
	return xhttp.SuccessResponse(c, result)
}

// wsFrame is one message on the streaming query socket. Progress frames
// carry agent and message, the closing frame carries the result.
type wsFrame struct {
	Type    string              `json:"type"`
	Agent   string              `json:"agent,omitempty"`
	Message string              `json:"message,omitempty"`
	Result  *models.QueryResult `json:"result,omitempty"`
}

// QueryWS streams progress updates over a websocket while the query runs.
// The client sends one QueryRequest as its first message and receives
// progress frames followed by a single result frame.
func (h *QueryEchoHandler) QueryWS(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", applogger.Error(err))
		}
		return err
	}
	defer ws.Close()

	var req models.QueryRequest
	if err := ws.ReadJSON(&req); err != nil {
		_ = ws.WriteJSON(wsFrame{Type: "error", Message: "invalid request payload"})
		return nil
	}
	if strings.TrimSpace(req.Query) == "" {
		_ = ws.WriteJSON(wsFrame{Type: "error", Message: "query is required"})
		return nil
	}

	ctx := c.Request().Context()

	if len(req.History) > 0 {
		text := h.chat.ChatCompletion(ctx, appendUserTurn(req.History, req.Query))
		return ws.WriteJSON(wsFrame{Type: "result", Result: &models.QueryResult{Response: text}})
	}

	// ProcessQuery reports progress synchronously from its own goroutine,
	// so writing frames from the callback is safe.
	result := h.orch.ProcessQuery(ctx, req.Query, func(agent, message string) {
		if err := ws.WriteJSON(wsFrame{Type: "progress", Agent: agent, Message: message}); err != nil && h.logger != nil {
			h.logger.Warn("progress frame write failed", applogger.Error(err))
		}
	})

	return ws.WriteJSON(wsFrame{Type: "result", Result: result})
}

// Document analyzes an uploaded PDF against an optional question sent as a
// multipart form field.
func (h *QueryEchoHandler) Document(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_REQUIRED",
			Field:   "file",
			Message: "file is required",
		}})
	}
	if file.Size > maxUploadBytes {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_MAX",
			Field:   "file",
			Message: "file exceeds the 20MB upload limit",
		}})
	}

	src, err := file.Open()
	if err != nil {
		if h.logger != nil {
			h.logger.Error("upload open error", applogger.Error(err))
		}
		return xhttp.InternalServerErrorResponse(c)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		if h.logger != nil {
			h.logger.Error("upload read error", applogger.Error(err))
		}
		return xhttp.InternalServerErrorResponse(c)
	}

	query := c.FormValue("query")
	text := h.document.AnalyzeUploadedDocument(c.Request().Context(), data, query, file.Filename)
	return xhttp.SuccessResponse(c, &models.QueryResult{Response: text})
}

func appendUserTurn(history []models.ChatMessage, query string) []models.ChatMessage {
	messages := make([]models.ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	return append(messages, models.ChatMessage{Role: "user", Content: query})
}
