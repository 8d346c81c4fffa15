package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type fakeProcessor struct {
	query    string
	calls    int
	progress []string
	result   *models.QueryResult
}

func (f *fakeProcessor) ProcessQuery(ctx context.Context, query string, progress domrepo.ProgressFunc) *models.QueryResult {
	f.query = query
	f.calls++
	if progress != nil {
		progress("orchestrator", "Analyzing your query...")
		progress("market", "Fetching market data...")
	}
	return f.result
}

type fakeChat struct {
	messages []models.ChatMessage
	response string
}

func (f *fakeChat) ChatCompletion(ctx context.Context, messages []models.ChatMessage) string {
	f.messages = messages
	return f.response
}

type fakeAnalyzer struct {
	data     []byte
	query    string
	filename string
	response string
}

func (f *fakeAnalyzer) AnalyzeUploadedDocument(ctx context.Context, data []byte, query, filename string) string {
	f.data = data
	f.query = query
	f.filename = filename
	return f.response
}

func newTestHandler() (*QueryEchoHandler, *fakeProcessor, *fakeChat, *fakeAnalyzer, *echo.Echo) {
	proc := &fakeProcessor{result: &models.QueryResult{
		Response: "analysis text",
		Tickers:  []string{"AAPL"},
		Intent:   "MARKET_ANALYSIS",
	}}
	chat := &fakeChat{response: "chat reply"}
	doc := &fakeAnalyzer{response: "document summary"}

	h := NewQueryEchoHandler(nil, proc, chat, doc)
	e := echo.New()
	h.RegisterRoutes(e)
	return h, proc, chat, doc, e
}

func decodeEnvelope(t *testing.T, body []byte) (int, map[string]interface{}) {
	t.Helper()
	var envelope struct {
		Status int             `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	var data map[string]interface{}
	if len(envelope.Data) > 0 && envelope.Data[0] == '{' {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			t.Fatalf("invalid data payload: %v", err)
		}
	}
	return envelope.Status, data
}

func TestQueryRoutesWithoutHistory(t *testing.T) {
	_, proc, chat, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query":"How is AAPL doing?"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	status, data := decodeEnvelope(t, rec.Body.Bytes())
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", status, rec.Body.String())
	}
	if proc.calls != 1 || proc.query != "How is AAPL doing?" {
		t.Fatalf("processor not invoked correctly: calls=%d query=%q", proc.calls, proc.query)
	}
	if chat.messages != nil {
		t.Fatalf("chat path should not run without history")
	}
	if data["response"] != "analysis text" || data["intent"] != "MARKET_ANALYSIS" {
		t.Fatalf("unexpected payload %v", data)
	}
}

func TestQueryWithHistoryReplaysChat(t *testing.T) {
	_, proc, chat, _, e := newTestHandler()

	body := `{"query":"And the risks?","history":[{"role":"user","content":"Tell me about AAPL"},{"role":"model","content":"Apple is..."}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if proc.calls != 0 {
		t.Fatalf("routing should be bypassed when history is present")
	}
	if len(chat.messages) != 3 {
		t.Fatalf("expected 3 chat turns, got %d", len(chat.messages))
	}
	last := chat.messages[2]
	if last.Role != "user" || last.Content != "And the risks?" {
		t.Fatalf("query not appended as final user turn: %+v", last)
	}

	status, data := decodeEnvelope(t, rec.Body.Bytes())
	if status != http.StatusOK || data["response"] != "chat reply" {
		t.Fatalf("unexpected response status=%d data=%v", status, data)
	}
}

func TestQueryMissingQueryRejected(t *testing.T) {
	_, proc, _, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	status, _ := decodeEnvelope(t, rec.Body.Bytes())
	if status != http.StatusBadRequest {
		t.Fatalf("expected validation failure, got status %d", status)
	}
	if proc.calls != 0 {
		t.Fatalf("processor should not run on invalid input")
	}
}

func TestDocumentUpload(t *testing.T) {
	_, _, _, doc, e := newTestHandler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "report.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("%PDF-1.4 fake content")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.WriteField("query", "Summarize the risk factors"); err != nil {
		t.Fatalf("write form field: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/document", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	status, data := decodeEnvelope(t, rec.Body.Bytes())
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", status, rec.Body.String())
	}
	if doc.filename != "report.pdf" || doc.query != "Summarize the risk factors" {
		t.Fatalf("analyzer got filename=%q query=%q", doc.filename, doc.query)
	}
	if string(doc.data) != "%PDF-1.4 fake content" {
		t.Fatalf("analyzer got wrong payload %q", doc.data)
	}
	if data["response"] != "document summary" {
		t.Fatalf("unexpected payload %v", data)
	}
}

func TestDocumentMissingFileRejected(t *testing.T) {
	_, _, _, _, e := newTestHandler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("query", "Summarize")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/document", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	status, _ := decodeEnvelope(t, rec.Body.Bytes())
	if status != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", status)
	}
}

func TestQueryWSStreamsProgressThenResult(t *testing.T) {
	_, _, _, _, e := newTestHandler()

	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/query/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(models.QueryRequest{Query: "How is AAPL doing?"}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var frames []wsFrame
	for i := 0; i < 3; i++ {
		var frame wsFrame
		if err := ws.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		frames = append(frames, frame)
	}

	if frames[0].Type != "progress" || frames[0].Agent != "orchestrator" {
		t.Fatalf("unexpected first frame %+v", frames[0])
	}
	if frames[1].Type != "progress" || frames[1].Agent != "market" {
		t.Fatalf("unexpected second frame %+v", frames[1])
	}
	if frames[2].Type != "result" || frames[2].Result == nil || frames[2].Result.Response != "analysis text" {
		t.Fatalf("unexpected final frame %+v", frames[2])
	}
}

func TestQueryWSEmptyQueryErrors(t *testing.T) {
	_, proc, _, _, e := newTestHandler()

	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/query/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(models.QueryRequest{Query: "   "}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var frame wsFrame
	if err := ws.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if frame.Type != "error" {
		t.Fatalf("expected error frame, got %+v", frame)
	}
	if proc.calls != 0 {
		t.Fatalf("processor should not run for empty query")
	}
}
