package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/consolehq/agui-gateway/observe"
	"github.com/consolehq/agui-gateway/runlog"
	"github.com/consolehq/agui-gateway/translate"
	"github.com/consolehq/agui-gateway/types"
	"github.com/consolehq/agui-gateway/upstream"
)

const upstreamBodySnippet = 512

// handleRun terminates one run request: it validates the input, opens the
// upstream stream, and re-emits translated events as SSE. Errors before the
// first byte is written are HTTP errors; anything later is an in-band
// RUN_ERROR so the client always sees a complete, terminated run.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
		return
	}

	input, err := decodeRunInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(input.SessionID) == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "session_id is required")
		return
	}
	text, ok := latestUserMessage(input.Messages)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "no user message found in request")
		return
	}
	if s.upstream == nil {
		writeError(w, http.StatusInternalServerError, CodeConfigMissing, "upstream base URL is not configured")
		return
	}
	if input.AppName == "" {
		input.AppName = s.cfg.AppName
	}

	threadID := input.ThreadID
	if threadID == "" {
		threadID = input.SessionID
	}
	runID := input.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	resp, err := s.upstream.OpenStream(r.Context(), StreamRequest{
		AppName:   input.AppName,
		UserID:    input.UserID,
		SessionID: input.SessionID,
		Text:      text,
		ThreadID:  threadID,
		RunID:     runID,
		Forward:   r.Header,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, CodeUpstreamError, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, upstreamBodySnippet))
		msg := fmt.Sprintf("upstream returned status %d", resp.StatusCode)
		if trimmed := strings.TrimSpace(string(snippet)); trimmed != "" {
			msg += ": " + trimmed
		}
		writeError(w, resp.StatusCode, CodeUpstreamError, msg)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternal, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")

	session := &streamSession{
		w:         w,
		flusher:   flusher,
		threadID:  threadID,
		runID:     runID,
		sessionID: input.SessionID,
		sink:      s.sink,
		runLog:    s.cfg.RunLog,
		ctx:       r.Context(),
		started:   time.Now().UTC(),
	}
	session.observe(observe.KindRun, observe.StatusStarted, "", nil)
	session.emit(types.Event{Type: types.EventRunStarted, Timestamp: types.Seconds(session.started)})

	s.pump(session, resp.Body)

	session.emit(types.Event{Type: types.EventRunFinished, Timestamp: types.Seconds(time.Now().UTC())})
	status := observe.StatusCompleted
	if session.failed {
		status = observe.StatusFailed
	}
	session.observe(observe.KindRun, status, "", map[string]any{
		"events": session.emitted,
	})
}

// pump reads upstream frames until the stream ends or becomes unusable. A
// malformed frame is reported in-band and skipped; only a transport-level
// failure or a dead client stops the loop.
func (s *Server) pump(session *streamSession, body io.Reader) {
	reader := upstream.NewReader(body)
	for {
		ev, err := reader.Next()
		if err != nil {
			var parseErr *upstream.ParseError
			switch {
			case errors.As(err, &parseErr):
				session.observe(observe.KindFrame, observe.StatusFailed, parseErr.Error(), nil)
				session.emit(errorEvent(CodeParseError, parseErr.Error()))
				continue
			case errors.Is(err, io.EOF):
				return
			default:
				session.failed = true
				session.observe(observe.KindStream, observe.StatusFailed, err.Error(), nil)
				session.emit(errorEvent(CodeStreamError, err.Error()))
				return
			}
		}
		for _, out := range translate.Events(ev) {
			if !session.emit(out) {
				return
			}
		}
	}
}

func errorEvent(code, message string) types.Event {
	return types.Event{
		Type:      types.EventRunError,
		Timestamp: types.Seconds(time.Now().UTC()),
		Code:      code,
		Message:   message,
	}
}

// streamSession owns one client-facing SSE response. Each run request gets
// its own session; nothing here is shared across requests.
type streamSession struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	threadID  string
	runID     string
	sessionID string
	sink      observe.Sink
	runLog    runlog.Store
	ctx       context.Context
	started   time.Time
	emitted   int
	failed    bool
	dead      bool
}

// emit stamps the session identity onto the event, writes it as one SSE
// frame, and mirrors it into the run log. It reports false once the client
// connection is unusable so the caller can stop pumping.
func (s *streamSession) emit(ev types.Event) bool {
	if s.dead {
		return false
	}
	if ev.ThreadID == "" {
		ev.ThreadID = s.threadID
	}
	if ev.RunID == "" {
		ev.RunID = s.runID
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("gateway: failed to encode event %s: %v", ev.Type, err)
		return true
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.dead = true
		return false
	}
	s.flusher.Flush()
	s.emitted++

	if s.runLog != nil {
		if err := s.runLog.Append(s.ctx, ev); err != nil {
			log.Printf("gateway: failed to persist event %s for run %s: %v", ev.Type, s.runID, err)
		}
	}
	switch ev.Type {
	case types.EventToolCallStart:
		s.observeTool(observe.StatusStarted, ev.ToolCallName)
	case types.EventToolCallResult:
		s.observeTool(observe.StatusCompleted, ev.ToolCallName)
	}
	return true
}

func (s *streamSession) observe(kind observe.Kind, status observe.Status, errMsg string, attrs map[string]any) {
	event := observe.Event{
		Timestamp:  time.Now().UTC(),
		RunID:      s.runID,
		ThreadID:   s.threadID,
		SessionID:  s.sessionID,
		Kind:       kind,
		Status:     status,
		Error:      errMsg,
		Attributes: attrs,
	}
	if kind == observe.KindRun && status != observe.StatusStarted {
		event.DurationMs = time.Since(s.started).Milliseconds()
	}
	if err := s.sink.Emit(s.ctx, event); err != nil {
		log.Printf("gateway: observe emit failed: %v", err)
	}
}

func (s *streamSession) observeTool(status observe.Status, name string) {
	if err := s.sink.Emit(s.ctx, observe.Event{
		Timestamp: time.Now().UTC(),
		RunID:     s.runID,
		ThreadID:  s.threadID,
		SessionID: s.sessionID,
		Kind:      observe.KindTool,
		Status:    status,
		ToolName:  name,
	}); err != nil {
		log.Printf("gateway: observe emit failed: %v", err)
	}
}

func decodeRunInput(r *http.Request) (types.RunAgentInput, error) {
	var input types.RunAgentInput
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
			return types.RunAgentInput{}, fmt.Errorf("invalid JSON body: %v", err)
		}
	}
	// Query parameters win over body fields.
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("app_name")); v != "" {
		input.AppName = v
	}
	if v := strings.TrimSpace(q.Get("user_id")); v != "" {
		input.UserID = v
	}
	if v := strings.TrimSpace(q.Get("session_id")); v != "" {
		input.SessionID = v
	}
	return input, nil
}

func latestUserMessage(messages []types.InputMessage) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i].Content, true
		}
	}
	return "", false
}
