package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chitieu/finbot/core"
	"github.com/chitieu/finbot/engine"
	"github.com/chitieu/finbot/forecast"
	"github.com/chitieu/finbot/store"
	"github.com/chitieu/finbot/store/storetest"
	"github.com/chitieu/finbot/tools"
)

var now = time.Date(2024, time.June, 20, 10, 0, 0, 0, time.UTC)

// echoModel adds an expense when the message mentions "50k" and otherwise
// answers directly. It records every request it receives.
type echoModel struct {
	mu       sync.Mutex
	requests []*engine.ModelRequest
}

func (m *echoModel) Generate(ctx context.Context, req *engine.ModelRequest) (*engine.ModelResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	last := req.Messages[len(req.Messages)-1]
	switch {
	case len(last.ToolResults) > 0:
		return &engine.ModelResponse{Text: "Đã ghi nhận."}, nil
	case strings.Contains(last.Content, "lỗi"):
		return nil, errors.New("provider down")
	case strings.Contains(last.Content, "50k"):
		return &engine.ModelResponse{ToolCalls: []core.ToolCall{{
			ID: "call_1", Name: "add_expense",
			Input: json.RawMessage(`{"amount":50000,"category":"Food"}`),
		}}}, nil
	default:
		return &engine.ModelResponse{Text: "Chào bạn!"}, nil
	}
}

type fixture struct {
	server *Server
	http   *httptest.Server
	ledger store.Transactions
	model  *echoModel
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	ledger := storetest.NewTransactions(t)
	clock := func() time.Time { return now }

	registry := engine.NewToolRegistry()
	registry.RegisterAll(tools.All(tools.Deps{Ledger: ledger, Clock: clock})...)
	model := &echoModel{}
	cfg.Engine = engine.NewEngine(model, registry, engine.Config{Now: clock})
	if cfg.Forecaster == nil {
		cfg.Forecaster = forecast.NewEngine(ledger, forecast.Config{DefaultBudget: 10_000_000, Now: clock})
	}

	s := New(cfg)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{server: s, http: srv, ledger: ledger, model: model}
}

func (f *fixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func read(t *testing.T, ws *websocket.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg ServerMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

// readUntil collects frames up to and including the first of the given type.
func readUntil(t *testing.T, ws *websocket.Conn, frameType string) []ServerMessage {
	t.Helper()
	var frames []ServerMessage
	for {
		msg := read(t, ws)
		frames = append(frames, msg)
		if msg.Type == frameType {
			return frames
		}
	}
}

// userTurns returns the plain user messages of each recorded first-call
// request, skipping tool-result follow-ups.
func (m *echoModel) userTurns() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]string
	for _, req := range m.requests {
		last := req.Messages[len(req.Messages)-1]
		if len(last.ToolResults) > 0 {
			continue
		}
		var users []string
		for _, msg := range req.Messages {
			if msg.Role == core.RoleUser && len(msg.ToolResults) == 0 {
				users = append(users, msg.Content)
			}
		}
		out = append(out, users)
	}
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Config{})

	resp, err := http.Get(f.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	metricsResp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

func TestChatTurnRecordsExpense(t *testing.T) {
	f := newFixture(t, Config{HistoryExchanges: 5})
	ws := f.dial(t, "?owner=alice")

	started := read(t, ws)
	require.Equal(t, TypeSessionStarted, started.Type)
	require.NotEmpty(t, started.SessionID)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeMessage, Content: "hôm nay ăn uống 50k"}))
	frames := readUntil(t, ws, TypeComplete)

	var types []string
	for _, fr := range frames {
		types = append(types, fr.Type)
	}
	assert.Equal(t, []string{TypeThinking, TypeProgress, TypeProgress, TypeText, TypeComplete}, types)
	assert.Equal(t, "tool:add_expense", frames[1].Content)
	assert.Equal(t, "Đã ghi nhận.", frames[3].Content)

	complete := frames[len(frames)-1]
	require.NotNil(t, complete.Success)
	assert.True(t, *complete.Success)
	assert.Equal(t, []string{"add_expense"}, complete.ToolCalls)

	txs, err := f.ledger.ListRecent(context.Background(), "alice", "", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(50000), txs[0].Amount)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeMessage, Content: "cảm ơn"}))
	readUntil(t, ws, TypeComplete)

	turns := f.model.userTurns()
	require.Len(t, turns, 2)
	assert.Equal(t, []string{"hôm nay ăn uống 50k", "cảm ơn"}, turns[1])
}

func TestFailedTurnShowsApologyAndSkipsHistory(t *testing.T) {
	f := newFixture(t, Config{})
	ws := f.dial(t, "")
	read(t, ws)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeMessage, Content: "gây lỗi đi"}))
	frames := readUntil(t, ws, TypeComplete)

	text := frames[len(frames)-2]
	assert.Equal(t, TypeText, text.Type)
	assert.Equal(t, engine.Apology, text.Content)
	assert.NotContains(t, text.Content, "provider down")
	assert.False(t, *frames[len(frames)-1].Success)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeMessage, Content: "ăn trưa 50k"}))
	readUntil(t, ws, TypeComplete)

	turns := f.model.userTurns()
	require.Len(t, turns, 2)
	assert.Equal(t, []string{"ăn trưa 50k"}, turns[1])

	txs, err := f.ledger.ListRecent(context.Background(), DefaultUserID, "", 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestResetClearsHistory(t *testing.T) {
	f := newFixture(t, Config{})
	ws := f.dial(t, "?owner=bob")
	read(t, ws)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeMessage, Content: "xin chào"}))
	readUntil(t, ws, TypeComplete)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeReset}))
	assert.Equal(t, TypeReset, read(t, ws).Type)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeMessage, Content: "bắt đầu lại"}))
	readUntil(t, ws, TypeComplete)

	turns := f.model.userTurns()
	require.Len(t, turns, 2)
	assert.Equal(t, []string{"bắt đầu lại"}, turns[1])
}

func TestFramesRunInArrivalOrder(t *testing.T) {
	f := newFixture(t, Config{HistoryExchanges: 10})
	ws := f.dial(t, "")
	read(t, ws)

	contents := []string{"một", "hai", "ba", "bốn", "năm"}
	for _, c := range contents {
		require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeMessage, Content: c}))
	}
	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeReset}))
	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeMessage, Content: "sau khi xoá"}))

	var types []string
	for countOf(types, TypeComplete) < len(contents)+1 {
		types = append(types, read(t, ws).Type)
	}
	resetAt := indexOf(types, TypeReset)
	require.GreaterOrEqual(t, resetAt, 0)
	assert.Equal(t, len(contents), countOf(types[:resetAt], TypeComplete), "reset must follow every earlier turn")

	turns := f.model.userTurns()
	require.Len(t, turns, len(contents)+1)
	for i, c := range contents {
		assert.Equal(t, contents[:i+1], turns[i], "turn %d", i)
		assert.Equal(t, c, turns[i][len(turns[i])-1])
	}
	assert.Equal(t, []string{"sau khi xoá"}, turns[len(contents)])
}

func countOf(types []string, want string) int {
	n := 0
	for _, typ := range types {
		if typ == want {
			n++
		}
	}
	return n
}

func indexOf(types []string, want string) int {
	for i, typ := range types {
		if typ == want {
			return i
		}
	}
	return -1
}

func TestForecastFrame(t *testing.T) {
	f := newFixture(t, Config{})
	for d := 1; d <= 20; d++ {
		storetest.AddExpense(t, f.ledger, "alice", 400_000, store.CategoryFood, time.Date(2024, time.June, d, 0, 0, 0, 0, time.UTC))
	}
	ws := f.dial(t, "?owner=alice")
	read(t, ws)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeForecast}))
	msg := read(t, ws)

	require.Equal(t, TypeForecast, msg.Type)
	require.NotNil(t, msg.Forecast)
	assert.Equal(t, forecast.StatusDanger, msg.Forecast.Status)
	assert.Equal(t, int64(8_000_000), msg.Forecast.SpentSoFar)
	assert.NotEmpty(t, msg.Content)
}

func TestInvalidFrames(t *testing.T) {
	f := newFixture(t, Config{})
	ws := f.dial(t, "")
	read(t, ws)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, TypeError, read(t, ws).Type)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: "confirm"}))
	msg := read(t, ws)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, msg.Content, "confirm")
}

func TestAuthFunc(t *testing.T) {
	f := newFixture(t, Config{
		AuthFunc: func(r *http.Request) (string, error) {
			if r.Header.Get("Authorization") != "Bearer secret" {
				return "", errors.New("unauthorized")
			}
			return "carol", nil
		},
	})

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": []string{"Bearer secret"}})
	require.NoError(t, err)
	defer ws.Close()

	read(t, ws)
	require.NoError(t, ws.WriteJSON(ClientMessage{Type: TypeMessage, Content: "cà phê 50k"}))
	readUntil(t, ws, TypeComplete)

	txs, err := f.ledger.ListRecent(context.Background(), "carol", "", 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestSessionClosedOnDisconnect(t *testing.T) {
	f := newFixture(t, Config{})
	ws := f.dial(t, "")
	read(t, ws)
	require.Equal(t, 1, f.server.sessions.Len())

	ws.Close()
	assert.Eventually(t, func() bool { return f.server.sessions.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
