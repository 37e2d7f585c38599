// Package server exposes the assistant over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/chitieu/finbot/core"
	"github.com/chitieu/finbot/engine"
	"github.com/chitieu/finbot/forecast"
	"github.com/chitieu/finbot/logger"
	"github.com/chitieu/finbot/metrics"
	"github.com/chitieu/finbot/session"
)

// DefaultUserID is the owner used when no AuthFunc is configured and the
// request carries no owner query parameter.
const DefaultUserID = "default-user"

const forecastUnavailable = "Xin lỗi, mình chưa tính được dự báo chi tiêu lúc này."

// Forecaster projects month-end spending for an owner.
type Forecaster interface {
	Forecast(ctx context.Context, ownerID string, budget int64) (*forecast.Result, error)
}

// Config configures the server.
type Config struct {
	// Engine runs agent turns.
	Engine *engine.Engine

	// Forecaster serves forecast frames. If nil, forecast requests fail.
	Forecaster Forecaster

	// HistoryExchanges caps each session's chat history.
	HistoryExchanges int

	// AuthFunc validates requests and returns a user ID.
	// If nil, the "owner" query parameter is used, else DefaultUserID.
	AuthFunc func(r *http.Request) (userID string, err error)
}

// Server is a WebSocket server for the finance assistant.
type Server struct {
	config   Config
	engine   *engine.Engine
	sessions *session.Table
	upgrader websocket.Upgrader
	turns    sync.WaitGroup
}

// New creates a new server with the given configuration.
func New(cfg Config) *Server {
	return &Server{
		config:   cfg,
		engine:   cfg.Engine,
		sessions: session.NewTable(cfg.HistoryExchanges),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the HTTP handler serving /ws, /health and /metrics.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger)

	router.Get("/ws", s.handleWebSocket)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", metrics.Handler())
	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// waits for in-flight turns.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Get().Infow("starting finance assistant server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.turns.Wait()
	logger.Get().Info("server stopped")
	return nil
}

// queueSize bounds the frames waiting behind a running turn. A full queue
// stops the read loop until the worker catches up.
const queueSize = 32

// connection serializes writes to one websocket and drops frames once the
// client is gone.
type connection struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Get().Warnw("websocket upgrade failed", "error", err)
		return
	}
	conn := &connection{ws: ws}
	defer func() {
		conn.closed.Store(true)
		ws.Close()
	}()

	sess := s.sessions.Open(userID)
	defer s.sessions.Close(sess.ID)

	log := logger.Get().With("session", sess.ID, "user", userID)
	log.Infow("websocket connected")
	s.send(conn, ServerMessage{Type: TypeSessionStarted, SessionID: sess.ID})

	// Turns outlive the request context so a disconnect never cancels them.
	ctx := context.WithoutCancel(r.Context())

	// One worker per connection runs frames in arrival order.
	jobs := make(chan func(), queueSize)
	go func() {
		for job := range jobs {
			job()
		}
	}()
	defer close(jobs)

	enqueue := func(job func()) {
		s.turns.Add(1)
		jobs <- func() {
			defer s.turns.Done()
			job()
		}
	}

	for {
		_, msgBytes, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnw("websocket read failed", "error", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			s.sendError(conn, "Invalid message format")
			continue
		}

		log.Debugw("received frame", "type", msg.Type)

		switch msg.Type {
		case TypeMessage:
			if msg.Content == "" {
				continue
			}
			content := msg.Content
			enqueue(func() { s.handleMessage(ctx, conn, sess, content) })

		case TypeForecast:
			budget := msg.Budget
			enqueue(func() { s.handleForecast(ctx, conn, sess, budget) })

		case TypeReset:
			enqueue(func() {
				sess.History.Reset()
				s.send(conn, ServerMessage{Type: TypeReset, SessionID: sess.ID})
			})

		default:
			s.sendError(conn, fmt.Sprintf("Unknown message type: %s", msg.Type))
		}
	}

	log.Infow("websocket disconnected")
}

func (s *Server) authenticate(r *http.Request) (string, error) {
	if s.config.AuthFunc != nil {
		return s.config.AuthFunc(r)
	}
	if owner := r.URL.Query().Get("owner"); owner != "" {
		return owner, nil
	}
	return DefaultUserID, nil
}

func (s *Server) handleMessage(ctx context.Context, conn *connection, sess *session.Session, content string) {
	log := logger.Get().With("session", sess.ID, "user", sess.OwnerID)
	log.Infow("user message", "content", truncate(content, 50))

	input := &engine.Input{
		UserMessage: content,
		Context:     core.NewContext(sess.OwnerID, sess.ID),
		History:     sess.History.Turns(),
		ProgressCallback: func(event string) {
			if event == engine.ProgressThinking {
				s.send(conn, ServerMessage{Type: TypeThinking})
				return
			}
			s.send(conn, ServerMessage{Type: TypeProgress, Content: event})
		},
	}

	output := s.engine.Run(ctx, input)
	if output.Success {
		sess.History.Append(content, output.Text)
	}

	log.Infow("assistant reply", "content", truncate(output.Text, 200), "success", output.Success)

	toolNames := make([]string, 0, len(output.ToolCalls))
	for _, call := range output.ToolCalls {
		toolNames = append(toolNames, call.Name)
	}

	s.send(conn, ServerMessage{Type: TypeText, Content: output.Text})
	s.send(conn, ServerMessage{
		Type:      TypeComplete,
		Success:   &output.Success,
		ToolCalls: toolNames,
		TokenUsage: &TokenUsage{
			InputTokens:  output.TokensUsed.InputTokens,
			OutputTokens: output.TokensUsed.OutputTokens,
			TotalTokens:  output.TokensUsed.TotalTokens(),
		},
	})
}

func (s *Server) handleForecast(ctx context.Context, conn *connection, sess *session.Session, budget int64) {
	if s.config.Forecaster == nil {
		s.sendError(conn, forecastUnavailable)
		return
	}

	result, err := s.config.Forecaster.Forecast(ctx, sess.OwnerID, budget)
	if err != nil {
		logger.Get().Errorw("forecast failed", "session", sess.ID, "user", sess.OwnerID, "error", err)
		s.sendError(conn, forecastUnavailable)
		return
	}
	s.send(conn, ServerMessage{Type: TypeForecast, Forecast: result, Content: result.Narrative})
}

func (s *Server) send(conn *connection, msg ServerMessage) {
	if conn.closed.Load() {
		logger.Get().Debugw("dropping frame for closed connection", "type", msg.Type)
		return
	}

	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	if err := conn.ws.WriteJSON(msg); err != nil {
		logger.Get().Warnw("failed to send message", "type", msg.Type, "error", err)
	}
}

func (s *Server) sendError(conn *connection, content string) {
	logger.Get().Debugw("sending error", "content", content)
	s.send(conn, ServerMessage{Type: TypeError, Content: content})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Get().Debugw("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
