// Package live drives a browser page over a websocket.
//
// A Session owns one connection. The browser sends Frames naming an event
// and the element it happened on; the session runs the matching handler on
// its event loop and sends back the Patches its elements recorded. Every
// handler, posted callback and timer runs on that single loop, so store
// dispatches made from them never race. Slow work such as backend calls
// runs off the loop with Go, and OnLoop moves the actions it dispatches
// back onto it.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nanacaring/cmsportal/internal/report"
	"github.com/nanacaring/cmsportal/internal/state/ui"
	"github.com/nanacaring/cmsportal/pkg/middleware"
	"github.com/nanacaring/cmsportal/pkg/store"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("live: session closed")

// Config tunes a Session.
type Config struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	// ReadTimeout must exceed PingInterval; pongs extend the deadline.
	ReadTimeout time.Duration
	// QueueSize bounds the browser events waiting for the loop. Posted
	// callbacks are never dropped.
	QueueSize int

	Logger   *slog.Logger
	Reporter report.Reporter
	Metrics  *middleware.Collector
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= c.PingInterval {
		c.ReadTimeout = 2 * c.PingInterval
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Reporter == nil {
		c.Reporter = report.Log{Logger: c.Logger}
	}
	return c
}

type handlerKey struct {
	event  string
	target string
}

// Session is one live connection.
type Session struct {
	ID string

	conn   *websocket.Conn
	cfg    Config
	logger *slog.Logger

	frames chan Frame
	done   chan struct{}
	closed atomic.Bool

	postMu sync.Mutex
	posts  []func()
	wake   chan struct{}

	panicked atomic.Pointer[PanicFunc]

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  []Patch
	handlers map[handlerKey]func(Frame)

	// ctx carries the signed-in user for error reports.
	ctx atomic.Pointer[context.Context]
}

// New creates a session on conn. Call Run to start it.
func New(conn *websocket.Conn, cfg Config) *Session {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	s := &Session{
		ID:       id,
		conn:     conn,
		cfg:      cfg,
		logger:   cfg.Logger.With("session", id),
		frames:   make(chan Frame, cfg.QueueSize),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		handlers: make(map[handlerKey]func(Frame)),
	}
	ctx := context.Background()
	s.ctx.Store(&ctx)
	return s
}

// Logger returns the session's logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Context returns the context handlers should dispatch with.
func (s *Session) Context() context.Context { return *s.ctx.Load() }

// SetContext replaces the dispatch context, for instance to attach the
// signed-in user with report.WithUser.
func (s *Session) SetContext(ctx context.Context) { s.ctx.Store(&ctx) }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run starts the read and heartbeat loops and runs the event loop until the
// connection drops, ctx is cancelled or Close is called.
func (s *Session) Run(ctx context.Context) error {
	s.cfg.Metrics.SessionStarted()
	defer s.cfg.Metrics.SessionEnded()
	defer s.Close()

	s.conn.SetReadLimit(64 << 10)
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	go s.readLoop()
	go s.pingLoop()

	s.logger.Info("session started")
	if err := s.Flush(); err != nil {
		return err
	}
	for {
		select {
		case f := <-s.frames:
			s.step(func() { s.handle(f) })
		case <-s.wake:
			for _, fn := range s.takePosts() {
				s.step(fn)
				if err := s.Flush(); err != nil {
					if errors.Is(err, ErrSessionClosed) {
						return nil
					}
					return err
				}
			}
			continue
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		}
		if err := s.Flush(); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return nil
			}
			return err
		}
	}
}

// PanicFunc is told about a panic recovered by the session. It runs on the
// event loop.
type PanicFunc func(ctx context.Context, err error)

// OnPanic sets the function told about recovered panics, after they are
// logged and reported. A nil fn removes it.
func (s *Session) OnPanic(fn PanicFunc) {
	if fn == nil {
		s.panicked.Store(nil)
		return
	}
	s.panicked.Store(&fn)
}

// step runs fn, recovering and reporting a panic.
func (s *Session) step(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.notifyPanic(s.recovered(r))
		}
	}()
	fn()
}

// recovered logs, counts and reports a recovered panic value.
func (s *Session) recovered(r any) error {
	err := &store.PanicError{Value: r, Stack: debug.Stack()}
	s.logger.Error("session handler panic", "panic", r)
	s.cfg.Metrics.Unhandled()
	s.cfg.Reporter.Report(s.Context(), err, map[string]any{"session": s.ID})
	return err
}

// notifyPanic runs the OnPanic function. It must be called on the loop.
func (s *Session) notifyPanic(err error) {
	fn := s.panicked.Load()
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic handler panicked", "panic", r)
		}
	}()
	(*fn)(s.Context(), err)
}

func (s *Session) handle(f Frame) {
	s.mu.Lock()
	h, ok := s.handlers[handlerKey{f.Event, f.Target}]
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("no handler for event", "event", f.Event, "target", f.Target)
		return
	}
	h(f)
}

func (s *Session) on(event, target string, h func(Frame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[handlerKey{event, target}] = h
}

func (s *Session) readLoop() {
	defer s.Close()
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) && !s.closed.Load() {
				s.logger.Warn("read error", "error", err)
				s.cfg.Metrics.WebSocketError("read")
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		f, err := DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("bad frame", "error", err)
			s.cfg.Metrics.WebSocketError("decode")
			continue
		}
		select {
		case s.frames <- f:
		case <-s.done:
			return
		default:
			s.logger.Warn("event queue full, dropping event", "event", f.Event, "target", f.Target)
		}
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout))
			s.writeMu.Unlock()
			if err != nil {
				s.cfg.Metrics.WebSocketError("write")
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Post queues fn to run on the event loop. Callbacks run in the order they
// were posted. It reports false when the session is closed.
func (s *Session) Post(fn func()) bool {
	if s.closed.Load() {
		return false
	}
	s.postMu.Lock()
	s.posts = append(s.posts, fn)
	s.postMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Session) takePosts() []func() {
	s.postMu.Lock()
	defer s.postMu.Unlock()
	posts := s.posts
	s.posts = nil
	return posts
}

// Clock returns a ui.Clock whose callbacks run on the event loop.
func (s *Session) Clock() ui.Clock { return sessionClock{s} }

type sessionClock struct{ s *Session }

func (c sessionClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, func() { c.s.Post(f) }).Stop
}

func (s *Session) queue(p Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A later html or state patch for the same target supersedes an
	// earlier unsent one.
	if p.Op != OpReset {
		s.pending = slices.DeleteFunc(s.pending, func(q Patch) bool {
			return q.Op == p.Op && q.Target == p.Target
		})
	}
	s.pending = append(s.pending, p)
}

// Flush sends the recorded patches.
func (s *Session) Flush() error {
	s.mu.Lock()
	patches := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(patches) == 0 {
		return nil
	}
	if s.closed.Load() {
		return ErrSessionClosed
	}

	data, err := json.Marshal(Message{Patches: patches})
	if err != nil {
		return fmt.Errorf("encode patches: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.cfg.Metrics.WebSocketError("write")
		return fmt.Errorf("write patches: %w", err)
	}
	s.cfg.Metrics.PatchesSent(len(patches))
	return nil
}

// Close ends the session and its connection.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)

	s.writeMu.Lock()
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	s.conn.Close()
	s.logger.Info("session closed")
}

// NewUpgrader returns an upgrader that accepts same-origin requests and
// requests from the listed origins. "*" allows any origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			if u.Host == r.Host {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}
