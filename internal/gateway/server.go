package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/yubzen/switchboard/internal/rpc"
)

const writeTimeout = 10 * time.Second

// HandlerFunc serves one RPC method. Returning a *rpc.RemoteError controls the
// code sent to the caller; any other error is reported as internal.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Server dispatches request frames received on /ws to registered methods.
type Server struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *Metrics
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		handlers: make(map[string]HandlerFunc),
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

func (s *Server) Handle(method string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

func (s *Server) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.handlers))
	for m := range s.handlers {
		out = append(out, m)
	}
	return out
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Serve runs the HTTP server on ln until ctx ends, then shuts it down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.metrics.connections.Inc()
	defer s.metrics.connections.Dec()

	s.logger.Debug("client connected", "remote", r.RemoteAddr)
	err = s.serveConn(r.Context(), conn)
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Debug("client connection ended", "remote", r.RemoteAddr, "error", err)
	}
}

// serveConn runs one reader, one writer and a goroutine per in-flight request.
// The first of them to fail tears the connection down.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn) error {
	out := make(chan rpc.Response, 16)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case resp := <-out:
				data, err := json.Marshal(resp)
				if err != nil {
					s.logger.Error("encode response", "id", resp.ID, "error", err)
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return err
				}
			}
		}
	})

	g.Go(func() error {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			var req rpc.Request
			if err := json.Unmarshal(data, &req); err != nil || req.Type != rpc.FrameRequest {
				s.logger.Warn("discarding malformed frame", "error", err)
				continue
			}
			g.Go(func() error {
				resp := s.Dispatch(gctx, req)
				select {
				case out <- resp:
				case <-gctx.Done():
				}
				return nil
			})
		}
	})

	return g.Wait()
}

// Dispatch runs the handler for req and builds its response frame.
func (s *Server) Dispatch(ctx context.Context, req rpc.Request) rpc.Response {
	s.mu.RLock()
	h, ok := s.handlers[req.Method]
	s.mu.RUnlock()
	if !ok {
		s.metrics.observe(req.Method, "unknown", 0)
		return rpc.NewFailure(req.ID, rpc.CodeUnknownMethod, fmt.Sprintf("unknown method %q", req.Method))
	}

	start := time.Now()
	payload, err := h(ctx, req.Params)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		remote := asRemote(err)
		s.metrics.observe(req.Method, remote.Code, elapsed)
		s.logger.Warn("rpc failed", "method", req.Method, "code", remote.Code, "error", err)
		return rpc.NewFailure(req.ID, remote.Code, remote.Message)
	}

	resp, err := rpc.NewResult(req.ID, payload)
	if err != nil {
		s.metrics.observe(req.Method, rpc.CodeInternal, elapsed)
		return rpc.NewFailure(req.ID, rpc.CodeInternal, err.Error())
	}
	s.metrics.observe(req.Method, "ok", elapsed)
	return resp
}

func asRemote(err error) *rpc.RemoteError {
	var remote *rpc.RemoteError
	if errors.As(err, &remote) {
		return remote
	}
	return &rpc.RemoteError{Code: rpc.CodeInternal, Message: err.Error()}
}
