// Package server implements the chat server core: the TCP accept loop,
// per-connection readers, the bounded worker pool, the room registry, and the
// request dispatch handlers.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dongY99/mju-backend-60182195/internal/config"
	"github.com/dongY99/mju-backend-60182195/internal/logger"
	"github.com/dongY99/mju-backend-60182195/internal/protocol/chat"
)

// Server is the chat server. One Server owns the listener, the client set,
// the room registry, the worker pool, and the shutdown state.
type Server struct {
	cfg      *config.Config
	codec    chat.Codec
	registry *Registry
	metrics  *Metrics

	listener   net.Listener
	listenerMu sync.RWMutex

	// ListenerReady is closed once the listener accepts connections. Tests
	// use it to synchronize with startup.
	ListenerReady chan struct{}

	clientsMu sync.Mutex
	clients   map[*Client]struct{}

	queue chan pass

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	shutdownCtx  context.Context
	cancel       context.CancelFunc

	workerWG sync.WaitGroup
	connWG   sync.WaitGroup
}

// New creates a Server from validated configuration. The codec selected by
// cfg.Format is shared by every connection of the run.
func New(cfg *config.Config, m *Metrics) (*Server, error) {
	codec, err := chat.ForFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:           cfg,
		codec:         codec,
		registry:      NewRegistry(m),
		metrics:       m,
		ListenerReady: make(chan struct{}),
		clients:       make(map[*Client]struct{}),
		queue:         make(chan pass, 256),
		shutdownCh:    make(chan struct{}),
		shutdownCtx:   ctx,
		cancel:        cancel,
	}, nil
}

// Registry exposes the room registry for tests and the admin surface.
func (s *Server) Registry() *Registry { return s.registry }

// Run binds the listener and serves until ctx is cancelled or a client sends
// CSShutdown. It returns nil on orderly shutdown and an error when the bind
// fails.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.ListenerReady)

	logger.Info("chat server listening",
		"port", s.cfg.Port, "format", s.codec.Name(), "workers", s.cfg.Workers)

	go func() {
		select {
		case <-ctx.Done():
			s.initiateShutdown()
		case <-s.shutdownCh:
		}
	}()

	s.startWorkers()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdownCh:
				return s.drain()
			default:
				logger.Debug("accept failed", "error", err)
				continue
			}
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("set TCP_NODELAY failed", "error", err)
			}
		}

		c := newClient(conn, s.codec.NewDecoder())
		s.register(c)

		s.connWG.Add(1)
		go func() {
			defer s.connWG.Done()
			s.serveConn(c)
		}()
	}
}

// Addr returns the listener address, blocking until the listener is up.
func (s *Server) Addr() string {
	<-s.ListenerReady
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown triggers orderly shutdown from outside the dispatch path.
func (s *Server) Shutdown() { s.initiateShutdown() }

func (s *Server) register(c *Client) {
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()

	s.metrics.ConnectionsTotal.Inc()
	s.metrics.ConnectionsActive.Inc()
	logger.Info("connection accepted", "client", c.Name(), "address", c.addr)
}

// serveConn is the per-connection read loop: one bounded read, one queued
// pass, wait for the pass to complete, repeat. The handshake keeps at most
// one pass in flight per client, which preserves strict arrival-order
// processing for the connection.
func (s *Server) serveConn(c *Client) {
	defer s.teardown(c)

	buf := make([]byte, chat.ReadBatchSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])

			c.enqueued.Store(true)
			select {
			case s.queue <- pass{c: c, data: data}:
			case <-s.shutdownCh:
				return
			}
			select {
			case <-c.passDone:
			case <-s.shutdownCh:
				return
			}
			if c.closing.Load() {
				return
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("client disconnected", "client", c.addr)
			case isShutdownRead(err, s.shutdownCh):
				// Read interrupted by the shutdown deadline.
			default:
				logger.Error("recv failed", "client", c.addr, "error", err)
			}
			return
		}
	}
}

// isShutdownRead reports whether a read error is the deadline we set to
// interrupt blocking reads during shutdown.
func isShutdownRead(err error, shutdownCh chan struct{}) bool {
	select {
	case <-shutdownCh:
	default:
		return false
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// teardown releases one connection exactly once: the client leaves its room
// (deleting the room if it empties), is removed from the client set, and its
// socket is closed.
func (s *Server) teardown(c *Client) {
	c.teardownOnce.Do(func() {
		if title, inRoom := s.registry.Leave(c, "disconnect"); inRoom {
			logger.Debug("client removed from room", "client", c.Name(), "room_title", title)
		}

		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()

		if err := c.conn.Close(); err != nil {
			logger.Debug("close failed", "client", c.addr, "error", err)
		}
		s.metrics.ConnectionsActive.Dec()
		logger.Info("connection closed", "client", c.Name(), "address", c.addr)
	})
}

// initiateShutdown starts orderly shutdown: stop accepting, interrupt
// blocking reads, cancel in-flight contexts. Safe to call more than once.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("shutdown initiated")
		close(s.shutdownCh)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("close listener failed", "error", err)
			}
		}
		s.listenerMu.Unlock()

		s.interruptBlockingReads()
		s.cancel()
	})
}

// interruptBlockingReads sets a short deadline on every client socket so
// readers blocked in Read observe shutdown promptly.
func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(time.Millisecond)

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			logger.Debug("set shutdown deadline failed", "client", c.addr, "error", err)
		}
	}
}

// drain completes shutdown: join the workers, wait for connection readers to
// tear down (bounded by the shutdown timeout), then release whatever remains.
func (s *Server) drain() error {
	s.workerWG.Wait()

	done := make(chan struct{})
	go func() {
		s.connWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		logger.Warn("shutdown timeout exceeded, force-closing connections")
		s.forceCloseConnections()
		<-done
	}

	s.registry.Clear()
	logger.Info("chat server stopped")
	return nil
}

// forceCloseConnections closes every remaining client socket.
func (s *Server) forceCloseConnections() {
	s.clientsMu.Lock()
	remaining := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		remaining = append(remaining, c)
	}
	s.clientsMu.Unlock()

	for _, c := range remaining {
		_ = c.conn.Close()
	}
}
