package server

import (
	"errors"

	"github.com/dongY99/mju-backend-60182195/internal/logger"
	"github.com/dongY99/mju-backend-60182195/internal/protocol/chat"
)

// pass is one unit of work: a batch of bytes read from one client's socket,
// to be reassembled into frames and dispatched. The reader that produced it
// waits for completion before reading again, so at most one pass per client
// is ever queued or running.
type pass struct {
	c    *Client
	data []byte
}

// startWorkers launches the fixed worker pool draining the pass queue.
func (s *Server) startWorkers() {
	for i := 0; i < s.cfg.Workers; i++ {
		s.workerWG.Add(1)
		go s.worker(i)
	}
}

func (s *Server) worker(id int) {
	defer s.workerWG.Done()
	logger.Debug("worker started", "worker", id)

	for {
		select {
		case <-s.shutdownCh:
			logger.Debug("worker stopped", "worker", id)
			return
		case p := <-s.queue:
			s.runPass(p)
		}
	}
}

// runPass appends the batch to the client's receive buffer, extracts every
// complete frame in arrival order, and dispatches the decoded messages. Any
// framing or decode failure marks the client for close and ends the pass;
// buffered bytes after the fault are dropped with the connection.
func (s *Server) runPass(p pass) {
	c := p.c
	c.rx.Append(p.data)

	for {
		frame, ok := c.rx.Next()
		if !ok {
			break
		}

		msg, err := c.dec.Decode(frame)
		if err != nil {
			s.failClient(c, err)
			break
		}
		if msg == nil {
			// Binary type header consumed; payload frame follows.
			continue
		}

		if err := s.dispatch(c, msg); err != nil {
			s.failClient(c, err)
			break
		}
	}

	c.enqueued.Store(false)
	c.passDone <- struct{}{}
}

// failClient logs a protocol fault and marks the session for teardown.
func (s *Server) failClient(c *Client, err error) {
	level := logger.Error
	if errors.Is(err, chat.ErrMissingType) || errors.Is(err, chat.ErrUnknownType) {
		level = logger.Warn
	}
	level("protocol error, closing client", "client", c.addr, "error", err)
	s.metrics.DecodeFailuresTotal.Inc()
	c.markClosing()
}
