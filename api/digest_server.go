package api

import (
	"fmt"
	"io"
	"net"
	"sync"
)

// DigestServer is a TCP server answering length-prefixed digest
// requests: each message is an Arrow IPC stream, each reply a hex
// digest (or an "ERR: ..." line).
type DigestServer struct {
	listener net.Listener
	handler  *DigestHandler
	running  bool
	mu       sync.Mutex
	quit     chan struct{}
}

// NewDigestServer creates a server backed by the given handler.
func NewDigestServer(handler *DigestHandler) *DigestServer {
	return &DigestServer{
		handler: handler,
		quit:    make(chan struct{}),
	}
}

// Start starts the server on the specified address. This method blocks
// until the server is stopped or fails.
func (s *DigestServer) Start(address string) error {
	lis, err := s.listen(address)
	if err != nil {
		return err
	}
	defer s.Stop()

	s.acceptLoop(lis)
	return nil
}

// StartAsync starts the server in a background goroutine.
func (s *DigestServer) StartAsync(address string) error {
	lis, err := s.listen(address)
	if err != nil {
		return err
	}
	go s.acceptLoop(lis)
	return nil
}

// Addr returns the bound listener address, useful when starting on
// port 0.
func (s *DigestServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *DigestServer) listen(address string) (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, fmt.Errorf("server is already running")
	}
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.listener = lis
	s.running = true
	return lis, nil
}

func (s *DigestServer) acceptLoop(lis net.Listener) {
	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

// Stop stops the server.
func (s *DigestServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	close(s.quit)
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// handleConnection serves one client: a sequence of request/response
// message pairs on a single connection.
func (s *DigestServer) handleConnection(conn net.Conn) {
	defer conn.Close()
	s.handler.metrics.ActiveConnections.Inc()
	defer s.handler.metrics.ActiveConnections.Dec()

	for {
		data, err := ReadMessage(conn)
		if err != nil {
			if err != io.EOF {
				_ = err
			}
			return
		}

		response, err := s.handler.ProcessRequest(data)
		if err != nil {
			response = []byte("ERR: " + err.Error())
		}

		if err := WriteMessage(conn, response); err != nil {
			return
		}
	}
}
