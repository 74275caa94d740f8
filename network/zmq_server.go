// Package network provides a ZeroMQ endpoint for the digest service.
//
// This package implements:
//   - DigestService: REP socket answering digest requests, one Arrow IPC
//     stream in, one hex digest out
package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"

	"github.com/tablehash/TableHash-Engine/api"
)

// Common errors for the ZeroMQ service
var (
	ErrServiceRunning    = errors.New("service is already running")
	ErrServiceNotRunning = errors.New("service is not running")
)

// DigestService is a ZeroMQ REP endpoint speaking the same payloads as
// the TCP server: requests carry Arrow IPC streams, replies carry hex
// digests or "ERR: ..." lines.
type DigestService struct {
	endpoint string
	handler  *api.DigestHandler

	ctx    context.Context
	cancel context.CancelFunc
	sock   zmq4.Socket

	running bool
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// NewDigestService creates a service bound to the given zmq endpoint,
// e.g. "tcp://*:5555".
func NewDigestService(endpoint string, handler *api.DigestHandler) *DigestService {
	ctx, cancel := context.WithCancel(context.Background())
	return &DigestService{
		endpoint: endpoint,
		handler:  handler,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start binds the REP socket and serves requests in a background
// goroutine.
func (s *DigestService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrServiceRunning
	}

	sock := zmq4.NewRep(s.ctx)
	if err := sock.Listen(s.endpoint); err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.endpoint, err)
	}
	s.sock = sock
	s.running = true

	s.wg.Add(1)
	go s.serve()
	return nil
}

func (s *DigestService) serve() {
	defer s.wg.Done()

	for {
		msg, err := s.sock.Recv()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				continue
			}
		}

		response, err := s.handler.ProcessRequest(msg.Bytes())
		if err != nil {
			response = []byte("ERR: " + err.Error())
		}

		if err := s.sock.Send(zmq4.NewMsg(response)); err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
		}
	}
}

// Stop closes the socket and waits for the serve loop to exit.
func (s *DigestService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrServiceNotRunning
	}

	s.running = false
	s.cancel()
	if err := s.sock.Close(); err != nil {
		return fmt.Errorf("failed to close socket: %w", err)
	}
	s.wg.Wait()
	return nil
}
