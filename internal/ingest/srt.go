// Package ingest accepts publisher connections over SRT and feeds their
// payloads into the relay.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	gosrt "github.com/datarhei/gosrt"

	"lyra/internal/relay"
)

// srtPayloadSize is the SRT live-mode payload ceiling.
const srtPayloadSize = 1316

// Config carries the SRT listener parameters.
type Config struct {
	Enabled bool
	Port    int
}

// Server is the SRT ingest listener.
type Server struct {
	config   Config
	relay    *relay.Relay
	listener gosrt.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates an SRT ingest server feeding the given relay.
func NewServer(config Config, r *relay.Relay) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config: config,
		relay:  r,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start binds the SRT listener and launches the accept loop.
func (s *Server) Start() error {
	config := gosrt.DefaultConfig()
	config.TransmissionType = "live"

	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := gosrt.Listen("srt", addr, config)
	if err != nil {
		return fmt.Errorf("failed to bind SRT listener: %w", err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	slog.Info("SRT ingest started", "port", s.config.Port)
	return nil
}

// Stop closes the listener and waits for publisher readers to finish.
func (s *Server) Stop() {
	slog.Info("SRT ingest stopping...")
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	slog.Info("SRT ingest stopped")
}

// acceptLoop accepts publisher connection requests until the listener
// closes. A failed handshake skips that publisher only.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		req, err := s.listener.Accept2()
		if err != nil {
			select {
			case <-s.ctx.Done():
				slog.Info("SRT accept loop stopped")
			default:
				slog.Error("SRT accept failed", "err", err)
			}
			return
		}

		conn, err := req.Accept()
		if err != nil {
			slog.Error("Failed to accept SRT connection", "err", err)
			continue
		}

		streamID := req.StreamId()
		slog.Info("SRT publisher connected", "streamId", streamID, "remoteAddr", conn.RemoteAddr())

		s.wg.Add(1)
		go s.readLoop(conn, streamID)
	}
}

// readLoop drains one publisher into the relay.
func (s *Server) readLoop(conn gosrt.Conn, streamID string) {
	defer s.wg.Done()
	defer conn.Close()

	buf := make([]byte, srtPayloadSize)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		n, err := conn.Read(buf)
		if err != nil {
			slog.Info("SRT publisher disconnected", "streamId", streamID, "err", err)
			return
		}
		s.relay.Ingest(streamID, buf[:n])
	}
}
