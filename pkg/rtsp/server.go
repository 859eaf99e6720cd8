package rtsp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config carries the listener and read-retry parameters. The retry triple
// bounds how long a connection may sit without producing a complete
// request before it is abandoned.
type Config struct {
	Port          int
	ReadChunk     int           // bytes per read attempt
	RetryInterval time.Duration // delay between read attempts
	MaxAttempts   int           // consecutive empty attempts before abandonment
}

// maxBufferedRequest caps how much of an incomplete request a connection
// may accumulate before it is dropped.
const maxBufferedRequest = 64 * 1024

// DefaultConfig returns the standard RTSP listener parameters.
func DefaultConfig() Config {
	return Config{
		Port:          554,
		ReadChunk:     200,
		RetryInterval: 10 * time.Millisecond,
		MaxAttempts:   50,
	}
}

// Server owns the TCP accept loop and the UDP datagram loop, both bound to
// the same port and feeding the same dispatcher.
type Server struct {
	config     Config
	dispatcher *Dispatcher
	listener   net.Listener
	udpConn    *net.UDPConn
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewServer creates an RTSP server around a dispatcher.
func NewServer(config Config, dispatcher *Dispatcher) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:     config,
		dispatcher: dispatcher,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start binds the TCP and UDP sockets and launches both loops. Bind
// failures are fatal; the caller decides whether to exit.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind TCP listener: %w", err)
	}
	s.listener = listener

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		listener.Close()
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		listener.Close()
		return fmt.Errorf("failed to bind UDP socket: %w", err)
	}
	s.udpConn = udpConn

	s.wg.Add(2)
	go s.acceptLoop()
	go s.datagramLoop()

	slog.Info("RTSP server started", "port", s.config.Port)
	return nil
}

// Stop closes both sockets and waits for all handling units to finish.
func (s *Server) Stop() {
	slog.Info("RTSP server stopping...")
	s.cancel()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			slog.Error("Error closing RTSP listener", "err", err)
		}
	}
	if s.udpConn != nil {
		if err := s.udpConn.Close(); err != nil {
			slog.Error("Error closing RTSP UDP socket", "err", err)
		}
	}

	s.wg.Wait()
	slog.Info("RTSP server stopped")
}

// Addr returns the bound TCP address. Nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// UDPAddr returns the bound UDP address. Nil before Start.
func (s *Server) UDPAddr() net.Addr {
	if s.udpConn == nil {
		return nil
	}
	return s.udpConn.LocalAddr()
}

// acceptLoop accepts TCP connections until the listener closes. Failures
// on one connection never touch the others.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				slog.Info("RTSP accept loop stopped")
			default:
				slog.Error("RTSP accept failed", "err", err)
			}
			return
		}

		slog.Debug("RTSP connection accepted", "remoteAddr", conn.RemoteAddr())
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn runs the per-connection request/response loop. Reads happen
// in bounded chunks under a short deadline; MaxAttempts consecutive empty
// reads abandon the connection. The deferred Close is the single close
// point for every termination path.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	buf := make([]byte, 0, 4*s.config.ReadChunk)
	chunk := make([]byte, s.config.ReadChunk)
	attempts := 0

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(s.config.RetryInterval))
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			attempts = 0
			if len(buf) > maxBufferedRequest {
				slog.Warn("RTSP request exceeds buffer limit", "remoteAddr", conn.RemoteAddr(), "buffered", len(buf))
				return
			}
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				attempts++
				if attempts >= s.config.MaxAttempts {
					slog.Debug("RTSP connection abandoned", "remoteAddr", conn.RemoteAddr(), "attempts", attempts)
					return
				}
				continue
			}
			if !errors.Is(err, io.EOF) {
				slog.Error("RTSP connection read failed", "remoteAddr", conn.RemoteAddr(), "err", err)
			}
			return
		}

		// Requests on one connection are answered strictly in arrival order.
		for {
			end := bytes.Index(buf, []byte("\r\n\r\n"))
			if end < 0 {
				break
			}
			total := end + 4 + bodyLength(buf[:end])
			if len(buf) < total {
				break
			}
			request := buf[:total]
			response := s.dispatcher.Dispatch(request, conn.RemoteAddr().String())
			buf = buf[len(request):]

			if _, err := conn.Write(response); err != nil {
				slog.Error("RTSP response write failed", "remoteAddr", conn.RemoteAddr(), "err", err)
				return
			}
		}
	}
}

// bodyLength reads the Content-Length out of a raw header block so the
// framing loop can wait for an attached body.
func bodyLength(head []byte) int {
	for _, line := range bytes.Split(head, []byte("\r\n")) {
		name, value, ok := bytes.Cut(line, []byte(":"))
		if ok && strings.EqualFold(string(bytes.TrimSpace(name)), HeaderContentLength) {
			if n, err := strconv.Atoi(string(bytes.TrimSpace(value))); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// datagramLoop answers UDP requests. Each datagram is one request and gets
// exactly one response datagram back to its sender.
func (s *Server) datagramLoop() {
	defer s.wg.Done()

	buf := make([]byte, s.config.ReadChunk)
	for {
		n, remote, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.ctx.Done():
				slog.Info("RTSP datagram loop stopped")
			default:
				slog.Error("RTSP datagram read failed", "err", err)
			}
			return
		}

		response := s.dispatcher.Dispatch(buf[:n], remote.String())
		if _, err := s.udpConn.WriteToUDP(response, remote); err != nil {
			slog.Error("RTSP datagram write failed", "remoteAddr", remote, "err", err)
		}
	}
}
