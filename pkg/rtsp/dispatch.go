package rtsp

import (
	"fmt"
	"log/slog"
)

// Controller is the external streaming collaborator. The dispatcher never
// constructs media payloads itself; it negotiates ports and tells the
// controller when to move data.
type Controller interface {
	// InterfaceAddr returns the server interface address advertised as the
	// Transport source.
	InterfaceAddr() string
	// Description returns the session description payload for DESCRIBE.
	Description(multicast bool) string
	// Setup allocates a server-side port pair for a session and stream.
	Setup(sessionID uint64, transportURL string, streamIndex int) (int, error)
	// StartStreaming begins delivery for a session.
	StartStreaming(sessionID uint64) error
	// StopStreaming halts delivery for a session.
	StopStreaming(sessionID uint64) error
	// SequenceNumber reports the current RTP sequence number.
	SequenceNumber() uint16
	// Timestamp reports the current RTP timestamp.
	Timestamp() uint32
}

// Stats receives dispatch notifications. All methods may be called
// concurrently. Optional; a nil Stats disables reporting.
type Stats interface {
	RequestHandled(method string)
	SessionOpened()
	SessionClosed()
}

// HandlerFunc turns a parsed request into a reply.
type HandlerFunc func(req *Request) *Reply

// Dispatcher routes parsed requests to method handlers. Unknown methods go
// to the fallback handler rather than failing.
type Dispatcher struct {
	ctrl     Controller
	registry *Registry
	stats    Stats
	handlers map[string]HandlerFunc
	fallback HandlerFunc
}

// NewDispatcher builds the dispatch table around an injected controller and
// registry. stats may be nil.
func NewDispatcher(ctrl Controller, registry *Registry, stats Stats) *Dispatcher {
	d := &Dispatcher{
		ctrl:     ctrl,
		registry: registry,
		stats:    stats,
	}
	d.handlers = map[string]HandlerFunc{
		MethodOptions:      d.handleOptions,
		MethodDescribe:     d.handleDescribe,
		MethodSetup:        d.handleSetup,
		MethodPlay:         d.handlePlay,
		MethodTeardown:     d.handleTeardown,
		MethodPause:        d.handleStub,
		MethodGetParameter: d.handleStub,
		MethodSetParameter: d.handleStub,
		MethodRedirect:     d.handleStub,
		MethodAnnounce:     d.handleAnnounce,
	}
	d.fallback = d.handleUnknown
	return d
}

// Dispatch runs one raw request buffer through parse, handler and response
// assembly. Every input yields exactly one response; a malformed request
// line produces a 400 instead of failing the handling unit.
func (d *Dispatcher) Dispatch(data []byte, remoteAddr string) []byte {
	req, err := ParseRequest(data, remoteAddr)
	if err != nil {
		slog.Warn("Malformed RTSP request", "remoteAddr", remoteAddr, "err", err)
		return BuildResponse(req, &Reply{Status: StatusBadRequest})
	}

	if d.stats != nil {
		d.stats.RequestHandled(req.Method)
	}

	handler, ok := d.handlers[req.Method]
	if !ok {
		handler = d.fallback
	}

	return BuildResponse(req, handler(req))
}

// handleOptions returns the fixed advertised method set.
func (d *Dispatcher) handleOptions(req *Request) *Reply {
	return &Reply{Headers: []string{HeaderPublic + ": " + PublicMethods}}
}

// handleDescribe returns the controller's session description as the body.
func (d *Dispatcher) handleDescribe(req *Request) *Reply {
	return &Reply{Body: d.ctrl.Description(req.IsMulticast)}
}

// handleSetup allocates a session, asks the controller for a server port
// and negotiates the Transport header.
func (d *Dispatcher) handleSetup(req *Request) *Reply {
	clientSpec := req.GetHeader(HeaderTransport)
	if clientSpec == "" {
		slog.Warn("SETUP without Transport header", "remoteAddr", req.RemoteHost)
		return &Reply{Status: StatusBadRequest}
	}

	id := d.registry.Allocate()

	port, err := d.ctrl.Setup(id, req.URL, req.StreamIndex())
	if err != nil {
		slog.Error("Controller setup failed", "sessionId", id, "err", err)
		d.registry.Remove(id)
		return &Reply{Status: StatusInternalServerError}
	}

	d.registry.Bind(id, Transport{
		Multicast:  req.IsMulticast,
		ClientSpec: clientSpec,
		ServerPort: port,
	})

	transport := NegotiateTransport(clientSpec, req.RemoteHost, d.ctrl.InterfaceAddr(), port)

	if d.stats != nil {
		d.stats.SessionOpened()
	}
	slog.Info("Session created", "sessionId", id, "serverPort", port, "remoteAddr", req.RemoteHost)

	return &Reply{Headers: []string{
		HeaderTransport + ": " + transport,
		HeaderSession + ": " + fmt.Sprintf("%d", id),
	}}
}

// handlePlay starts streaming for an existing session. An unknown session
// id is a client error, not an assumption.
func (d *Dispatcher) handlePlay(req *Request) *Reply {
	id, ok := req.SessionID()
	if !ok {
		return &Reply{Status: StatusSessionNotFound}
	}
	if err := d.registry.Start(id); err != nil {
		slog.Warn("PLAY for unknown session", "sessionId", id, "remoteAddr", req.RemoteHost)
		return &Reply{Status: StatusSessionNotFound}
	}
	if err := d.ctrl.StartStreaming(id); err != nil {
		slog.Error("Failed to start streaming", "sessionId", id, "err", err)
		return &Reply{Status: StatusInternalServerError}
	}

	playRange := req.GetHeader(HeaderRange)
	if playRange == "" {
		playRange = "npt=0-"
	}

	return &Reply{Headers: []string{
		HeaderSession + ": " + fmt.Sprintf("%d", id),
		HeaderRange + ": " + playRange,
		fmt.Sprintf("%s: url=%s;seq=%d;rtptime=%d", HeaderRTPInfo, req.URL, d.ctrl.SequenceNumber(), d.ctrl.Timestamp()),
	}}
}

// handleTeardown stops streaming and removes the session.
func (d *Dispatcher) handleTeardown(req *Request) *Reply {
	id, ok := req.SessionID()
	if !ok {
		return &Reply{Status: StatusSessionNotFound}
	}
	if err := d.registry.Stop(id); err != nil {
		slog.Warn("TEARDOWN for unknown session", "sessionId", id, "remoteAddr", req.RemoteHost)
		return &Reply{Status: StatusSessionNotFound}
	}
	if err := d.ctrl.StopStreaming(id); err != nil {
		slog.Error("Failed to stop streaming", "sessionId", id, "err", err)
	}

	if d.stats != nil {
		d.stats.SessionClosed()
	}
	slog.Info("Session removed", "sessionId", id)

	return &Reply{}
}

// handleStub acknowledges methods reserved for future negotiation.
func (d *Dispatcher) handleStub(req *Request) *Reply {
	slog.Debug("Stub method received", "method", req.Method, "remoteAddr", req.RemoteHost)
	return &Reply{}
}

// handleAnnounce is a no-op.
func (d *Dispatcher) handleAnnounce(req *Request) *Reply {
	return &Reply{}
}

// handleUnknown is the fallback for unrecognized methods.
func (d *Dispatcher) handleUnknown(req *Request) *Reply {
	slog.Warn("Unrecognized RTSP method", "method", req.Method, "remoteAddr", req.RemoteHost)
	return &Reply{Body: "Not implemented"}
}
