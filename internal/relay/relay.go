package relay

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// rtpClockRate is the 90 kHz RTP media clock.
const rtpClockRate = 90000

// Stats is a snapshot of relay activity.
type Stats struct {
	AllocatedSessions int    `json:"allocated_sessions"`
	ActiveStreams     int    `json:"active_streams"`
	IngestPackets     uint64 `json:"ingest_packets"`
	IngestBytes       uint64 `json:"ingest_bytes"`
}

// Relay is the stream controller behind the RTSP core: it allocates server
// port pairs, produces session descriptions and tracks which sessions are
// being fed. Actual packet delivery is driven by the ingest edge.
type Relay struct {
	iface   string
	started time.Time

	mu       sync.Mutex
	nextPort int
	ports    map[uint64]int // sessionId -> base of server port pair
	active   map[uint64]bool

	ingestPackets atomic.Uint64
	ingestBytes   atomic.Uint64
}

// New creates a relay advertising iface as its interface address and
// handing out port pairs upward from portBase.
func New(iface string, portBase int) *Relay {
	return &Relay{
		iface:    iface,
		started:  time.Now(),
		nextPort: portBase,
		ports:    make(map[uint64]int),
		active:   make(map[uint64]bool),
	}
}

// InterfaceAddr returns the server interface address.
func (r *Relay) InterfaceAddr() string {
	return r.iface
}

// Description returns the SDP payload for DESCRIBE. Multicast requests get
// a multicast connection address with a TTL, unicast ones a placeholder
// address filled in per-session by SETUP.
func (r *Relay) Description(multicast bool) string {
	connection := "c=IN IP4 0.0.0.0\r\n"
	if multicast {
		connection = "c=IN IP4 239.255.42.42/127\r\n"
	}

	return fmt.Sprintf("v=0\r\n"+
		"o=- %d %d IN IP4 %s\r\n"+
		"s=Lyra Stream\r\n"+
		"t=0 0\r\n"+
		"a=range:npt=0-\r\n"+
		connection+
		"m=video 0 RTP/AVP 96\r\n"+
		"a=rtpmap:96 H264/90000\r\n"+
		"a=control:track1\r\n"+
		"m=audio 0 RTP/AVP 97\r\n"+
		"a=rtpmap:97 MPEG4-GENERIC/48000/2\r\n"+
		"a=control:track2\r\n",
		r.started.Unix(), r.started.Unix(), r.iface)
}

// Setup allocates the server port pair for a session. Pairs are contiguous
// and never reused within a process.
func (r *Relay) Setup(sessionID uint64, transportURL string, streamIndex int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if port, ok := r.ports[sessionID]; ok {
		return port, nil
	}

	port := r.nextPort
	r.nextPort += 2
	r.ports[sessionID] = port

	slog.Debug("Relay port pair allocated", "sessionId", sessionID, "port", port, "streamIndex", streamIndex, "url", transportURL)
	return port, nil
}

// StartStreaming marks a session as actively fed.
func (r *Relay) StartStreaming(sessionID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ports[sessionID]; !ok {
		return fmt.Errorf("no port allocation for session %d", sessionID)
	}
	r.active[sessionID] = true
	return nil
}

// StopStreaming halts delivery and releases the session's allocation.
func (r *Relay) StopStreaming(sessionID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ports[sessionID]; !ok {
		return fmt.Errorf("no port allocation for session %d", sessionID)
	}
	delete(r.active, sessionID)
	delete(r.ports, sessionID)
	return nil
}

// SequenceNumber reports the current RTP sequence number, advanced once
// per ingested packet.
func (r *Relay) SequenceNumber() uint16 {
	return uint16(r.ingestPackets.Load())
}

// Timestamp reports the current position on the RTP media clock.
func (r *Relay) Timestamp() uint32 {
	return uint32(time.Since(r.started).Seconds() * rtpClockRate)
}

// Ingest accounts one received media payload. The stream id comes from the
// publisher's transport handshake.
func (r *Relay) Ingest(streamID string, data []byte) {
	r.ingestPackets.Add(1)
	r.ingestBytes.Add(uint64(len(data)))
}

// Stats returns a snapshot of relay activity.
func (r *Relay) Stats() Stats {
	r.mu.Lock()
	allocated := len(r.ports)
	active := len(r.active)
	r.mu.Unlock()

	return Stats{
		AllocatedSessions: allocated,
		ActiveStreams:     active,
		IngestPackets:     r.ingestPackets.Load(),
		IngestBytes:       r.ingestBytes.Load(),
	}
}
